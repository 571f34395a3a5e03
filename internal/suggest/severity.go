package suggest

import (
	"fmt"
	"sort"
	"strings"
)

// Severity ranks a finding. Higher is worse.
type Severity int

const (
	Minor Severity = iota + 1
	Medium
	Major
	Morbid
)

var severityNames = map[Severity]string{
	Minor:  "minor",
	Medium: "medium",
	Major:  "major",
	Morbid: "morbid",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	if _, ok := severityNames[s]; !ok {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name, case-insensitively.
func (s *Severity) UnmarshalText(b []byte) error {
	sev, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = sev
	return nil
}

// ParseSeverity maps a name to a Severity.
func ParseSeverity(name string) (Severity, error) {
	for sev, n := range severityNames {
		if strings.EqualFold(n, name) {
			return sev, nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q", name)
}

// Tier maps a threshold to a severity.
type Tier struct {
	Threshold float64  `json:"threshold"`
	Severity  Severity `json:"severity"`
}

// Tiers is a threshold table ordered by ascending threshold.
type Tiers []Tier

// NewTiers builds Tiers from a threshold map.
func NewTiers(m map[float64]Severity) Tiers {
	tiers := make(Tiers, 0, len(m))
	for threshold, sev := range m {
		tiers = append(tiers, Tier{Threshold: threshold, Severity: sev})
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Threshold < tiers[j].Threshold })
	return tiers
}

// Fixed is a single tier at zero: any non-negative value resolves to sev.
func Fixed(sev Severity) Tiers {
	return Tiers{{Threshold: 0, Severity: sev}}
}

// Resolve returns the severity of the highest tier whose threshold is at or
// below value. Values below the lowest threshold resolve to nothing. The
// tiers need not be sorted; on equal thresholds the later tier wins.
func (t Tiers) Resolve(value float64) (Severity, bool) {
	var (
		best  Tier
		found bool
	)
	for _, tier := range t {
		if tier.Threshold > value {
			continue
		}
		if !found || tier.Threshold >= best.Threshold {
			best, found = tier, true
		}
	}
	return best.Severity, found
}
