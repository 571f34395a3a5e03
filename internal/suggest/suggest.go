// Package suggest holds the accumulation points for analysis findings: a
// suggestion sink of tiered findings and a checklist of rules.
//
// Modules write through per-module scopes and never see each other's
// entries. The sinks are read once, after the terminal event.
package suggest

// Suggestion is a finding whose severity depends on Value and Tiers.
type Suggestion struct {
	Module  string  `json:"module"`
	Icon    string  `json:"icon,omitempty"`
	Content string  `json:"content"`
	Why     string  `json:"why,omitempty"`
	Value   float64 `json:"value"`
	Tiers   Tiers   `json:"tiers"`
}

// Severity resolves the suggestion against its tiers.
func (s Suggestion) Severity() (Severity, bool) {
	return s.Tiers.Resolve(s.Value)
}

// Finding is a visible suggestion with its resolved severity.
type Finding struct {
	Suggestion
	Severity Severity `json:"severity"`
}

// Sink accumulates suggestions in insertion order.
type Sink struct {
	entries []Suggestion
}

// NewSink creates an empty sink.
func NewSink() *Sink {
	return &Sink{}
}

// Scope returns a writer that tags entries with module.
func (s *Sink) Scope(module string) *Suggestions {
	return &Suggestions{sink: s, module: module}
}

// Entries returns copies of every suggestion, visible or not.
func (s *Sink) Entries() []Suggestion {
	out := make([]Suggestion, len(s.entries))
	for i, e := range s.entries {
		out[i] = copySuggestion(e)
	}
	return out
}

// Visible returns the suggestions that resolve to a severity.
func (s *Sink) Visible() []Finding {
	return Visible(s.entries)
}

// Visible filters suggestions down to those with a resolved severity.
func Visible(entries []Suggestion) []Finding {
	out := make([]Finding, 0, len(entries))
	for _, e := range entries {
		if sev, ok := e.Severity(); ok {
			out = append(out, Finding{Suggestion: copySuggestion(e), Severity: sev})
		}
	}
	return out
}

// Suggestions is a module's write-only view of a Sink.
type Suggestions struct {
	sink   *Sink
	module string
}

// Add appends a suggestion. The module tag is always overwritten with the
// scope's module.
func (w *Suggestions) Add(s Suggestion) {
	s = copySuggestion(s)
	s.Module = w.module
	w.sink.entries = append(w.sink.entries, s)
}

func copySuggestion(s Suggestion) Suggestion {
	if s.Tiers != nil {
		tiers := make(Tiers, len(s.Tiers))
		copy(tiers, s.Tiers)
		s.Tiers = tiers
	}
	return s
}
