package suggest

// DefaultTarget is the percentage a rule must reach when none is set.
const DefaultTarget = 95

// Requirement is one measured component of a rule.
type Requirement struct {
	Name     string  `json:"name"`
	Achieved float64 `json:"achieved"`
	Possible float64 `json:"possible"`
}

// Percent is Achieved/Possible*100, or 0 when nothing was possible. The
// result is not clamped.
func (r Requirement) Percent() float64 {
	if r.Possible <= 0 {
		return 0
	}
	return r.Achieved / r.Possible * 100
}

// Rule is a checklist item made of requirements.
type Rule struct {
	Module       string        `json:"module"`
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	Target       float64       `json:"target"`
	Requirements []Requirement `json:"requirements"`
}

// Percent is the mean of the requirement percents, unclamped.
func (r Rule) Percent() float64 {
	if len(r.Requirements) == 0 {
		return 0
	}
	var sum float64
	for _, req := range r.Requirements {
		sum += req.Percent()
	}
	return sum / float64(len(r.Requirements))
}

// Passed reports whether the clamped percent reaches the target.
func (r Rule) Passed() bool {
	return Clamp(r.Percent()) >= r.Target
}

// Clamp limits a percentage to [0, 100] for display.
func Clamp(percent float64) float64 {
	return max(0, min(percent, 100))
}

// Checklist accumulates rules in insertion order.
type Checklist struct {
	rules []Rule
}

// NewChecklist creates an empty checklist.
func NewChecklist() *Checklist {
	return &Checklist{}
}

// Scope returns a writer that tags rules with module.
func (c *Checklist) Scope(module string) *Rules {
	return &Rules{checklist: c, module: module}
}

// Rules returns copies of every rule.
func (c *Checklist) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	for i, r := range c.rules {
		out[i] = copyRule(r)
	}
	return out
}

// Rules is a module's write-only view of a Checklist.
type Rules struct {
	checklist *Checklist
	module    string
}

// Add appends a rule, defaulting Target to DefaultTarget.
func (w *Rules) Add(r Rule) {
	r = copyRule(r)
	r.Module = w.module
	if r.Target == 0 {
		r.Target = DefaultTarget
	}
	w.checklist.rules = append(w.checklist.rules, r)
}

func copyRule(r Rule) Rule {
	reqs := make([]Requirement, len(r.Requirements))
	copy(reqs, r.Requirements)
	r.Requirements = reqs
	return r
}
