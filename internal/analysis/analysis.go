// Package analysis is the single entry point of the analysis core: given an
// event stream, static data and a module registry it runs every module and
// returns a structured report.
//
// Analyze performs no I/O. Loading encounters, persisting reports and
// rendering them are the caller's business.
package analysis

import (
	"context"
	"fmt"

	"github.com/roach88/combatlens/internal/actor"
	"github.com/roach88/combatlens/internal/canonical"
	"github.com/roach88/combatlens/internal/engine"
	"github.com/roach88/combatlens/internal/event"
	"github.com/roach88/combatlens/internal/gamedata"
	"github.com/roach88/combatlens/internal/suggest"
)

// Input is everything one analysis reads.
type Input struct {
	Events []event.Event
	Data   *gamedata.Table
	Roster *actor.Roster
}

// ModuleReport is one module's outcome. Summary is only set for modules that
// finished with StatusOK.
type ModuleReport struct {
	Handle  engine.Handle `json:"handle"`
	Status  engine.Status `json:"status"`
	Error   string        `json:"error,omitempty"`
	Cause   engine.Handle `json:"cause,omitempty"`
	Summary any           `json:"summary,omitempty"`
}

// Report is the result of one analysis.
//
// Suggestions and Checklist only hold entries from modules that finished
// with StatusOK; a failed or degraded module is listed in Modules instead,
// so a missing finding is distinguishable from a clean one.
type Report struct {
	Suggestions []suggest.Suggestion `json:"suggestions"`
	Findings    []suggest.Finding    `json:"findings"`
	Checklist   []suggest.Rule       `json:"checklist"`
	Modules     []ModuleReport       `json:"modules"`
	Fingerprint string               `json:"fingerprint"`
}

// Analyze builds the registry into a fresh run, executes it over the events
// and collects the report.
//
// Setup problems (an unresolvable registry, a failing constructor, an
// invalid stream) are returned as errors. Handler faults are not: they show
// up as module statuses in the report.
func Analyze(ctx context.Context, in Input, reg *engine.Registry, opts ...engine.Option) (*Report, error) {
	run, err := engine.Build(reg, engine.Environment{Data: in.Data, Roster: in.Roster}, opts...)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	if err := run.Execute(ctx, in.Events); err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	return Collect(run)
}

// Collect assembles the report of an executed run.
func Collect(run *engine.Run) (*Report, error) {
	healthy := make(map[string]bool)
	report := &Report{
		Suggestions: []suggest.Suggestion{},
		Checklist:   []suggest.Rule{},
		Modules:     make([]ModuleReport, 0, len(run.Order())),
	}

	for _, st := range run.Statuses() {
		mr := ModuleReport{Handle: st.Handle, Status: st.Status, Cause: st.Cause}
		switch st.Status {
		case engine.StatusOK:
			healthy[string(st.Handle)] = true
			if m, ok := run.Module(st.Handle); ok {
				if s, ok := m.(engine.Summarizer); ok {
					mr.Summary = s.Summary()
				}
			}
		case engine.StatusFailed:
			if st.Fault != nil {
				mr.Error = st.Fault.Error()
			}
		case engine.StatusDegraded:
			mr.Error = fmt.Sprintf("dependency %s failed", st.Cause)
		}
		report.Modules = append(report.Modules, mr)
	}

	for _, s := range run.Suggestions().Entries() {
		if healthy[s.Module] {
			report.Suggestions = append(report.Suggestions, s)
		}
	}
	report.Findings = suggest.Visible(report.Suggestions)
	for _, r := range run.Checklist().Rules() {
		if healthy[r.Module] {
			report.Checklist = append(report.Checklist, r)
		}
	}

	fp, err := Fingerprint(report)
	if err != nil {
		return nil, err
	}
	report.Fingerprint = fp
	return report, nil
}

// Fingerprint hashes the report content, excluding the Fingerprint field
// itself. Identical input always yields an identical fingerprint.
func Fingerprint(r *Report) (string, error) {
	return canonical.Fingerprint(canonical.DomainReport, struct {
		Suggestions []suggest.Suggestion `json:"suggestions"`
		Checklist   []suggest.Rule       `json:"checklist"`
		Modules     []ModuleReport       `json:"modules"`
	}{r.Suggestions, r.Checklist, r.Modules})
}

// StreamFingerprint identifies an event stream, so stored runs of the same
// encounter can be grouped.
func StreamFingerprint(events []event.Event) (string, error) {
	return canonical.Fingerprint(canonical.DomainStream, events)
}
