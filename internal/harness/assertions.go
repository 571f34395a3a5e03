package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/combatlens/internal/analysis"
	"github.com/roach88/combatlens/internal/store"
	"github.com/roach88/combatlens/internal/suggest"
)

// AssertionError describes a failed assertion.
type AssertionError struct {
	Type     string
	Expected any
	Actual   any
	Message  string
}

func (e *AssertionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("expected %v, got %v", e.Expected, e.Actual)
}

func evaluate(a Assertion, report *analysis.Report, stored *store.StoredRun) error {
	switch a.Type {
	case AssertFinding:
		return assertFinding(a, report)
	case AssertNoFinding:
		return assertNoFinding(a, report)
	case AssertFindingCount:
		return assertFindingCount(a, report)
	case AssertModuleStatus:
		return assertModuleStatus(a, report)
	case AssertChecklist:
		return assertChecklist(a, report)
	case AssertSummary:
		return assertSummary(a, report)
	case AssertStoredFindings:
		return assertStoredFindings(a, stored)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func findingsFor(report *analysis.Report, module string) []suggest.Finding {
	var out []suggest.Finding
	for _, f := range report.Findings {
		if module == "" || f.Module == module {
			out = append(out, f)
		}
	}
	return out
}

func assertFinding(a Assertion, report *analysis.Report) error {
	found := findingsFor(report, a.Module)
	if len(found) == 0 {
		return &AssertionError{Type: a.Type, Message: fmt.Sprintf("no finding for module %s", a.Module)}
	}
	if a.Severity == "" {
		return nil
	}

	want, err := suggest.ParseSeverity(a.Severity)
	if err != nil {
		return err
	}
	got := make([]string, 0, len(found))
	for _, f := range found {
		if f.Severity == want {
			return nil
		}
		got = append(got, f.Severity.String())
	}
	return &AssertionError{Type: a.Type, Expected: want.String(), Actual: strings.Join(got, ",")}
}

func assertNoFinding(a Assertion, report *analysis.Report) error {
	if found := findingsFor(report, a.Module); len(found) > 0 {
		return &AssertionError{
			Type:    a.Type,
			Message: fmt.Sprintf("module %s has %d finding(s), first: %q", a.Module, len(found), found[0].Content),
		}
	}
	return nil
}

func assertFindingCount(a Assertion, report *analysis.Report) error {
	if got := len(findingsFor(report, a.Module)); got != *a.Count {
		return &AssertionError{Type: a.Type, Expected: *a.Count, Actual: got}
	}
	return nil
}

func assertModuleStatus(a Assertion, report *analysis.Report) error {
	for _, m := range report.Modules {
		if string(m.Handle) != a.Module {
			continue
		}
		if string(m.Status) != a.Status {
			return &AssertionError{Type: a.Type, Expected: a.Status, Actual: string(m.Status)}
		}
		return nil
	}
	return &AssertionError{Type: a.Type, Message: fmt.Sprintf("module %s not in report", a.Module)}
}

func assertChecklist(a Assertion, report *analysis.Report) error {
	for _, r := range report.Checklist {
		if r.Name != a.Rule || (a.Module != "" && r.Module != a.Module) {
			continue
		}
		if a.Passed != nil && r.Passed() != *a.Passed {
			return &AssertionError{
				Type:    a.Type,
				Message: fmt.Sprintf("rule %q: expected passed=%t, got %t at %.1f%%", a.Rule, *a.Passed, r.Passed(), suggest.Clamp(r.Percent())),
			}
		}
		return nil
	}
	return &AssertionError{Type: a.Type, Message: fmt.Sprintf("rule %q not in checklist", a.Rule)}
}

func assertSummary(a Assertion, report *analysis.Report) error {
	for _, m := range report.Modules {
		if string(m.Handle) != a.Module {
			continue
		}
		if m.Summary == nil {
			return &AssertionError{Type: a.Type, Message: fmt.Sprintf("module %s has no summary (status %s)", a.Module, m.Status)}
		}
		actual, err := normalize(m.Summary)
		if err != nil {
			return err
		}
		expected, err := normalize(a.Expect)
		if err != nil {
			return err
		}
		return subsetMatch(expected, actual, "")
	}
	return &AssertionError{Type: a.Type, Message: fmt.Sprintf("module %s not in report", a.Module)}
}

func assertStoredFindings(a Assertion, stored *store.StoredRun) error {
	var rows []store.FindingRecord
	for _, f := range stored.FindingRows {
		if a.Module == "" || f.Module == a.Module {
			rows = append(rows, f)
		}
	}
	if len(rows) != *a.Count {
		return &AssertionError{Type: a.Type, Expected: *a.Count, Actual: len(rows)}
	}
	return nil
}

// normalize round-trips v through JSON so YAML ints and summary structs
// compare as the same generic values.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	return out, nil
}

// subsetMatch checks that every field in expected exists in actual with an
// equal value. Maps match recursively; anything else must be deeply equal.
func subsetMatch(expected, actual any, path string) error {
	em, ok := expected.(map[string]any)
	if !ok {
		if !reflect.DeepEqual(expected, actual) {
			return &AssertionError{Type: AssertSummary, Message: fmt.Sprintf("%s: expected %v, got %v", fieldPath(path), expected, actual)}
		}
		return nil
	}

	am, ok := actual.(map[string]any)
	if !ok {
		return &AssertionError{Type: AssertSummary, Message: fmt.Sprintf("%s: expected an object, got %T", fieldPath(path), actual)}
	}

	keys := make([]string, 0, len(em))
	for k := range em {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		av, ok := am[k]
		if !ok {
			return &AssertionError{Type: AssertSummary, Message: fmt.Sprintf("%s: missing field", fieldPath(join(path, k)))}
		}
		if err := subsetMatch(em[k], av, join(path, k)); err != nil {
			return err
		}
	}
	return nil
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func fieldPath(path string) string {
	if path == "" {
		return "summary"
	}
	return path
}
