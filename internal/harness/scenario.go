package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one analysis regression test.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Encounter is the encounter file to analyse.
	// Relative paths are resolved from the scenario file location.
	Encounter string `yaml:"encounter"`

	// Data is an optional CUE file unified with the embedded static data.
	Data string `yaml:"data,omitempty"`

	// Job overrides the encounter's job when set.
	Job string `yaml:"job,omitempty"`

	// Assertions validate the report.
	Assertions []Assertion `yaml:"assertions"`

	// RunID is an optional fixed id for the stored run.
	// If empty, defaults to "test-run-default" for deterministic golden file comparison.
	RunID string `yaml:"run_id,omitempty"`
}

// Assertion validates part of the report.
type Assertion struct {
	// Type specifies the assertion type, one of the Assert* constants.
	Type string `yaml:"type"`

	// Module scopes the assertion to one module handle.
	Module string `yaml:"module,omitempty"`

	// Severity is the expected finding severity (used by finding).
	Severity string `yaml:"severity,omitempty"`

	// Status is the expected module status (used by module_status).
	Status string `yaml:"status,omitempty"`

	// Rule is the checklist rule name (used by checklist).
	Rule string `yaml:"rule,omitempty"`

	// Passed is the expected rule outcome (used by checklist).
	Passed *bool `yaml:"passed,omitempty"`

	// Count is the expected number of findings (used by finding_count and
	// stored_findings).
	Count *int `yaml:"count,omitempty"`

	// Expect contains expected summary fields (used by summary).
	// Subset match - only specified fields are validated.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertFinding        = "finding"
	AssertNoFinding      = "no_finding"
	AssertFindingCount   = "finding_count"
	AssertModuleStatus   = "module_status"
	AssertChecklist      = "checklist"
	AssertSummary        = "summary"
	AssertStoredFindings = "stored_findings"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
//
// Encounter and data paths are resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	scenario.Encounter = resolve(base, scenario.Encounter)
	scenario.Data = resolve(base, scenario.Data)
	return scenario, nil
}

// ParseScenario decodes a scenario document without resolving paths.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Encounter == "" {
		return fmt.Errorf("encounter is required")
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertion[%d]: %w", i, err)
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertFinding, AssertNoFinding:
		if a.Module == "" {
			return fmt.Errorf("%s requires module", a.Type)
		}
	case AssertFindingCount, AssertStoredFindings:
		if a.Count == nil {
			return fmt.Errorf("%s requires count", a.Type)
		}
	case AssertModuleStatus:
		if a.Module == "" || a.Status == "" {
			return fmt.Errorf("module_status requires module and status")
		}
	case AssertChecklist:
		if a.Rule == "" {
			return fmt.Errorf("checklist requires rule")
		}
	case AssertSummary:
		if a.Module == "" || len(a.Expect) == 0 {
			return fmt.Errorf("summary requires module and expect")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
