package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/combatlens/internal/analysis"
	"github.com/roach88/combatlens/internal/canonical"
)

// Snapshot is the golden-file view of a scenario run. The fingerprint is
// part of it, so any report change shows up in the diff.
type Snapshot struct {
	Scenario string           `json:"scenario"`
	RunID    string           `json:"run_id"`
	Report   *analysis.Report `json:"report"`
}

// SnapshotJSON renders a result as canonical JSON.
func SnapshotJSON(name string, result *Result) ([]byte, error) {
	return canonical.Marshal(Snapshot{Scenario: name, RunID: result.RunID, Report: result.Report})
}

// RunWithGolden executes a scenario and compares the report against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the report doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...goldie.Option) error {
	t.Helper()

	result, err := Run(t.Context(), scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result, opts...)
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result, opts ...goldie.Option) error {
	t.Helper()

	data, err := SnapshotJSON(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t, append([]goldie.Option{
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	}, opts...)...)
	g.Assert(t, name, data)
	return nil
}

// GoldenPath returns the golden file location for a scenario file: a
// golden/ directory next to it, named after the scenario.
func GoldenPath(scenarioPath, name string) string {
	return filepath.Join(filepath.Dir(scenarioPath), "golden", name+".golden")
}

// UpdateGolden writes the snapshot of result to path.
func UpdateGolden(path, name string, result *Result) error {
	data, err := SnapshotJSON(name, result)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create golden directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// CompareGolden checks result against the golden file at path.
// A missing golden file is not an error: ok is false and exists is false.
func CompareGolden(path, name string, result *Result) (ok, exists bool, err error) {
	want, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("read golden file: %w", err)
	}
	got, err := SnapshotJSON(name, result)
	if err != nil {
		return false, true, err
	}
	return bytes.Equal(bytes.TrimSpace(want), bytes.TrimSpace(got)), true, nil
}
