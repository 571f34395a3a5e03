package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/combatlens/internal/analysis"
	"github.com/roach88/combatlens/internal/encounter"
	"github.com/roach88/combatlens/internal/engine"
	"github.com/roach88/combatlens/internal/gamedata"
	"github.com/roach88/combatlens/internal/modules"
	"github.com/roach88/combatlens/internal/store"
	"github.com/roach88/combatlens/internal/testutil"
)

// Run executes a scenario and evaluates its assertions.
//
// The encounter is analysed with the job's module catalog, the report is
// saved to a throwaway SQLite store under a fixed run id, and every
// assertion is checked against the report and the stored run.
//
// Returns an error only when the scenario cannot be executed at all
// (unreadable encounter, unknown job, invalid stream). Assertion failures
// are reported in Result.Errors.
func Run(ctx context.Context, s *Scenario) (*Result, error) {
	enc, err := encounter.Load(s.Encounter)
	if err != nil {
		return nil, fmt.Errorf("load encounter: %w", err)
	}
	roster, err := enc.Roster()
	if err != nil {
		return nil, err
	}

	data, err := loadData(s.Data)
	if err != nil {
		return nil, err
	}

	job := enc.Job
	if s.Job != "" {
		job = s.Job
	}
	reg, err := modules.Registry(job)
	if err != nil {
		return nil, err
	}

	in := analysis.Input{Events: enc.Events, Data: data, Roster: roster}
	report, err := analysis.Analyze(ctx, in, reg, engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", enc.Label(), err)
	}

	stored, runID, err := persist(ctx, s, enc, report)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	result.Report = report
	result.RunID = runID
	for i, a := range s.Assertions {
		if err := evaluate(a, report, stored); err != nil {
			result.AddError(fmt.Sprintf("assertion[%d] %s: %v", i, a.Type, err))
		}
	}
	return result, nil
}

func loadData(path string) (*gamedata.Table, error) {
	if path == "" {
		return gamedata.Default()
	}
	return gamedata.LoadFile(path)
}

// persist saves the report to a fresh store and reads the run back.
func persist(ctx context.Context, s *Scenario, enc *encounter.Encounter, report *analysis.Report) (*store.StoredRun, string, error) {
	dir, err := os.MkdirTemp("", "combatlens-harness-")
	if err != nil {
		return nil, "", fmt.Errorf("create store dir: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, "runs.db"), store.WithIDGenerator(testutil.NewFixedIDGenerator(s.RunID)))
	if err != nil {
		return nil, "", err
	}
	defer st.Close()

	streamFP, err := analysis.StreamFingerprint(enc.Events)
	if err != nil {
		return nil, "", err
	}
	id, _, err := st.SaveRun(ctx, store.Meta{
		Encounter:         enc.Label(),
		Job:               enc.Job,
		Player:            enc.Player,
		EventCount:        len(enc.Events),
		StreamFingerprint: streamFP,
	}, report)
	if err != nil {
		return nil, "", err
	}

	stored, err := st.ReadRun(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return stored, id, nil
}
