package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/combatlens/internal/analysis"
	"github.com/roach88/combatlens/internal/engine"
	"github.com/roach88/combatlens/internal/suggest"
	"github.com/roach88/combatlens/internal/testutil"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// testClock ticks one second per call from a fixed instant.
func testClock() func() time.Time {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func testReport(fingerprint string) *analysis.Report {
	heat := suggest.Suggestion{
		Module:  "heat",
		Content: "Avoid overcapping Heat.",
		Why:     "50 Heat lost.",
		Value:   50,
		Tiers:   suggest.NewTiers(map[float64]suggest.Severity{5: suggest.Minor, 50: suggest.Major}),
	}
	deaths := suggest.Suggestion{Module: "deaths", Content: "Don't die.", Tiers: suggest.Fixed(suggest.Major)}
	return &analysis.Report{
		Suggestions: []suggest.Suggestion{heat, deaths},
		Findings: []suggest.Finding{
			{Suggestion: heat, Severity: suggest.Major},
			{Suggestion: deaths, Severity: suggest.Major},
		},
		Checklist: []suggest.Rule{},
		Modules: []analysis.ModuleReport{
			{Handle: "statuses", Status: engine.StatusOK, Summary: map[string]int{"tracked": 2}},
			{Handle: "heat", Status: engine.StatusFailed, Error: "boom"},
			{Handle: "wildfire", Status: engine.StatusDegraded, Cause: "heat", Error: "dependency heat failed"},
		},
		Fingerprint: fingerprint,
	}
}

func testMeta(stream string) Meta {
	return Meta{Encounter: "dummy", Job: "MCH", Player: 1, EventCount: 12, StreamFingerprint: stream}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	assert.NoError(t, s2.verifyPragma("user_version", "1"))
}

func TestSaveRun_DefaultIDsAreUUIDv7(t *testing.T) {
	s := createTestStore(t)

	id, inserted, err := s.SaveRun(context.Background(), testMeta("stream-a"), testReport("report-a"))
	require.NoError(t, err)
	assert.True(t, inserted)

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestSaveRun_RoundTrip(t *testing.T) {
	s := createTestStore(t, WithIDGenerator(testutil.NewFixedIDGenerator("run-1")), WithClock(testClock()))
	ctx := context.Background()

	id, inserted, err := s.SaveRun(ctx, testMeta("stream-a"), testReport("report-a"))
	require.NoError(t, err)
	require.True(t, inserted)
	assert.Equal(t, "run-1", id)

	run, err := s.ReadRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "dummy", run.Encounter)
	assert.Equal(t, "MCH", run.Job)
	assert.Equal(t, 12, run.EventCount)
	assert.Equal(t, "report-a", run.ReportFingerprint)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 6, 0, time.UTC), run.CreatedAt)
	assert.Equal(t, 2, run.Findings)
	assert.Equal(t, 2, run.Unhealthy)

	require.Len(t, run.FindingRows, 2)
	assert.Equal(t, FindingRecord{Module: "heat", Severity: "major", Value: 50, Content: "Avoid overcapping Heat.", Why: "50 Heat lost."}, run.FindingRows[0])
	assert.Equal(t, "deaths", run.FindingRows[1].Module)

	require.Len(t, run.Modules, 3)
	assert.Equal(t, StatusRecord{Handle: "heat", Status: "failed", Error: "boom"}, run.Modules[1])
}

func TestSaveRun_IdempotentOnContent(t *testing.T) {
	s := createTestStore(t, WithIDGenerator(testutil.NewSequenceIDGenerator("run")))
	ctx := context.Background()

	first, inserted, err := s.SaveRun(ctx, testMeta("stream-a"), testReport("report-a"))
	require.NoError(t, err)
	require.True(t, inserted)

	again, inserted, err := s.SaveRun(ctx, testMeta("stream-a"), testReport("report-a"))
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, first, again)

	other, inserted, err := s.SaveRun(ctx, testMeta("stream-b"), testReport("report-a"))
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NotEqual(t, first, other)

	runs, err := s.ListRuns(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestSaveRun_RequiresStreamFingerprint(t *testing.T) {
	s := createTestStore(t)

	_, _, err := s.SaveRun(context.Background(), testMeta(""), testReport("report-a"))
	assert.ErrorIs(t, err, ErrNoStreamFingerprint)
}

func TestReadReport(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id, _, err := s.SaveRun(ctx, testMeta("stream-a"), testReport("report-a"))
	require.NoError(t, err)

	report, err := s.ReadReport(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "report-a", report.Fingerprint)
	require.Len(t, report.Findings, 2)
	assert.Equal(t, suggest.Major, report.Findings[0].Severity)
	assert.Equal(t, "heat", report.Findings[0].Module)
	require.Len(t, report.Modules, 3)
	assert.Equal(t, engine.StatusDegraded, report.Modules[2].Status)
	assert.Equal(t, map[string]any{"tracked": float64(2)}, report.Modules[0].Summary)
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.ReadReport(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRuns_OrderAndFilter(t *testing.T) {
	s := createTestStore(t, WithIDGenerator(testutil.NewSequenceIDGenerator("run")), WithClock(testClock()))
	ctx := context.Background()

	for i, job := range []string{"MCH", "SCH", "MCH"} {
		meta := testMeta(string(rune('a' + i)))
		meta.Job = job
		_, _, err := s.SaveRun(ctx, meta, testReport("report"))
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"run-0003", "run-0002", "run-0001"}, []string{runs[0].ID, runs[1].ID, runs[2].ID})

	runs, err = s.ListRuns(ctx, ListFilter{Job: "MCH", Limit: 1})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-0003", runs[0].ID)

	runs, err = s.ListRuns(ctx, ListFilter{Job: "WHM"})
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestDeleteRun_Cascades(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id, _, err := s.SaveRun(ctx, testMeta("stream-a"), testReport("report-a"))
	require.NoError(t, err)
	require.NoError(t, s.DeleteRun(ctx, id))

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM findings`).Scan(&n))
	assert.Zero(t, n)
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM module_status`).Scan(&n))
	assert.Zero(t, n)

	assert.ErrorIs(t, s.DeleteRun(ctx, id), ErrNotFound)
}

func TestSearchFindings(t *testing.T) {
	s := createTestStore(t, WithIDGenerator(testutil.NewSequenceIDGenerator("run")), WithClock(testClock()))
	ctx := context.Background()

	_, _, err := s.SaveRun(ctx, testMeta("stream-a"), testReport("report-a"))
	require.NoError(t, err)

	minor := suggest.Suggestion{Module: "wildfire", Content: "Align Wildfire.", Value: 1, Tiers: suggest.Fixed(suggest.Minor)}
	second := testReport("report-b")
	second.Findings = append(second.Findings, suggest.Finding{Suggestion: minor, Severity: suggest.Minor})
	meta := testMeta("stream-b")
	meta.Job = "SCH"
	_, _, err = s.SaveRun(ctx, meta, second)
	require.NoError(t, err)

	hits, err := s.SearchFindings(ctx, FindingFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 5)
	got := make([]string, len(hits))
	for i, h := range hits {
		got[i] = h.RunID + "/" + h.Module
	}
	assert.Equal(t, []string{"run-0002/heat", "run-0002/deaths", "run-0002/wildfire", "run-0001/heat", "run-0001/deaths"}, got)
	assert.Equal(t, "major", hits[0].Severity)
	assert.Equal(t, "SCH", hits[0].Job)
	assert.Equal(t, "dummy", hits[0].Encounter)

	hits, err = s.SearchFindings(ctx, FindingFilter{Module: "heat"})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "run-0002", hits[0].RunID)
	assert.Equal(t, "run-0001", hits[1].RunID)

	hits, err = s.SearchFindings(ctx, FindingFilter{MinSeverity: suggest.Medium})
	require.NoError(t, err)
	assert.Len(t, hits, 4)

	hits, err = s.SearchFindings(ctx, FindingFilter{Job: "SCH", Limit: 1})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "heat", hits[0].Module)

	hits, err = s.SearchFindings(ctx, FindingFilter{Module: "faerie"})
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}
