package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/combatlens/internal/analysis"
	"github.com/roach88/combatlens/internal/suggest"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = errors.New("run not found")

// RunRecord is one row of the runs table, without the report body.
type RunRecord struct {
	ID                string    `json:"id"`
	Encounter         string    `json:"encounter"`
	Job               string    `json:"job"`
	Player            int64     `json:"player"`
	EventCount        int       `json:"eventCount"`
	StreamFingerprint string    `json:"streamFingerprint"`
	ReportFingerprint string    `json:"reportFingerprint"`
	CreatedAt         time.Time `json:"createdAt"`
	Findings          int       `json:"findings"`
	Unhealthy         int       `json:"unhealthy"` // modules not ok
}

// FindingRecord is one stored finding.
type FindingRecord struct {
	Module   string  `json:"module"`
	Severity string  `json:"severity"`
	Value    float64 `json:"value"`
	Content  string  `json:"content"`
	Why      string  `json:"why,omitempty"`
}

// StatusRecord is one stored module status.
type StatusRecord struct {
	Handle string `json:"handle"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// StoredRun is a run with its child rows.
type StoredRun struct {
	RunRecord
	FindingRows []FindingRecord `json:"findingRows"`
	Modules     []StatusRecord  `json:"modules"`
}

// ListFilter narrows ListRuns. Zero values are unconstrained.
type ListFilter struct {
	Job   string
	Limit int
}

const runColumns = `
	r.id, r.encounter, r.job, r.player, r.event_count,
	r.stream_fingerprint, r.report_fingerprint, r.created_at,
	(SELECT COUNT(*) FROM findings f WHERE f.run_id = r.id),
	(SELECT COUNT(*) FROM module_status m WHERE m.run_id = r.id AND m.status != 'ok')
`

// ListRuns returns stored runs, newest first.
// Ties are broken by id COLLATE BINARY for deterministic output.
//
// Returns an empty slice (not nil) if nothing is stored.
func (s *Store) ListRuns(ctx context.Context, filter ListFilter) ([]RunRecord, error) {
	q := selectQuery{
		columns: runColumns,
		from:    "runs r",
		orderBy: "r.created_at DESC, r.id COLLATE BINARY ASC",
		limit:   filter.Limit,
	}
	if filter.Job != "" {
		q.where = append(q.where, equals{"r.job", filter.Job})
	}
	query, args, err := q.compile()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns one run with its findings and module statuses.
func (s *Store) ReadRun(ctx context.Context, id string) (*StoredRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	run := &StoredRun{RunRecord: rec}
	if run.FindingRows, err = s.readFindings(ctx, id); err != nil {
		return nil, err
	}
	if run.Modules, err = s.readStatuses(ctx, id); err != nil {
		return nil, err
	}
	return run, nil
}

// ReadReport decodes the stored report body of a run. Module summaries come
// back as generic JSON values.
func (s *Store) ReadReport(ctx context.Context, id string) (*analysis.Report, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT report FROM runs WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read report %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", id, err)
	}

	var report analysis.Report
	if err := json.Unmarshal([]byte(body), &report); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	return &report, nil
}

func (s *Store) readFindings(ctx context.Context, id string) ([]FindingRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT module, severity, value, content, why
		FROM findings
		WHERE run_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	defer rows.Close()

	out := []FindingRecord{}
	for rows.Next() {
		var f FindingRecord
		if err := rows.Scan(&f.Module, &f.Severity, &f.Value, &f.Content, &f.Why); err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate findings: %w", err)
	}
	return out, nil
}

func (s *Store) readStatuses(ctx context.Context, id string) ([]StatusRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT handle, status, error
		FROM module_status
		WHERE run_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query module status: %w", err)
	}
	defer rows.Close()

	out := []StatusRecord{}
	for rows.Next() {
		var m StatusRecord
		if err := rows.Scan(&m.Handle, &m.Status, &m.Error); err != nil {
			return nil, fmt.Errorf("scan module status: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate module status: %w", err)
	}
	return out, nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var (
		rec     RunRecord
		created int64
	)
	err := row.Scan(
		&rec.ID, &rec.Encounter, &rec.Job, &rec.Player, &rec.EventCount,
		&rec.StreamFingerprint, &rec.ReportFingerprint, &created,
		&rec.Findings, &rec.Unhealthy,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, err
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	rec.CreatedAt = time.UnixMilli(created).UTC()
	return rec, nil
}

// FindingFilter narrows SearchFindings. Zero values are unconstrained.
type FindingFilter struct {
	Job         string
	Module      string
	MinSeverity suggest.Severity
	Limit       int
}

// FindingHit is a stored finding with the run it belongs to.
type FindingHit struct {
	RunID     string    `json:"runId"`
	Encounter string    `json:"encounter"`
	Job       string    `json:"job"`
	CreatedAt time.Time `json:"createdAt"`
	FindingRecord
}

// SearchFindings returns findings across stored runs, newest run first and
// in report order within a run.
func (s *Store) SearchFindings(ctx context.Context, filter FindingFilter) ([]FindingHit, error) {
	q := selectQuery{
		columns: "f.run_id, r.encounter, r.job, r.created_at, f.module, f.severity, f.value, f.content, f.why",
		from:    "findings f JOIN runs r ON r.id = f.run_id",
		orderBy: "r.created_at DESC, f.run_id COLLATE BINARY ASC, f.seq ASC",
		limit:   filter.Limit,
	}
	if filter.Job != "" {
		q.where = append(q.where, equals{"r.job", filter.Job})
	}
	if filter.Module != "" {
		q.where = append(q.where, equals{"f.module", filter.Module})
	}
	if filter.MinSeverity > 0 {
		q.where = append(q.where, atLeast{"f.severity_rank", int(filter.MinSeverity)})
	}
	query, args, err := q.compile()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	defer rows.Close()

	hits := []FindingHit{}
	for rows.Next() {
		var (
			h       FindingHit
			created int64
		)
		if err := rows.Scan(&h.RunID, &h.Encounter, &h.Job, &created,
			&h.Module, &h.Severity, &h.Value, &h.Content, &h.Why); err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		h.CreatedAt = time.UnixMilli(created).UTC()
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate findings: %w", err)
	}
	return hits, nil
}
