package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/combatlens/internal/analysis"
	"github.com/roach88/combatlens/internal/canonical"
)

// ErrNoStreamFingerprint is returned when a run is saved without the
// fingerprint of the stream it analysed.
var ErrNoStreamFingerprint = errors.New("stream fingerprint is required")

// Meta identifies what a report was computed from.
type Meta struct {
	Encounter         string
	Job               string
	Player            int64
	EventCount        int
	StreamFingerprint string
}

// SaveRun stores a report with its findings and module statuses.
// Returns the run id and whether a new record was inserted.
//
// Saving the same report for the same stream twice is a no-op that returns
// the existing run id and inserted=false.
func (s *Store) SaveRun(ctx context.Context, meta Meta, report *analysis.Report) (id string, inserted bool, err error) {
	if meta.StreamFingerprint == "" {
		return "", false, fmt.Errorf("save run: %w", ErrNoStreamFingerprint)
	}
	body, err := canonical.Marshal(report)
	if err != nil {
		return "", false, fmt.Errorf("save run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("save run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	id = s.ids.Generate()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, encounter, job, player, event_count, stream_fingerprint, report_fingerprint, report, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(stream_fingerprint, report_fingerprint) DO NOTHING
	`,
		id,
		meta.Encounter,
		meta.Job,
		meta.Player,
		meta.EventCount,
		meta.StreamFingerprint,
		report.Fingerprint,
		string(body),
		s.now().UnixMilli(),
	)
	if err != nil {
		return "", false, fmt.Errorf("save run: insert: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("save run: rows affected: %w", err)
	}
	if rows == 0 {
		err = tx.QueryRowContext(ctx, `
			SELECT id FROM runs
			WHERE stream_fingerprint = ? AND report_fingerprint = ?
		`, meta.StreamFingerprint, report.Fingerprint).Scan(&id)
		if err != nil {
			return "", false, fmt.Errorf("save run: select existing: %w", err)
		}
		return id, false, tx.Commit()
	}

	for i, f := range report.Findings {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO findings (run_id, seq, module, severity, severity_rank, value, content, why)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, id, i, f.Module, f.Severity.String(), int(f.Severity), f.Value, f.Content, f.Why)
		if err != nil {
			return "", false, fmt.Errorf("save run: finding %d: %w", i, err)
		}
	}
	for i, m := range report.Modules {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO module_status (run_id, seq, handle, status, error)
			VALUES (?, ?, ?, ?, ?)
		`, id, i, string(m.Handle), string(m.Status), m.Error)
		if err != nil {
			return "", false, fmt.Errorf("save run: module %s: %w", m.Handle, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("save run: commit: %w", err)
	}
	return id, true, nil
}

// DeleteRun removes a run and, by cascade, its findings and statuses.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete run %s: %w", id, ErrNotFound)
	}
	return nil
}
