// Package journal persists run and unit outcomes in a local SQLite
// database, so a batch's results survive the process and can be rendered
// into a report later.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/capella-tools/capscan-batch/internal/batch"
	"github.com/capella-tools/capscan-batch/pkg/schema"
)

type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmt := `
		CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		started_at  TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		total       INTEGER NOT NULL DEFAULT 0,
		succeeded   INTEGER NOT NULL DEFAULT 0,
		failed      INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS units (
		id           TEXT PRIMARY KEY,
		run_id       TEXT NOT NULL,
		input        TEXT NOT NULL,
		output       TEXT,
		stage        TEXT NOT NULL,
		succeeded    INTEGER NOT NULL DEFAULT 0,
		error        TEXT,
		failure_type TEXT,
		duration_ms  INTEGER NOT NULL DEFAULT 0,
		finished_at  TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_units_run ON units(run_id);
	`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("journal migrations: %w", err)
	}
	return nil
}

func (s *Store) ensureRun(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO runs (id, started_at) VALUES (?, ?)`,
		runID, time.Now().UTC())
	return err
}

// RecordUnit upserts one unit's terminal outcome.
func (s *Store) RecordUnit(ctx context.Context, runID string, o batch.UnitOutcome) error {
	if err := s.ensureRun(ctx, runID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO units (id, run_id, input, output, stage, succeeded, error, failure_type, duration_ms, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, runID, o.Input, o.Output, string(o.Stage), o.Succeeded, o.Error, string(o.FailureType), o.Duration.Milliseconds(), time.Now().UTC())
	return err
}

// FinishRun writes the final tally for a run.
func (s *Store) FinishRun(ctx context.Context, r batch.Result) error {
	if err := s.ensureRun(ctx, r.RunID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
UPDATE runs SET finished_at = ?, total = ?, succeeded = ?, failed = ? WHERE id = ?`,
		time.Now().UTC(), r.Total, r.Succeeded, r.Failed, r.RunID)
	return err
}

// LatestRun reloads the most recently started run with its units, in
// input order.
func (s *Store) LatestRun(ctx context.Context) (batch.Result, error) {
	var r batch.Result
	row := s.db.QueryRowContext(ctx,
		`SELECT id, total, succeeded, failed FROM runs ORDER BY started_at DESC, id DESC LIMIT 1`)
	if err := row.Scan(&r.RunID, &r.Total, &r.Succeeded, &r.Failed); err != nil {
		if err == sql.ErrNoRows {
			return r, fmt.Errorf("no runs recorded")
		}
		return r, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, input, output, stage, succeeded, error, failure_type, duration_ms
FROM units WHERE run_id = ? ORDER BY input`, r.RunID)
	if err != nil {
		return r, err
	}
	defer rows.Close()

	for rows.Next() {
		var o batch.UnitOutcome
		var stage, failureType string
		var durationMs int64
		if err := rows.Scan(&o.ID, &o.Input, &o.Output, &stage, &o.Succeeded, &o.Error, &failureType, &durationMs); err != nil {
			return r, err
		}
		o.Stage = schema.Stage(stage)
		o.FailureType = schema.FailureType(failureType)
		o.Duration = time.Duration(durationMs) * time.Millisecond
		r.Units = append(r.Units, o)
	}
	return r, rows.Err()
}

// The store doubles as a batch observer so the runner can journal as it
// goes; persistence failures are logged, never allowed to fail a unit.

func (s *Store) UnitStage(runID string, unit batch.WorkUnit, stage schema.Stage) {
	if err := s.ensureRun(context.Background(), runID); err != nil {
		s.logger.Error("journal run row failed", "run_id", runID, "err", err)
	}
}

func (s *Store) UnitDone(runID string, outcome batch.UnitOutcome) {
	if err := s.RecordUnit(context.Background(), runID, outcome); err != nil {
		s.logger.Error("journal unit failed", "unit", outcome.Input, "err", err)
	}
}

func (s *Store) BatchDone(result batch.Result) {
	if err := s.FinishRun(context.Background(), result); err != nil {
		s.logger.Error("journal run tally failed", "run_id", result.RunID, "err", err)
	}
}
