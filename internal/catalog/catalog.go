// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog keeps a SQLite history of runs and per-identifier
// outcomes so earlier downloads can be looked up after the fact.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paperfetch/pkg/types"
)

// DefaultFile is the database file name inside the output directory.
const DefaultFile = "paperfetch.db"

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrUnknownRun is returned when a run id has no row.
var ErrUnknownRun = errors.New("unknown run")

// Store wraps the history database.
type Store struct {
	db *sql.DB
}

// Run is one batch run as recorded.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time // zero while the run is open
	Stats      types.RunStats
}

// Entry is one recorded outcome.
type Entry struct {
	RunID      string
	RecordedAt time.Time
	types.Outcome
}

// Open opens or creates the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			success INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			cancelled INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			doi TEXT NOT NULL,
			status TEXT NOT NULL,
			provider TEXT,
			path TEXT,
			reason TEXT,
			citation TEXT,
			duration_ms INTEGER,
			recorded_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_doi ON outcomes(doi)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_run ON outcomes(run_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// BeginRun inserts the row for a new run.
func (s *Store) BeginRun(ctx context.Context, runID string, started time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		runID, started.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", runID, err)
	}
	return nil
}

// RecordOutcome appends one outcome to a run.
func (s *Store) RecordOutcome(ctx context.Context, runID string, o types.Outcome, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outcomes (run_id, doi, status, provider, path, reason, citation, duration_ms, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, o.DOI, string(o.Status), o.Provider, o.Path, o.Reason, o.Citation,
		o.Duration.Milliseconds(), at.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("recording outcome for %s: %w", o.DOI, err)
	}
	return nil
}

// FinishRun stores the final counters of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, stats types.RunStats, finished time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, success = ?, skipped = ?, failed = ?, cancelled = ? WHERE id = ?`,
		finished.UTC().Format(timeLayout),
		stats.Success, stats.Skipped, stats.Failed, stats.Cancelled, runID)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finishing run %s: %w", runID, ErrUnknownRun)
	}
	return nil
}

// Runs returns the most recent runs, newest first. limit <= 0 means all.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, started_at, COALESCE(finished_at, ''), success, skipped, failed, cancelled
		FROM runs ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished string
		)
		if err := rows.Scan(&r.ID, &started, &finished,
			&r.Stats.Success, &r.Stats.Skipped, &r.Stats.Failed, &r.Stats.Cancelled); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	for i := range runs {
		per, err := s.perProvider(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Stats.PerProvider = per
	}
	return runs, nil
}

func (s *Store) perProvider(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT provider, count(*) FROM outcomes
		 WHERE run_id = ? AND status = ? AND provider != ''
		 GROUP BY provider`, runID, string(types.StatusSuccess))
	if err != nil {
		return nil, fmt.Errorf("querying providers for run %s: %w", runID, err)
	}
	defer rows.Close()

	per := make(map[string]int)
	for rows.Next() {
		var (
			name string
			n    int
		)
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scanning provider count: %w", err)
		}
		per[name] = n
	}
	return per, rows.Err()
}

// History returns every recorded outcome for doi, oldest first.
func (s *Store) History(ctx context.Context, doi string) ([]Entry, error) {
	return s.entries(ctx, `WHERE doi = ?`, doi)
}

// Outcomes returns the outcomes recorded for one run in arrival order.
func (s *Store) Outcomes(ctx context.Context, runID string) ([]Entry, error) {
	return s.entries(ctx, `WHERE run_id = ?`, runID)
}

func (s *Store) entries(ctx context.Context, where string, arg any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, doi, status, COALESCE(provider, ''), COALESCE(path, ''),
			COALESCE(reason, ''), COALESCE(citation, ''), COALESCE(duration_ms, 0), recorded_at
		 FROM outcomes `+where+` ORDER BY rowid`, arg)
	if err != nil {
		return nil, fmt.Errorf("querying outcomes: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			status   string
			ms       int64
			recorded string
		)
		if err := rows.Scan(&e.RunID, &e.DOI, &status, &e.Provider, &e.Path,
			&e.Reason, &e.Citation, &ms, &recorded); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		e.Status = types.Status(status)
		e.Duration = time.Duration(ms) * time.Millisecond
		e.RecordedAt = parseTime(recorded)
		out = append(out, e)
	}
	return out, rows.Err()
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
