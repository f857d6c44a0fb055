package history

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/docdraft/internal/foundation/errors"
)

const defaultLimit = 20

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (and creates if needed) the ledger at dbPath.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "open history database").
			WithContext("path", dbPath).Build()
	}
	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "initialize history schema").Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		directory TEXT NOT NULL,
		ref TEXT NOT NULL,
		repository TEXT NOT NULL,
		mode TEXT NOT NULL,
		uploaded INTEGER NOT NULL,
		deleted INTEGER NOT NULL,
		invalidation_id TEXT NOT NULL,
		url TEXT NOT NULL,
		outcome TEXT NOT NULL,
		error TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_directory ON runs(directory);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends run to the ledger.
func (s *SQLiteStore) Record(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, directory, ref, repository, mode, uploaded, deleted, invalidation_id, url, outcome, error, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Directory, run.Ref, run.Repository, run.Mode, run.Uploaded, run.Deleted,
		run.InvalidationID, run.URL, string(run.Outcome), run.Error,
		run.StartedAt.UnixMilli(), run.Duration.Milliseconds(),
	)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "insert run").
			WithContext("run_id", run.RunID).Build()
	}
	return nil
}

// Recent returns the latest runs across all drafts.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Run, error) {
	return s.query(ctx, "", limit)
}

// ByDirectory returns the latest runs of one draft.
func (s *SQLiteStore) ByDirectory(ctx context.Context, dir string, limit int) ([]Run, error) {
	return s.query(ctx, dir, limit)
}

func (s *SQLiteStore) query(ctx context.Context, dir string, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = defaultLimit
	}
	q := `SELECT id, run_id, directory, ref, repository, mode, uploaded, deleted, invalidation_id, url, outcome, error, started_at, duration_ms FROM runs`
	args := []any{}
	if dir != "" {
		q += " WHERE directory = ?"
		args = append(args, dir)
	}
	q += " ORDER BY started_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "query runs").Build()
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			outcome    string
			startedAt  int64
			durationMS int64
		)
		if err := rows.Scan(&r.ID, &r.RunID, &r.Directory, &r.Ref, &r.Repository, &r.Mode, &r.Uploaded, &r.Deleted,
			&r.InvalidationID, &r.URL, &outcome, &r.Error, &startedAt, &durationMS); err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "scan run").Build()
		}
		r.Outcome = Outcome(outcome)
		r.StartedAt = time.UnixMilli(startedAt)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "iterate runs").Build()
	}
	return runs, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// NoopStore discards runs; used when no ledger is configured.
type NoopStore struct{}

func (NoopStore) Record(context.Context, Run) error                       { return nil }
func (NoopStore) Recent(context.Context, int) ([]Run, error)              { return nil, nil }
func (NoopStore) ByDirectory(context.Context, string, int) ([]Run, error) { return nil, nil }
func (NoopStore) Close() error                                            { return nil }
