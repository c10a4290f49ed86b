package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/social-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	competitor      TEXT NOT NULL DEFAULT '',
	competitor_slug TEXT NOT NULL DEFAULT '',
	out_dir         TEXT NOT NULL,
	batch_ts        TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'running',
	total           INTEGER NOT NULL DEFAULT 0,
	succeeded       INTEGER NOT NULL DEFAULT 0,
	failed          INTEGER NOT NULL DEFAULT 0,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS fetches (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	position    INTEGER NOT NULL,
	url         TEXT NOT NULL,
	status      TEXT NOT NULL,
	saved_path  TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	error_type  TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	fetched_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_competitor_slug ON runs(competitor_slug);
CREATE INDEX IF NOT EXISTS idx_fetches_run_id ON fetches(run_id);
`

const runColumns = `id, competitor, competitor_slug, out_dir, batch_ts, status, total, succeeded, failed, created_at, updated_at`

const fetchColumns = `run_id, position, url, status, saved_path, error, error_type, duration_ms, fetched_at`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, rc model.RunContext, total int) (*model.Run, error) {
	now := time.Now().UTC()
	run := newRun(rc, total, now)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Competitor, run.CompetitorSlug, run.OutDir, run.Timestamp,
		string(run.Status), run.Total, run.Succeeded, run.Failed, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, succeeded, failed int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, succeeded = ?, failed = ?, updated_at = ? WHERE id = ?`,
		string(status), succeeded, failed, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.CompetitorSlug != "" {
		query += ` AND competitor_slug = ?`
		args = append(args, filter.CompetitorSlug)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) RecordFetch(ctx context.Context, o model.FetchOutcome) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fetches (`+fetchColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.RunID, o.Position, o.URL, string(o.Status), o.SavedPath, o.Error, o.ErrorType,
		o.Duration.Milliseconds(), o.FetchedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert fetch %s #%d", o.RunID, o.Position)
}

func (s *SQLiteStore) ListFetches(ctx context.Context, runID string) ([]model.FetchOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fetchColumns+` FROM fetches WHERE run_id = ? ORDER BY position, id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list fetches %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.FetchOutcome
	for rows.Next() {
		o, err := scanFetch(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan fetch")
		}
		out = append(out, *o)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list fetches iterate")
}

// helpers

func newRun(rc model.RunContext, total int, now time.Time) *model.Run {
	return &model.Run{
		ID:             rc.RunID,
		Competitor:     rc.Competitor,
		CompetitorSlug: rc.CompetitorSlug,
		OutDir:         rc.OutDir,
		Timestamp:      rc.Timestamp,
		Status:         model.RunStatusRunning,
		Total:          total,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	err := row.Scan(&r.ID, &r.Competitor, &r.CompetitorSlug, &r.OutDir, &r.Timestamp,
		&r.Status, &r.Total, &r.Succeeded, &r.Failed, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanFetch(row scannable) (*model.FetchOutcome, error) {
	var o model.FetchOutcome
	var durationMs int64
	err := row.Scan(&o.RunID, &o.Position, &o.URL, &o.Status, &o.SavedPath,
		&o.Error, &o.ErrorType, &durationMs, &o.FetchedAt)
	if err != nil {
		return nil, err
	}
	o.Duration = time.Duration(durationMs) * time.Millisecond
	return &o, nil
}
