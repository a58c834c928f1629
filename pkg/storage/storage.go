// Package storage keeps a local SQLite ledger of audit runs and page outcomes.
// The record store stays the source of truth; the ledger only answers
// "what happened on previous runs".
package storage

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	if path == ":memory:" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS audit_runs (
  id               INTEGER PRIMARY KEY,
  kind             TEXT NOT NULL DEFAULT 'audit' CHECK (kind IN ('audit','seo')),
  started_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  finished_at      DATETIME,
  dry_run          INTEGER NOT NULL CHECK (dry_run IN (0,1)),
  total            INTEGER NOT NULL DEFAULT 0,
  passed           INTEGER NOT NULL DEFAULT 0,
  needs_revision   INTEGER NOT NULL DEFAULT 0,
  inventoried_only INTEGER NOT NULL DEFAULT 0,
  fetch_failed     INTEGER NOT NULL DEFAULT 0,
  local_missing    INTEGER NOT NULL DEFAULT 0,
  persist_failed   INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS audit_results (
  id             INTEGER PRIMARY KEY,
  run_id         INTEGER NOT NULL REFERENCES audit_runs(id),
  occurred_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  page_id        TEXT NOT NULL,
  slug           TEXT NOT NULL,
  outcome        TEXT NOT NULL,
  review_status  TEXT,
  notes          TEXT,
  video_count    INTEGER NOT NULL DEFAULT 0,
  image_count    INTEGER NOT NULL DEFAULT 0,
  word_count     INTEGER NOT NULL DEFAULT 0,
  missing_videos INTEGER NOT NULL DEFAULT 0,
  extra_videos   INTEGER NOT NULL DEFAULT 0,
  missing_images INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_results_run ON audit_results(run_id);
CREATE INDEX IF NOT EXISTS idx_results_slug ON audit_results(slug, occurred_at);
CREATE TABLE IF NOT EXISTS seo_results (
  id          INTEGER PRIMARY KEY,
  run_id      INTEGER NOT NULL REFERENCES audit_runs(id),
  occurred_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  slug        TEXT NOT NULL,
  url         TEXT NOT NULL,
  score       INTEGER NOT NULL,
  findings    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_seo_run ON seo_results(run_id);
    `); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrateRunKind(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{sql: db}, nil
}

// migrateRunKind adds audit_runs.kind to ledgers created before SEO runs
// were told apart. Older rows are all content audits.
func migrateRunKind(db *sql.DB) error {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('audit_runs') WHERE name = 'kind'`).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		if _, err := db.Exec(`ALTER TABLE audit_runs ADD COLUMN kind TEXT NOT NULL DEFAULT 'audit' CHECK (kind IN ('audit','seo'))`); err != nil {
			return err
		}
	}
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_runs_kind ON audit_runs(kind, id)`)
	return err
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// StartRun opens a run row of the given kind and returns its id.
func (d *DB) StartRun(ctx context.Context, kind RunKind, dryRun bool, startedAt time.Time) (int64, error) {
	if kind == "" {
		kind = RunKindAudit
	}
	res, err := d.sql.ExecContext(ctx, `INSERT INTO audit_runs(kind, started_at, dry_run) VALUES(?, ?, ?)`, string(kind), startedAt.UTC().Format(timeLayout), boolToInt(dryRun))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (d *DB) RecordResult(ctx context.Context, r Result) error {
	occurred := r.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	_, err := d.sql.ExecContext(ctx, `INSERT INTO audit_results(run_id, occurred_at, page_id, slug, outcome, review_status, notes, video_count, image_count, word_count, missing_videos, extra_videos, missing_images) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.RunID, occurred.UTC().Format(timeLayout), r.PageID, r.Slug, r.Outcome, nullIfEmpty(r.ReviewStatus), nullIfEmpty(r.Notes),
		r.VideoCount, r.ImageCount, r.WordCount, r.MissingVideos, r.ExtraVideos, r.MissingImages)
	return err
}

// FinishRun stamps the run with its final counters.
func (d *DB) FinishRun(ctx context.Context, runID int64, c Counters, finishedAt time.Time) error {
	_, err := d.sql.ExecContext(ctx, `UPDATE audit_runs SET finished_at = ?, total = ?, passed = ?, needs_revision = ?, inventoried_only = ?, fetch_failed = ?, local_missing = ?, persist_failed = ? WHERE id = ?`,
		finishedAt.UTC().Format(timeLayout), c.Total, c.Passed, c.NeedsRevision, c.InventoriedOnly, c.FetchFailed, c.LocalMissing, c.PersistFailed, runID)
	return err
}

func (d *DB) RecordSEO(ctx context.Context, r SEOResult) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO seo_results(run_id, occurred_at, slug, url, score, findings) VALUES(?,?,?,?,?,?)`,
		r.RunID, time.Now().UTC().Format(timeLayout), r.Slug, r.URL, r.Score, r.Findings)
	return err
}

// ListRecentResults returns the most recent N page outcomes across all runs.
func (d *DB) ListRecentResults(ctx context.Context, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 50
	}
	q := "SELECT run_id, occurred_at, page_id, slug, outcome, review_status, notes, video_count, image_count, word_count, missing_videos, extra_videos, missing_images FROM audit_results ORDER BY occurred_at DESC, id DESC LIMIT ?"
	rows, err := d.sql.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []Result{}
	for rows.Next() {
		var r Result
		var occurredAt string
		var status, notes sql.NullString
		if err := rows.Scan(&r.RunID, &occurredAt, &r.PageID, &r.Slug, &r.Outcome, &status, &notes,
			&r.VideoCount, &r.ImageCount, &r.WordCount, &r.MissingVideos, &r.ExtraVideos, &r.MissingImages); err != nil {
			return nil, err
		}
		r.OccurredAt = parseTime(occurredAt)
		r.ReviewStatus = status.String
		r.Notes = notes.String
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// GetRunStats returns the last N content audit runs, newest first.
func (d *DB) GetRunStats(ctx context.Context, limit int) ([]Run, error) {
	return d.ListRuns(ctx, RunKindAudit, limit)
}

// ListRuns returns the last N runs of one kind, newest first.
func (d *DB) ListRuns(ctx context.Context, kind RunKind, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT
			id, kind, started_at, finished_at, dry_run,
			total, passed, needs_revision, inventoried_only,
			fetch_failed, local_missing, persist_failed
		FROM
			audit_runs
		WHERE
			kind = ?
		ORDER BY
			id DESC
		LIMIT ?;
	`
	rows, err := d.sql.QueryContext(ctx, query, string(kind), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started string
		var finished sql.NullString
		var dry int
		var k string
		if err := rows.Scan(&r.ID, &k, &started, &finished, &dry,
			&r.Total, &r.Passed, &r.NeedsRevision, &r.InventoriedOnly,
			&r.FetchFailed, &r.LocalMissing, &r.PersistFailed); err != nil {
			return nil, err
		}
		r.StartedAt = parseTime(started)
		if finished.Valid {
			r.FinishedAt = parseTime(finished.String)
		}
		r.Kind = RunKind(k)
		r.DryRun = dry == 1
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// ListSEOResults returns the pages of a single SEO run ordered by score.
func (d *DB) ListSEOResults(ctx context.Context, runID int64) ([]SEOResult, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT run_id, slug, url, score, findings FROM seo_results WHERE run_id = ? ORDER BY score ASC, slug ASC", runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SEOResult
	for rows.Next() {
		var r SEOResult
		if err := rows.Scan(&r.RunID, &r.Slug, &r.URL, &r.Score, &r.Findings); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
