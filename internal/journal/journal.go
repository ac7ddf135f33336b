// Package journal records the outcome of every crawl iteration in a SQLite
// database so a run can be audited after the fact.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/JakeFAU/site-mirror/internal/crawler"
)

const schema = `
CREATE TABLE IF NOT EXISTS pages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	url TEXT NOT NULL,
	visited_key TEXT NOT NULL,
	outcome TEXT NOT NULL,
	artifact_path TEXT,
	bytes INTEGER NOT NULL DEFAULT 0,
	digest TEXT,
	status INTEGER NOT NULL DEFAULT 0,
	error TEXT,
	recorded_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);
CREATE INDEX IF NOT EXISTS idx_pages_visited_key ON pages(visited_key);
`

// Store is a SQLite-backed crawler.Journal.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the journal database at path, creating parent
// directories as needed.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create journal tables: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path is the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends one iteration outcome.
func (s *Store) Record(ctx context.Context, entry crawler.Entry) error {
	recordedAt := entry.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pages (run_id, url, visited_key, outcome, artifact_path, bytes, digest, status, error, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.URL,
		entry.VisitedKey,
		string(entry.Outcome),
		nullString(entry.ArtifactPath),
		entry.Bytes,
		nullString(entry.Digest),
		entry.Status,
		nullString(entry.Error),
		recordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record %s: %w", entry.URL, err)
	}
	return nil
}

// Entries returns the rows of runID in the order they were recorded.
func (s *Store) Entries(ctx context.Context, runID string) ([]crawler.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, url, visited_key, outcome, artifact_path, bytes, digest, status, error, recorded_at
		FROM pages
		WHERE run_id = ?
		ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	defer func() { _ = rows.Close() }()

	var entries []crawler.Entry
	for rows.Next() {
		var (
			e            crawler.Entry
			outcome      string
			artifactPath sql.NullString
			digest       sql.NullString
			errText      sql.NullString
			recordedAt   string
		)
		if err := rows.Scan(&e.RunID, &e.URL, &e.VisitedKey, &outcome, &artifactPath, &e.Bytes, &digest, &e.Status, &errText, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		e.Outcome = crawler.Outcome(outcome)
		e.ArtifactPath = artifactPath.String
		e.Digest = digest.String
		e.Error = errText.String
		if e.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
			return nil, fmt.Errorf("parse recorded_at %q: %w", recordedAt, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal rows: %w", err)
	}
	return entries, nil
}

// Runs lists the distinct run IDs, most recent first.
func (s *Store) Runs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id FROM pages
		GROUP BY run_id
		ORDER BY MAX(id) DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		runs = append(runs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
