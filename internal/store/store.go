// Package store owns every persisted row: file records, per-frame
// brightness, scene fingerprints and the whitelist.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	_ "modernc.org/sqlite"
)

// BusyTimeoutMS is how long a writer waits on a locked database before
// giving up. Background reporting tools may hold read locks for a while,
// so ingest waits up to five minutes rather than failing.
const BusyTimeoutMS = 300_000

const schema = `
CREATE TABLE IF NOT EXISTS filenames (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    name     TEXT NOT NULL UNIQUE,
    fps      REAL,
    duration REAL
);

CREATE TABLE IF NOT EXISTS hashes (
    filename_id INTEGER NOT NULL,
    frame       INTEGER NOT NULL,
    value       REAL NOT NULL,
    UNIQUE (filename_id, frame)
);

CREATE TABLE IF NOT EXISTS brightness (
    filename_id INTEGER NOT NULL,
    frame       INTEGER NOT NULL,
    value       REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_brightness_file_frame ON brightness(filename_id, frame);

CREATE TABLE IF NOT EXISTS whitelist (
    id1 INTEGER NOT NULL,
    id2 INTEGER NOT NULL,
    UNIQUE (id1, id2),
    CHECK (id1 < id2)
);
`

// FileRecord is one ingested file.
type FileRecord struct {
	ID       int64
	Path     string
	FPS      float64
	Duration float64
}

// Fingerprint is one scene-transition descriptor of a file.
type Fingerprint struct {
	Frame int
	Value float64
}

// Store wraps the SQLite database holding one library.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path, applies production pragmas
// and ensures the schema. Safe to call on an existing database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", BusyTimeoutMS),
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// OpenMemory opens an in-memory database for testing. It sets
// MaxOpenConns(1) so every query hits the same in-memory database (each
// connection to ":memory:" creates a separate one) and registers
// t.Cleanup to close it automatically.
func OpenMemory(t testing.TB) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("store.OpenMemory: %v", err)
	}
	s.db.SetMaxOpenConns(1)
	t.Cleanup(func() { s.Close() })
	return s
}

// IsIngested reports whether path already has a file record.
func (s *Store) IsIngested(ctx context.Context, path string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM filenames WHERE name = ?", path).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// FileByPath returns the record for path, or nil when unknown.
func (s *Store) FileByPath(ctx context.Context, path string) (*FileRecord, error) {
	var f FileRecord
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, fps, duration FROM filenames WHERE name = ?", path).
		Scan(&f.ID, &f.Path, &f.FPS, &f.Duration)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// IngestFile inserts a file record together with its brightness samples and
// scene fingerprints in a single transaction. Fingerprint frames must be
// strictly increasing; any violation rolls the whole file back.
func (s *Store) IngestFile(ctx context.Context, path string, fps, duration float64, brightness []float64, prints []Fingerprint) (int64, error) {
	for i := 1; i < len(prints); i++ {
		if prints[i].Frame <= prints[i-1].Frame {
			return 0, fmt.Errorf("fingerprint frames out of order at index %d", i)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO filenames (name, fps, duration) VALUES (?, ?, ?)",
		path, fps, duration)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	bstmt, err := tx.PrepareContext(ctx,
		"INSERT INTO brightness (filename_id, frame, value) VALUES (?, ?, ?)")
	if err != nil {
		return 0, err
	}
	defer bstmt.Close()
	for frame, value := range brightness {
		if _, err := bstmt.ExecContext(ctx, id, frame, value); err != nil {
			return 0, fmt.Errorf("insert brightness: %w", err)
		}
	}

	hstmt, err := tx.PrepareContext(ctx,
		"INSERT INTO hashes (filename_id, frame, value) VALUES (?, ?, ?)")
	if err != nil {
		return 0, err
	}
	defer hstmt.Close()
	for _, p := range prints {
		if _, err := hstmt.ExecContext(ctx, id, p.Frame, p.Value); err != nil {
			return 0, fmt.Errorf("insert fingerprint: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// Files returns all file records ordered by id.
func (s *Store) Files(ctx context.Context) ([]FileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, fps, duration FROM filenames ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		var f FileRecord
		if err := rows.Scan(&f.ID, &f.Path, &f.FPS, &f.Duration); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// Fingerprints returns a file's fingerprints with minFrame <= frame <= maxFrame,
// ordered by frame.
func (s *Store) Fingerprints(ctx context.Context, fileID int64, minFrame, maxFrame int) ([]Fingerprint, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT frame, value FROM hashes WHERE filename_id = ? AND frame >= ? AND frame <= ? ORDER BY frame",
		fileID, minFrame, maxFrame)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prints []Fingerprint
	for rows.Next() {
		var p Fingerprint
		if err := rows.Scan(&p.Frame, &p.Value); err != nil {
			return nil, err
		}
		prints = append(prints, p)
	}
	return prints, rows.Err()
}

// FingerprintCount returns the number of fingerprints stored for a file.
func (s *Store) FingerprintCount(ctx context.Context, fileID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM hashes WHERE filename_id = ?", fileID).Scan(&n)
	return n, err
}
