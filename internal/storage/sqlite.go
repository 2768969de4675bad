package storage

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	// Create schema if needed
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		-- Rulemaking documents already downloaded from the SEC site,
		-- keyed by detail-page URL so reruns skip them
		CREATE TABLE IF NOT EXISTS fetched_rules (
			url TEXT PRIMARY KEY,
			title TEXT,
			date TEXT,
			pdf_url TEXT,
			pdf_path TEXT,
			fetched_at INTEGER NOT NULL
		);

		-- One row per analyzed regulation: the extracted mandates and
		-- the gap findings against the internal policy corpus
		CREATE TABLE IF NOT EXISTS regulation_records (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			source_url TEXT,
			date TEXT,
			file_name TEXT NOT NULL,
			mandates_text TEXT NOT NULL,
			findings_text TEXT NOT NULL,
			mandate_count INTEGER NOT NULL,
			concept_release INTEGER NOT NULL,
			findings_json TEXT,
			analyzed_at INTEGER NOT NULL,
			run_id TEXT NOT NULL
		);

		-- Index for per-run report regeneration
		CREATE INDEX IF NOT EXISTS idx_records_run_id ON regulation_records(run_id);
	`

	_, err := db.Exec(schema)
	return err
}

// scanner abstracts over sql.Row and sql.Rows so scan helpers serve both.
type scanner interface {
	Scan(dest ...interface{}) error
}

// nullableString converts a byte slice to sql.NullString, treating empty as NULL.
func nullableString(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

// nullableStringValue converts a string to sql.NullString, treating empty as NULL.
func nullableStringValue(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
