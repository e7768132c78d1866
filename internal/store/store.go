// Package store persists the prompt list and the history of AI QR runs in
// SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// DefaultPrompts seed an empty database.
var DefaultPrompts = []string{
	"Undersea marine life",
	"NYC skyline",
	"Amazon Rainforest",
	"Anime sword battle",
}

const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS prompts (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	text     TEXT NOT NULL,
	position INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS runs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	folder     TEXT NOT NULL UNIQUE,
	source     TEXT NOT NULL,
	status     TEXT NOT NULL,
	total      INTEGER NOT NULL DEFAULT 0,
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS run_images (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	prompt_index INTEGER NOT NULL,
	combo_index  INTEGER NOT NULL,
	prompt       TEXT NOT NULL,
	params       TEXT NOT NULL,
	param_keys   TEXT NOT NULL DEFAULT '[]',
	file         TEXT NOT NULL
);
`

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path. Use ":memory:" for
// a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return s.seedPrompts(ctx)
}

// seedPrompts inserts the default prompts once per database.
func (s *Store) seedPrompts(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var seeded string
	err = tx.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = 'prompts_seeded'`).Scan(&seeded)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("reading settings: %w", err)
	}
	for i, p := range DefaultPrompts {
		if _, err := tx.ExecContext(ctx, `INSERT INTO prompts (text, position) VALUES (?, ?)`, p, i); err != nil {
			return fmt.Errorf("seeding prompts: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES ('prompts_seeded', '1')`); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return tx.Commit()
}
