// Package storage is the engine's system of record: normalized transaction
// and invoice records handed over by ingestion, plus run history, correction
// audit rows, and the single-writer lease.
package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// pageSize bounds each bulk read; full datasets are accumulated page by
// page and held in memory for the run.
const pageSize = 1000

// Store provides SQLite database access. It implements Repository.
type Store struct {
	db *sql.DB
}

// Compile-time check that Store implements Repository
var _ Repository = (*Store)(nil)

// NewStore opens (or creates) the SQLite database and applies pending
// migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}

	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
