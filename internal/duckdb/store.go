// Package duckdb persists clustering results.
// Whole runs are cached as snappy-compressed gob envelopes (fast, pure Go).
// Components are exported to DuckDB (queryable by transcript name).
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection holding the components table.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database path, empty for an in-memory database.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
// One row per transcript; coordinates are genomic (forward strand).
func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS components (
		key VARCHAR,
		component INTEGER,
		member INTEGER,
		name VARCHAR,
		chrom VARCHAR,
		strand VARCHAR,
		tx_start BIGINT,
		tx_end BIGINT,
		cds_start BIGINT,
		cds_end BIGINT,
		exon_count INTEGER,
		color VARCHAR,
		role VARCHAR,
		line VARCHAR,
		PRIMARY KEY (key, component, member)
	)`)
	return err
}
