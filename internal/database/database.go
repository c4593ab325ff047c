// Package database keeps the history of pipeline runs in SQLite: what was
// loaded, the aggregate means that came out of it and the tallies.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	conn   *sql.DB
	path   string
	logger *zap.Logger
}

// Option configures Open.
type Option func(*DB)

// WithLogger sets the logger used for migration messages.
func WithLogger(l *zap.Logger) Option {
	return func(db *DB) {
		if l != nil {
			db.logger = l
		}
	}
}

// Open creates or opens a SQLite database at the given path.
func Open(dbPath string, opts ...Option) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// PRAGMAs below are per connection.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, path: dbPath, logger: zap.NewNop()}
	for _, o := range opts {
		o(db)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := migrate(conn, db.logger); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}
