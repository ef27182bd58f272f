// Package storage is the durable home for memories, the idempotency ledger,
// and metric events: a single SQLite file opened in write-ahead-logging
// mode, with an FTS5 index kept synchronized by triggers.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/engram/engram/internal/logging"
)

var log = logging.GetLogger("storage")

// GlobalScopeSentinel is the idempotency ledger's scope discriminator used
// when a memory has no scope_id, or when the scopes feature flag is off.
const GlobalScopeSentinel = "__global__"

// Database wraps a single SQLite connection pool opened against one file.
// Writers are serialized to a single connection (SetMaxOpenConns(1)); WAL
// mode lets readers proceed concurrently with an in-flight writer.
type Database struct {
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) the database at path, applies the core
// schema and FTS index idempotently, and runs any pending additive
// migrations.
func Open(path string) (*Database, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	d := &Database{db: sqlDB, path: path}

	if err := d.initSchema(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	log.Info("database opened", "path", path)
	return d, nil
}

func (d *Database) initSchema() error {
	if _, err := d.db.Exec(CoreSchema); err != nil {
		return fmt.Errorf("apply core schema: %w", err)
	}
	if _, err := d.db.Exec(FTS5Schema); err != nil {
		return fmt.Errorf("apply fts schema: %w", err)
	}
	if err := runMigrations(d.db); err != nil {
		return err
	}
	return nil
}

// Close closes the underlying connection pool.
func (d *Database) Close() error {
	return d.db.Close()
}

// Path returns the path this database was opened against.
func (d *Database) Path() string {
	return d.path
}

// DB exposes the underlying *sql.DB for callers (such as tests) that need
// raw query access beyond this package's CRUD surface.
func (d *Database) DB() *sql.DB {
	return d.db
}
