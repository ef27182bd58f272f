package storage

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// openLegacyLedgerDB opens a fresh sqlite file with the core schema applied
// but with idempotency_ledger in its pre-scopes, single-column-PK shape, so
// migrateLedgerCompositeKey has a real rebuild to do.
func openLegacyLedgerDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "legacy.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open legacy db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(`
		CREATE TABLE memories (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			category TEXT,
			scope_id TEXT,
			chat_id TEXT,
			thread_id TEXT,
			task_id TEXT,
			metadata TEXT,
			idempotency_key TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			last_accessed TEXT NOT NULL,
			access_count INTEGER NOT NULL DEFAULT 1,
			strength REAL NOT NULL DEFAULT 1.0,
			embedding BLOB
		)
	`); err != nil {
		t.Fatalf("create legacy memories table: %v", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE idempotency_ledger (
			key TEXT PRIMARY KEY,
			operation TEXT NOT NULL,
			result_json TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		t.Fatalf("create legacy idempotency_ledger table: %v", err)
	}
	if _, err := db.Exec(`
		INSERT INTO idempotency_ledger (key, operation, result_json, created_at)
		VALUES (?, ?, ?, ?)
	`, "client-key-1", "remember", `{"id":"mem-1","status":"created"}`, "2026-01-01T00:00:00Z"); err != nil {
		t.Fatalf("seed legacy ledger row: %v", err)
	}
	return db
}

func TestMigrateLedgerCompositeKeyRebuildsLegacyTable(t *testing.T) {
	db := openLegacyLedgerDB(t)

	if err := runMigrations(db); err != nil {
		t.Fatalf("runMigrations returned error: %v", err)
	}

	hasScopeKey, err := columnExists(db, "idempotency_ledger", "scope_key")
	if err != nil {
		t.Fatalf("columnExists: %v", err)
	}
	if !hasScopeKey {
		t.Fatal("expected idempotency_ledger to have a scope_key column after migration")
	}

	oldExists, err := tableExists(db, "idempotency_ledger_old")
	if err != nil {
		t.Fatalf("tableExists: %v", err)
	}
	if oldExists {
		t.Error("expected idempotency_ledger_old to be dropped after migration")
	}

	var scopeKey, resultJSON string
	err = db.QueryRow(`
		SELECT scope_key, result_json FROM idempotency_ledger WHERE key = ? AND operation = ?
	`, "client-key-1", "remember").Scan(&scopeKey, &resultJSON)
	if err != nil {
		t.Fatalf("query migrated row: %v", err)
	}
	if scopeKey != GlobalScopeSentinel {
		t.Errorf("expected legacy row's scope_key to be %q, got %q", GlobalScopeSentinel, scopeKey)
	}
	if resultJSON != `{"id":"mem-1","status":"created"}` {
		t.Errorf("expected result_json preserved verbatim, got %q", resultJSON)
	}
}

func TestMigrateLedgerCompositeKeyIsIdempotent(t *testing.T) {
	db := openLegacyLedgerDB(t)

	if err := runMigrations(db); err != nil {
		t.Fatalf("first runMigrations: %v", err)
	}
	if err := runMigrations(db); err != nil {
		t.Fatalf("second runMigrations should be a no-op, got error: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM idempotency_ledger`).Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Errorf("expected exactly 1 row to survive two migration runs, got %d", count)
	}
}

func TestMigrateLedgerCompositeKeyNoopWithoutLegacyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open fresh db: %v", err)
	}
	defer db.Close()

	if err := migrateLedgerCompositeKey(db); err != nil {
		t.Fatalf("expected no error when idempotency_ledger does not exist yet, got: %v", err)
	}
}

func TestOpenAppliesMigrationsOnFreshDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engram.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()

	hasScopeKey, err := columnExists(d.db, "idempotency_ledger", "scope_key")
	if err != nil {
		t.Fatalf("columnExists: %v", err)
	}
	if !hasScopeKey {
		t.Error("expected a freshly opened database to already have the composite-key shape")
	}
}
