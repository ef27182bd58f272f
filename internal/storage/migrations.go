package storage

import (
	"database/sql"
	"fmt"
)

// runMigrations applies additive schema changes on top of whatever CoreSchema
// already left in place. Safe to call on every open: every step first
// inspects column/table metadata before acting, so it is a no-op against a
// database that is already current.
func runMigrations(db *sql.DB) error {
	if err := migrateLedgerCompositeKey(db); err != nil {
		return fmt.Errorf("migrate idempotency_ledger: %w", err)
	}
	return nil
}

// migrateLedgerCompositeKey rebuilds a legacy single-column-PK ledger table
// (PRIMARY KEY(key)) into the composite PRIMARY KEY(key, operation, scope_key)
// shape. SQLite cannot ALTER a table's primary key, so this rebuilds the
// table as new within one transaction, assigning the reserved global
// sentinel to every pre-existing row (legacy rows predate scopes).
func migrateLedgerCompositeKey(db *sql.DB) error {
	exists, err := tableExists(db, "idempotency_ledger")
	if err != nil || !exists {
		return err
	}

	hasScopeKey, err := columnExists(db, "idempotency_ledger", "scope_key")
	if err != nil {
		return err
	}
	if hasScopeKey {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`ALTER TABLE idempotency_ledger RENAME TO idempotency_ledger_old`); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		CREATE TABLE idempotency_ledger (
			key TEXT NOT NULL,
			operation TEXT NOT NULL,
			scope_key TEXT NOT NULL,
			result_json TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (key, operation, scope_key)
		)
	`); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		INSERT INTO idempotency_ledger (key, operation, scope_key, result_json, created_at)
		SELECT key, operation, ?, result_json, created_at FROM idempotency_ledger_old
	`, GlobalScopeSentinel); err != nil {
		return err
	}
	if _, err := tx.Exec(`DROP TABLE idempotency_ledger_old`); err != nil {
		return err
	}
	return tx.Commit()
}

func tableExists(db *sql.DB, name string) (bool, error) {
	var n string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var cid, notnull, pk int
		var name, ctype string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
