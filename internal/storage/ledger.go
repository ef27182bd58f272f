package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// LedgerEntry is the decoded result row from SaveLedger/GetLedger — the
// (key, operation, scope_key) triple plus the serialized payload it maps to.
type LedgerEntry struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ScopeKey derives the idempotency ledger's scope discriminator: the literal
// scope id when scopes are effectively enabled and provided, else the
// reserved global sentinel.
func ScopeKey(scopeID string) string {
	if scopeID == "" {
		return GlobalScopeSentinel
	}
	return scopeID
}

// SaveLedger upserts a ledger row for (key, operation, scopeKey).
func (d *Database) SaveLedger(key, operation, scopeKey string, entry LedgerEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode ledger payload: %w", err)
	}
	_, err = d.db.Exec(`
		INSERT INTO idempotency_ledger (key, operation, scope_key, result_json, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key, operation, scope_key) DO UPDATE SET
			result_json = excluded.result_json
	`, key, operation, scopeKey, string(payload), formatTime(time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

// GetLedger looks up a cached result for (key, operation, scopeKey). Returns
// (nil, nil) if there is no row. A JSON parse failure is a CorruptLedger
// condition: it is returned as an error, not silently treated as absent,
// except at the call sites that explicitly want "corrupt == no cached
// result" semantics (see internal/memory).
func (d *Database) GetLedger(key, operation, scopeKey string) (*LedgerEntry, error) {
	var payload string
	err := d.db.QueryRow(`
		SELECT result_json FROM idempotency_ledger WHERE key = ? AND operation = ? AND scope_key = ?
	`, key, operation, scopeKey).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ledger: %w", err)
	}

	var entry LedgerEntry
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		return nil, fmt.Errorf("corrupt ledger entry for %s/%s/%s: %w", key, operation, scopeKey, err)
	}
	return &entry, nil
}
