package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/engram/engram/internal/embedding"
)

// CreateMemory inserts a new row, assigning id and timestamps if unset.
// Unset (zero) timestamps become now, a zero access_count becomes 1 and a
// zero strength becomes 1.0; values already set are stored as given.
func (d *Database) CreateMemory(m *Memory) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}
	if m.LastAccessed.IsZero() {
		m.LastAccessed = m.CreatedAt
	}
	if m.AccessCount == 0 {
		m.AccessCount = 1
	}
	if m.Strength == 0 {
		m.Strength = 1.0
	}

	blob, err := embedding.ToBlob(m.Embedding)
	if err != nil {
		return fmt.Errorf("encode embedding: %w", err)
	}

	_, err = d.db.Exec(`
		INSERT INTO memories (
			id, content, category, scope_id, chat_id, thread_id, task_id,
			metadata, idempotency_key, created_at, updated_at, last_accessed,
			access_count, strength, embedding
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.ID, m.Content, nullString(m.Category), nullString(m.ScopeID),
		nullString(m.ChatID), nullString(m.ThreadID), nullString(m.TaskID),
		nullString(m.Metadata), nullString(m.IdempotencyKey),
		formatTime(m.CreatedAt), formatTime(m.UpdatedAt), formatTime(m.LastAccessed),
		m.AccessCount, m.Strength, blob,
	)
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

// GetMemory fetches a memory by id. Returns (nil, nil) if not found.
func (d *Database) GetMemory(id string) (*Memory, error) {
	row := d.db.QueryRow(`
		SELECT id, content, category, scope_id, chat_id, thread_id, task_id,
		       metadata, idempotency_key, created_at, updated_at, last_accessed,
		       access_count, strength, embedding
		FROM memories WHERE id = ?
	`, id)

	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get memory: %w", err)
	}
	return m, nil
}

// FindByIdempotencyKey looks up a memory row by (idempotency_key, scope_id).
// scopeID empty means "unscoped" (scope_id IS NULL).
func (d *Database) FindByIdempotencyKey(key, scopeID string) (*Memory, error) {
	var row *sql.Row
	if scopeID == "" {
		row = d.db.QueryRow(`
			SELECT id, content, category, scope_id, chat_id, thread_id, task_id,
			       metadata, idempotency_key, created_at, updated_at, last_accessed,
			       access_count, strength, embedding
			FROM memories WHERE idempotency_key = ? AND scope_id IS NULL
		`, key)
	} else {
		row = d.db.QueryRow(`
			SELECT id, content, category, scope_id, chat_id, thread_id, task_id,
			       metadata, idempotency_key, created_at, updated_at, last_accessed,
			       access_count, strength, embedding
			FROM memories WHERE idempotency_key = ? AND scope_id = ?
		`, key, scopeID)
	}

	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by idempotency key: %w", err)
	}
	return m, nil
}

// UpdateMemoryContent fully replaces content/category/metadata/embedding and
// refreshes updated_at. Every other column (id, created_at, access_count,
// strength, scope fields) is preserved untouched.
func (d *Database) UpdateMemoryContent(id string, u ContentUpdate) error {
	blob, err := embedding.ToBlob(u.Embedding)
	if err != nil {
		return fmt.Errorf("encode embedding: %w", err)
	}

	res, err := d.db.Exec(`
		UPDATE memories
		SET content = ?, category = ?, metadata = ?, embedding = ?, updated_at = ?
		WHERE id = ?
	`, u.Content, nullString(u.Category), nullString(u.Metadata), blob, formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("update memory content: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("memory %s not found", id)
	}
	return nil
}

// DeleteMemory removes a memory subject to the given scope guard. Returns
// whether a row was actually deleted.
func (d *Database) DeleteMemory(id string, guard ScopeGuard) (bool, error) {
	var res sql.Result
	var err error

	switch guard.Mode {
	case ScopeAny:
		res, err = d.db.Exec(`DELETE FROM memories WHERE id = ?`, id)
	case ScopeUnscoped:
		res, err = d.db.Exec(`DELETE FROM memories WHERE id = ? AND scope_id IS NULL`, id)
	case ScopeExact:
		res, err = d.db.Exec(`DELETE FROM memories WHERE id = ? AND scope_id = ?`, id, guard.ScopeID)
	default:
		return false, fmt.Errorf("unknown scope guard mode %v", guard.Mode)
	}
	if err != nil {
		return false, fmt.Errorf("delete memory: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateAccess records a recall hit: resets strength to boost, bumps
// last_accessed to now, and increments access_count by one.
func (d *Database) UpdateAccess(id string, accessBoostStrength float64) error {
	_, err := d.db.Exec(`
		UPDATE memories
		SET last_accessed = ?, strength = ?, access_count = access_count + 1
		WHERE id = ?
	`, formatTime(time.Now().UTC()), accessBoostStrength, id)
	if err != nil {
		return fmt.Errorf("update access: %w", err)
	}
	return nil
}

// GetWithEmbeddings returns every memory with a non-null embedding,
// honoring scope filters (AND-combined).
func (d *Database) GetWithEmbeddings(filters Filters) ([]*Memory, error) {
	query, args := buildFilteredQuery(`
		SELECT id, content, category, scope_id, chat_id, thread_id, task_id,
		       metadata, idempotency_key, created_at, updated_at, last_accessed,
		       access_count, strength, embedding
		FROM memories
		WHERE embedding IS NOT NULL
	`, filters)

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("get with embeddings: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

// GetForDecay returns every memory, for maintenance paths that recompute
// decay across the whole store (the `decay` command).
func (d *Database) GetForDecay() ([]*Memory, error) {
	rows, err := d.db.Query(`
		SELECT id, content, category, scope_id, chat_id, thread_id, task_id,
		       metadata, idempotency_key, created_at, updated_at, last_accessed,
		       access_count, strength, embedding
		FROM memories
	`)
	if err != nil {
		return nil, fmt.Errorf("get for decay: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

// PruneBelowStrength deletes every memory whose *stored* (not effective)
// strength is below threshold. Callers that want decay-aware pruning should
// persist decayed strengths first (via the decay maintenance path).
func (d *Database) PruneBelowStrength(threshold float64) (int, error) {
	res, err := d.db.Exec(`DELETE FROM memories WHERE strength < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("prune below strength: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// SetStrength persists a recomputed strength value for a single memory,
// without touching last_accessed or access_count. Used only by the
// maintenance `decay` command, never by recall.
func (d *Database) SetStrength(id string, strength float64) error {
	_, err := d.db.Exec(`UPDATE memories SET strength = ? WHERE id = ?`, strength, id)
	return err
}

func buildFilteredQuery(base string, f Filters) (string, []any) {
	query := base
	var args []any
	if f.ScopeID != "" {
		query += ` AND scope_id = ?`
		args = append(args, f.ScopeID)
	}
	if f.ChatID != "" {
		query += ` AND chat_id = ?`
		args = append(args, f.ChatID)
	}
	if f.ThreadID != "" {
		query += ` AND thread_id = ?`
		args = append(args, f.ThreadID)
	}
	if f.TaskID != "" {
		query += ` AND task_id = ?`
		args = append(args, f.TaskID)
	}
	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	return query, args
}

func scanMemory(row *sql.Row) (*Memory, error) {
	var m Memory
	var category, scopeID, chatID, threadID, taskID, metadata, idempotencyKey sql.NullString
	var createdAt, updatedAt, lastAccessed string
	var blob []byte

	err := row.Scan(&m.ID, &m.Content, &category, &scopeID, &chatID, &threadID,
		&taskID, &metadata, &idempotencyKey, &createdAt, &updatedAt, &lastAccessed,
		&m.AccessCount, &m.Strength, &blob)
	if err != nil {
		return nil, err
	}
	return finishScan(&m, category, scopeID, chatID, threadID, taskID, metadata, idempotencyKey, createdAt, updatedAt, lastAccessed, blob)
}

func scanMemories(rows *sql.Rows) ([]*Memory, error) {
	var out []*Memory
	for rows.Next() {
		var m Memory
		var category, scopeID, chatID, threadID, taskID, metadata, idempotencyKey sql.NullString
		var createdAt, updatedAt, lastAccessed string
		var blob []byte

		err := rows.Scan(&m.ID, &m.Content, &category, &scopeID, &chatID, &threadID,
			&taskID, &metadata, &idempotencyKey, &createdAt, &updatedAt, &lastAccessed,
			&m.AccessCount, &m.Strength, &blob)
		if err != nil {
			return nil, err
		}
		mm, err := finishScan(&m, category, scopeID, chatID, threadID, taskID, metadata, idempotencyKey, createdAt, updatedAt, lastAccessed, blob)
		if err != nil {
			return nil, err
		}
		out = append(out, mm)
	}
	return out, rows.Err()
}

func finishScan(m *Memory, category, scopeID, chatID, threadID, taskID, metadata, idempotencyKey sql.NullString, createdAt, updatedAt, lastAccessed string, blob []byte) (*Memory, error) {
	m.Category = category.String
	m.ScopeID = scopeID.String
	m.ChatID = chatID.String
	m.ThreadID = threadID.String
	m.TaskID = taskID.String
	m.Metadata = metadata.String
	m.IdempotencyKey = idempotencyKey.String

	var err error
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if m.LastAccessed, err = parseTime(lastAccessed); err != nil {
		return nil, err
	}

	if len(blob) > 0 {
		vec, err := embedding.FromBlob(blob)
		if err != nil {
			// An embedding that fails to decode (a malformed blob length) is
			// treated as absent: fall through to FTS for this row rather than
			// erroring the whole query.
			m.Embedding = nil
		} else {
			m.Embedding = vec
		}
	}
	return m, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
