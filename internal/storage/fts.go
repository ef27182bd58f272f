package storage

import (
	"database/sql"
	"fmt"
	"strings"
)

// SearchFTS runs a full-text search over memories.content via the memories_fts
// index, ranked by SQLite's bm25() function (lower is better). An empty or
// whitespace-only query returns the most recent/strongest memories instead,
// as a synthetic rank-0 result set — this is the storage layer's contribution
// to recall's recent-mode branch.
func (d *Database) SearchFTS(query string, limit int, filters Filters) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return d.recentResults(limit, filters)
	}

	base := `
		SELECT m.id, m.content, m.category, m.scope_id, m.chat_id, m.thread_id, m.task_id,
		       m.metadata, m.idempotency_key, m.created_at, m.updated_at, m.last_accessed,
		       m.access_count, m.strength, m.embedding, bm25(memories_fts) AS rank
		FROM memories_fts
		JOIN memories m ON m.rowid = memories_fts.rowid
		WHERE memories_fts MATCH ?
	`
	filterSQL, filterArgs := buildFilteredQueryAliased(filters, "m")
	sqlText := base + filterSQL + ` ORDER BY rank LIMIT ?`

	args := append([]any{escapeFTS5Query(query)}, filterArgs...)
	args = append(args, limit)

	rows, err := d.db.Query(sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("search fts: %w", err)
	}
	defer rows.Close()
	return scanSearchResults(rows)
}

func (d *Database) recentResults(limit int, filters Filters) ([]SearchResult, error) {
	base := `
		SELECT id, content, category, scope_id, chat_id, thread_id, task_id,
		       metadata, idempotency_key, created_at, updated_at, last_accessed,
		       access_count, strength, embedding
		FROM memories WHERE 1=1
	`
	filterSQL, args := buildFilteredQuery(base, filters)
	filterSQL += ` ORDER BY strength DESC, last_accessed DESC LIMIT ?`
	args = append(args, limit)

	rows, err := d.db.Query(filterSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("recent results: %w", err)
	}
	defer rows.Close()

	memories, err := scanMemories(rows)
	if err != nil {
		return nil, err
	}
	out := make([]SearchResult, len(memories))
	for i, m := range memories {
		out[i] = SearchResult{Memory: m, Rank: 0}
	}
	return out, nil
}

// buildFilteredQueryAliased builds the same AND-combined filter clause as
// buildFilteredQuery, but qualifying columns with a table alias for use in
// joined queries.
func buildFilteredQueryAliased(f Filters, alias string) (string, []any) {
	var sb strings.Builder
	var args []any
	add := func(col, val string) {
		sb.WriteString(fmt.Sprintf(" AND %s.%s = ?", alias, col))
		args = append(args, val)
	}
	if f.ScopeID != "" {
		add("scope_id", f.ScopeID)
	}
	if f.ChatID != "" {
		add("chat_id", f.ChatID)
	}
	if f.ThreadID != "" {
		add("thread_id", f.ThreadID)
	}
	if f.TaskID != "" {
		add("task_id", f.TaskID)
	}
	if f.Category != "" {
		add("category", f.Category)
	}
	return sb.String(), args
}

// escapeFTS5Query turns free-form user text into a safe FTS5 MATCH
// expression: each whitespace-separated token is quoted (escaping embedded
// quotes) and OR'd together, so punctuation in the query text can never be
// misread as FTS5 query syntax.
func escapeFTS5Query(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return `""`
	}
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " OR ")
}

func scanSearchResults(rows *sql.Rows) ([]SearchResult, error) {
	var out []SearchResult
	for rows.Next() {
		var m Memory
		var category, scopeID, chatID, threadID, taskID, metadata, idempotencyKey sql.NullString
		var createdAt, updatedAt, lastAccessed string
		var blob []byte
		var rank float64

		err := rows.Scan(&m.ID, &m.Content, &category, &scopeID, &chatID, &threadID,
			&taskID, &metadata, &idempotencyKey, &createdAt, &updatedAt, &lastAccessed,
			&m.AccessCount, &m.Strength, &blob, &rank)
		if err != nil {
			return nil, err
		}
		mm, err := finishScan(&m, category, scopeID, chatID, threadID, taskID, metadata, idempotencyKey, createdAt, updatedAt, lastAccessed, blob)
		if err != nil {
			return nil, err
		}
		out = append(out, SearchResult{Memory: mm, Rank: rank})
	}
	return out, rows.Err()
}
