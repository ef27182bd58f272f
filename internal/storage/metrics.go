package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// LogMetric appends one observability event. Metrics are append-only and
// independent of one another.
func (d *Database) LogMetric(e MetricEvent) error {
	fallback := 0
	if e.Fallback {
		fallback = 1
	}
	_, err := d.db.Exec(`
		INSERT INTO metric_events (timestamp, session_id, kind, memory_id, query, result_count, fallback)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, formatTime(time.Now().UTC()), nullString(e.SessionID), string(e.Kind),
		nullString(e.MemoryID), nullString(e.Query), e.ResultCount, fallback)
	if err != nil {
		return fmt.Errorf("log metric: %w", err)
	}
	return nil
}

// MetricsSummary aggregates events for a session, or globally when session
// is empty. Zero-denominator rates report as 0, not NaN.
func (d *Database) MetricsSummary(session string) (*MetricsSummary, error) {
	var args []any
	sessionFilter := ""
	if session != "" {
		sessionFilter = " AND session_id = ?"
		args = append(args, session)
	}

	summary := &MetricsSummary{}

	row := d.db.QueryRow(`SELECT COUNT(*) FROM metric_events WHERE kind = 'remember'`+sessionFilter, args...)
	if err := row.Scan(&summary.TotalRemembers); err != nil {
		return nil, fmt.Errorf("count remembers: %w", err)
	}

	var totalRecalls, hits, fallbacks int
	row = d.db.QueryRow(`SELECT COUNT(*) FROM metric_events WHERE kind = 'recall'`+sessionFilter, args...)
	if err := row.Scan(&totalRecalls); err != nil {
		return nil, fmt.Errorf("count recalls: %w", err)
	}
	row = d.db.QueryRow(`SELECT COUNT(*) FROM metric_events WHERE kind = 'recall' AND result_count > 0`+sessionFilter, args...)
	if err := row.Scan(&hits); err != nil {
		return nil, fmt.Errorf("count recall hits: %w", err)
	}
	row = d.db.QueryRow(`SELECT COUNT(*) FROM metric_events WHERE kind = 'recall' AND fallback = 1`+sessionFilter, args...)
	if err := row.Scan(&fallbacks); err != nil {
		return nil, fmt.Errorf("count recall fallbacks: %w", err)
	}

	summary.TotalRecalls = totalRecalls
	if totalRecalls > 0 {
		summary.RecallHitRate = float64(hits) / float64(totalRecalls)
		summary.FallbackRate = float64(fallbacks) / float64(totalRecalls)
	}
	return summary, nil
}

// Stats reports basic table counts, surfaced by the `stats` CLI command.
type Stats struct {
	MemoryCount int
}

// GetStats returns table-level row counts.
func (d *Database) GetStats() (*Stats, error) {
	var s Stats
	err := d.db.QueryRow(`SELECT COUNT(*) FROM memories`).Scan(&s.MemoryCount)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return &s, nil
}
