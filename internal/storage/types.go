package storage

import "time"

// Memory is the primary persisted entity: a single piece of text with
// lifecycle, optional scope, and an optional embedding vector.
type Memory struct {
	ID             string
	Content        string
	Category       string // usually one of {decision, pattern, fact, preference, insight}, or empty; not validated
	ScopeID        string
	ChatID         string
	ThreadID       string
	TaskID         string
	Metadata       string // opaque caller-defined blob, stored verbatim
	IdempotencyKey string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastAccessed   time.Time
	AccessCount    int
	Strength       float64
	Embedding      []float32 // nil if absent
}

// ContentUpdate is a full replace of content/category/metadata/embedding.
// Omitted (nil) optional fields become null/empty on the stored row.
type ContentUpdate struct {
	Content   string
	Category  string
	Metadata  string
	Embedding []float32
}

// ScopeGuard constrains delete-by-id.
type ScopeGuard struct {
	Mode    ScopeGuardMode
	ScopeID string
}

type ScopeGuardMode int

const (
	// ScopeAny matches by id alone.
	ScopeAny ScopeGuardMode = iota
	// ScopeUnscoped matches id AND scope_id IS NULL.
	ScopeUnscoped
	// ScopeExact matches id AND scope_id = ScopeID.
	ScopeExact
)

// Filters constrains reads by the four independent isolation dimensions.
// Empty string means "not constrained" for that column.
type Filters struct {
	ScopeID  string
	ChatID   string
	ThreadID string
	TaskID   string
	Category string
}

// SearchResult pairs a Memory with its raw relevance signal from the search
// path that produced it (FTS rank; 0 for the recency listing).
type SearchResult struct {
	Memory *Memory
	Rank   float64 // raw bm25 rank for FTS (<=0, lower is better), or 0 for the recency listing
}

// MetricEvent is an append-only observability record.
type MetricEvent struct {
	ID          int64
	Timestamp   time.Time
	SessionID   string
	Kind        MetricKind
	MemoryID    string
	Query       string
	ResultCount int
	Fallback    bool
}

type MetricKind string

const (
	MetricRemember MetricKind = "remember"
	MetricRecall   MetricKind = "recall"
	MetricForget   MetricKind = "forget"
	MetricUpsert   MetricKind = "upsert"
)

// MetricsSummary aggregates metric events for a session (or globally).
type MetricsSummary struct {
	TotalRemembers int
	TotalRecalls   int
	RecallHitRate  float64
	FallbackRate   float64
}
