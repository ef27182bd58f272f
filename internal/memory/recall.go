package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/engram/engram/internal/embedding"
	"github.com/engram/engram/internal/storage"
)

// RecallInput is the input to Recall. Limit defaults to 10, MinStrength to
// 0.1.
type RecallInput struct {
	Query       string
	Limit       int
	Category    string
	MinStrength *float64
	SessionID   string
	ScopeID     string
	ChatID      string
	ThreadID    string
	TaskID      string
}

// RecallResult is one ranked memory returned from Recall.
type RecallResult struct {
	ID           string
	Content      string
	Category     string
	Strength     float64 // effective strength at query time
	Relevance    float64
	CreatedAt    time.Time
	AccessCount  int
	lastAccessed time.Time // used only to break sort ties, not surfaced on the wire
}

// RecallOutput is the full response to a recall call.
type RecallOutput struct {
	Results      []RecallResult
	FallbackMode bool
}

const (
	defaultRecallLimit = 10
	defaultMinStrength = 0.1
)

// Recall runs the retrieval pipeline: empty-query recent-mode, else semantic
// mode with a cosine similarity ranking, falling through to FTS when there is
// no embedder or no embedded candidate. Every returned memory's access is
// updated; memories considered but not returned are left untouched.
func (s *Service) Recall(ctx context.Context, in RecallInput) (*RecallOutput, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = defaultRecallLimit
	}
	minStrength := defaultMinStrength
	if in.MinStrength != nil {
		minStrength = *in.MinStrength
	}
	filters := storage.Filters{
		ScopeID:  in.ScopeID,
		ChatID:   in.ChatID,
		ThreadID: in.ThreadID,
		TaskID:   in.TaskID,
		Category: in.Category,
	}

	query := strings.TrimSpace(in.Query)
	now := time.Now().UTC()

	var (
		out      []RecallResult
		fallback bool
		err      error
	)

	switch {
	case query == "":
		out, err = s.recallRecent(limit, minStrength, filters, now)
		fallback = true
	default:
		out, fallback, err = s.recallSemanticOrFTS(ctx, query, limit, minStrength, filters, now)
	}
	if err != nil {
		return nil, err
	}

	for _, r := range out {
		if err := s.db.UpdateAccess(r.ID, s.cfg.AccessBoostStrength); err != nil {
			return nil, wrapError(StorageError, err, "update access for %s", r.ID)
		}
	}

	if err := s.db.LogMetric(storage.MetricEvent{
		Timestamp:   now,
		SessionID:   in.SessionID,
		Kind:        storage.MetricRecall,
		Query:       in.Query,
		ResultCount: len(out),
		Fallback:    fallback,
	}); err != nil {
		log.Warn("failed to log recall metric", "error", err)
	}

	return &RecallOutput{Results: out, FallbackMode: fallback}, nil
}

// recallRecent implements step 1: the empty-query recent-mode path.
func (s *Service) recallRecent(limit int, minStrength float64, filters storage.Filters, now time.Time) ([]RecallResult, error) {
	hits, err := s.db.SearchFTS("", limit*2, filters)
	if err != nil {
		return nil, wrapError(StorageError, err, "search recent memories")
	}
	results := make([]RecallResult, 0, len(hits))
	for _, h := range hits {
		eff := s.effectiveStrength(h.Memory, now)
		if eff < minStrength {
			continue
		}
		results = append(results, toRecallResult(h.Memory, eff, eff))
	}
	sortByThenTie(results, func(r RecallResult) float64 { return r.Strength })
	return truncate(results, limit), nil
}

// recallSemanticOrFTS runs semantic mode when an embedder and embedded
// candidates are available, else falls through to FTS.
func (s *Service) recallSemanticOrFTS(ctx context.Context, query string, limit int, minStrength float64, filters storage.Filters, now time.Time) ([]RecallResult, bool, error) {
	candidates, err := s.db.GetWithEmbeddings(filters)
	if err != nil {
		return nil, false, wrapError(StorageError, err, "load embedded candidates")
	}
	if len(candidates) == 0 {
		out, err := s.recallFTS(query, limit, minStrength, filters, now)
		return out, false, err
	}

	qv, err := embedding.Embed(ctx, s.embeddingConfig(), query)
	if err != nil {
		log.Warn("embedding failed, falling back to full-text search", "error", err)
		out, err := s.recallFTS(query, limit, minStrength, filters, now)
		return out, false, err
	}

	results := make([]RecallResult, 0, len(candidates))
	for _, m := range candidates {
		if len(m.Embedding) != len(qv) {
			// Dimension mismatch after an embedding-model change: treat this
			// row as if it had no embedding rather than comparing vectors
			// from different spaces.
			continue
		}
		sim := float64(embedding.Cosine(qv, m.Embedding))
		eff := s.effectiveStrength(m, now)
		if eff < minStrength {
			continue
		}
		results = append(results, toRecallResult(m, eff, sim))
	}
	sortByThenTie(results, func(r RecallResult) float64 { return r.Relevance })
	return truncate(results, limit), false, nil
}

// recallFTS implements step 4: the full-text-search fallback path.
func (s *Service) recallFTS(query string, limit int, minStrength float64, filters storage.Filters, now time.Time) ([]RecallResult, error) {
	hits, err := s.db.SearchFTS(query, limit*2, filters)
	if err != nil {
		return nil, wrapError(StorageError, err, "search full text")
	}
	results := make([]RecallResult, 0, len(hits))
	for _, h := range hits {
		eff := s.effectiveStrength(h.Memory, now)
		if eff < minStrength {
			continue
		}
		// FTS ranks are <= 0 (more negative = better match); negate so
		// relevance keeps the "higher is better" convention used everywhere
		// else in this package.
		relevance := -h.Rank
		results = append(results, toRecallResult(h.Memory, eff, relevance))
	}
	sortByThenTie(results, func(r RecallResult) float64 { return r.Relevance })
	return truncate(results, limit), nil
}

func toRecallResult(m *storage.Memory, effectiveStrength, relevance float64) RecallResult {
	return RecallResult{
		ID:           m.ID,
		Content:      m.Content,
		Category:     m.Category,
		Strength:     effectiveStrength,
		Relevance:    relevance,
		CreatedAt:    m.CreatedAt,
		AccessCount:  m.AccessCount,
		lastAccessed: m.LastAccessed,
	}
}

// sortByThenTie sorts results descending by key, breaking ties by
// last_accessed DESC and then by id.
func sortByThenTie(results []RecallResult, key func(RecallResult) float64) {
	sort.SliceStable(results, func(i, j int) bool {
		ki, kj := key(results[i]), key(results[j])
		if ki != kj {
			return ki > kj
		}
		if !results[i].lastAccessed.Equal(results[j].lastAccessed) {
			return results[i].lastAccessed.After(results[j].lastAccessed)
		}
		return results[i].ID < results[j].ID
	})
}

func truncate(results []RecallResult, limit int) []RecallResult {
	if len(results) > limit {
		return results[:limit]
	}
	return results
}
