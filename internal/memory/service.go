// Package memory is the memory core: retrieval, write, delete, and the
// capability gate, wired to storage and the embedding adapter. Everything a
// transport needs to implement remember/recall/forget/capabilities lives
// here; transports stay thin dispatchers on top of this package.
package memory

import (
	"context"
	"time"

	"github.com/engram/engram/internal/config"
	"github.com/engram/engram/internal/decay"
	"github.com/engram/engram/internal/embedding"
	"github.com/engram/engram/internal/logging"
	"github.com/engram/engram/internal/storage"
)

var log = logging.GetLogger("memory")

// Service is the memory core: storage, the embedding adapter, and the
// feature flags that govern scopes/idempotency/context-hydration.
type Service struct {
	db  *storage.Database
	cfg *config.Config
}

// NewService wires storage and configuration into a ready-to-use Service.
// The embedding adapter itself is not owned here — it is process-wide and
// reached through internal/embedding's package-level registry, consistent
// with "first call wins, concurrent callers share the in-flight init".
func NewService(db *storage.Database, cfg *config.Config) *Service {
	return &Service{db: db, cfg: cfg}
}

func (s *Service) embeddingConfig() embedding.Config {
	return embedding.Config{
		BaseURL: s.cfg.EmbeddingBaseURL,
		Model:   s.cfg.EmbeddingModel,
	}
}

// embedBestEffort embeds text, returning nil instead of an error on any
// embedding failure — callers store or query without a vector and fall
// through to FTS. EmbeddingUnavailable is logged, never propagated: an
// embedding failure is never fatal to a write or a read.
func (s *Service) embedBestEffort(ctx context.Context, text string) []float32 {
	v, err := embedding.Embed(ctx, s.embeddingConfig(), text)
	if err != nil {
		log.Warn("embedding unavailable, continuing without vector", "error", err)
		return nil
	}
	return v
}

// effectiveStrength computes decay- and access-adjusted strength for m at
// the instant now, using the service's configured decay rate. It never
// mutates m or the store — see internal/decay's doc comment on why decay is
// computed fresh on every read.
func (s *Service) effectiveStrength(m *storage.Memory, now time.Time) float64 {
	return decay.EffectiveStrength(m.Strength, m.LastAccessed, m.AccessCount, now, s.cfg.DecayRate)
}

// scopeDiscriminator returns the idempotency-ledger scope key for scopeID,
// honoring the scopes feature flag: when scopes are disabled the ledger
// always uses the global sentinel, regardless of what the caller passed.
func (s *Service) scopeDiscriminator(scopeID string) string {
	if !s.cfg.EnableScopes {
		return storage.ScopeKey("")
	}
	return storage.ScopeKey(scopeID)
}
