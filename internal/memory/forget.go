package memory

import (
	"time"

	"github.com/engram/engram/internal/storage"
)

// ForgetInput is the input to Forget.
type ForgetInput struct {
	ID        string
	ScopeID   string
	SessionID string
}

// ForgetOutput reports whether a row was actually removed.
type ForgetOutput struct {
	ID      string
	Deleted bool
}

// Forget deletes a memory; deletion is scope-gated only when the scopes flag
// is enabled. With scopes off, id alone decides. With scopes on, a supplied
// scope_id must match exactly; an omitted scope_id only matches unscoped
// rows — it never bulk-deletes scoped ones (the additive, safe-by-default
// choice).
func (s *Service) Forget(in ForgetInput) (*ForgetOutput, error) {
	if in.ID == "" {
		return nil, newError(InvalidArgument, "id is required")
	}

	guard := storage.ScopeGuard{Mode: storage.ScopeAny}
	if s.cfg.EnableScopes {
		if in.ScopeID != "" {
			guard = storage.ScopeGuard{Mode: storage.ScopeExact, ScopeID: in.ScopeID}
		} else {
			guard = storage.ScopeGuard{Mode: storage.ScopeUnscoped}
		}
	}

	deleted, err := s.db.DeleteMemory(in.ID, guard)
	if err != nil {
		return nil, wrapError(StorageError, err, "delete memory")
	}

	if err := s.db.LogMetric(storage.MetricEvent{
		Timestamp: time.Now().UTC(),
		SessionID: in.SessionID,
		Kind:      storage.MetricForget,
		MemoryID:  in.ID,
	}); err != nil {
		log.Warn("failed to log forget metric", "error", err)
	}

	return &ForgetOutput{ID: in.ID, Deleted: deleted}, nil
}
