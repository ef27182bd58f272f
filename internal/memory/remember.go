package memory

import (
	"context"
	"time"

	"github.com/engram/engram/internal/storage"
)

// RememberStatus distinguishes a freshly created row from one that an
// upsert updated in place. A replay from the idempotency ledger reports
// "created".
type RememberStatus string

const (
	StatusCreated RememberStatus = "created"
	StatusUpdated RememberStatus = "updated"
)

// RememberInput is the input to Remember.
type RememberInput struct {
	Content        string
	Category       string
	ScopeID        string
	ChatID         string
	ThreadID       string
	TaskID         string
	Metadata       string
	IdempotencyKey string
	Upsert         bool
	SessionID      string
}

// RememberOutput is the result of a successful Remember call.
type RememberOutput struct {
	ID     string
	Status RememberStatus
}

// Remember creates a new memory, or create-or-replaces by idempotency key
// when Upsert is set, or replays the ledger's recorded result when
// idempotency is enabled and a key is supplied without Upsert.
func (s *Service) Remember(ctx context.Context, in RememberInput) (*RememberOutput, error) {
	if in.Content == "" {
		return nil, newError(InvalidArgument, "content is required")
	}
	if in.Upsert && in.IdempotencyKey == "" {
		return nil, newError(InvalidArgument, "upsert requires idempotency_key")
	}

	// Scope fields are accepted regardless of the flag but only take effect
	// when scopes are enabled — absence of the flag silently nulls them,
	// preserving wire compatibility with callers that don't use scopes.
	scopeID, chatID, threadID, taskID := in.ScopeID, in.ChatID, in.ThreadID, in.TaskID
	if !s.cfg.EnableScopes {
		scopeID, chatID, threadID, taskID = "", "", "", ""
	}
	scopeKey := s.scopeDiscriminator(scopeID)

	if in.Upsert {
		return s.rememberUpsert(ctx, in, scopeID, chatID, threadID, taskID, scopeKey)
	}
	if s.cfg.EnableIdempotency && in.IdempotencyKey != "" {
		if out, found, err := s.rememberReplay(in, scopeKey); err != nil {
			return nil, err
		} else if found {
			return out, nil
		}
	}
	return s.rememberCreate(ctx, in, scopeID, chatID, threadID, taskID)
}

// rememberUpsert implements Branch A: look up by (idempotency_key, scope);
// update in place if found, else fall through to create.
func (s *Service) rememberUpsert(ctx context.Context, in RememberInput, scopeID, chatID, threadID, taskID, scopeKey string) (*RememberOutput, error) {
	existing, err := s.db.FindByIdempotencyKey(in.IdempotencyKey, scopeID)
	if err != nil {
		return nil, wrapError(StorageError, err, "find by idempotency key")
	}
	if existing == nil {
		return s.rememberCreate(ctx, in, scopeID, chatID, threadID, taskID)
	}

	embedding := s.embedBestEffort(ctx, in.Content)
	if err := s.db.UpdateMemoryContent(existing.ID, storage.ContentUpdate{
		Content:   in.Content,
		Category:  in.Category,
		Metadata:  in.Metadata,
		Embedding: embedding,
	}); err != nil {
		return nil, wrapError(StorageError, err, "update memory content")
	}

	if err := s.db.LogMetric(storage.MetricEvent{
		Timestamp: time.Now().UTC(),
		SessionID: in.SessionID,
		Kind:      storage.MetricUpsert,
		MemoryID:  existing.ID,
	}); err != nil {
		log.Warn("failed to log upsert metric", "error", err)
	}
	if err := s.saveLedgerEntry(scopeKey, in.IdempotencyKey, existing.ID, StatusUpdated); err != nil {
		return nil, err
	}

	return &RememberOutput{ID: existing.ID, Status: StatusUpdated}, nil
}

// rememberReplay implements Branch B: a non-upsert remember with a known
// idempotency key replays the ledger's historical status (always "created",
// even if a later upsert has since updated the row).
func (s *Service) rememberReplay(in RememberInput, scopeKey string) (*RememberOutput, bool, error) {
	entry, err := s.db.GetLedger(in.IdempotencyKey, string(storage.MetricRemember), scopeKey)
	if err != nil {
		log.Warn("corrupt ledger entry, treating as cache miss", "key", in.IdempotencyKey, "error", err)
		return nil, false, nil
	}
	if entry == nil {
		return nil, false, nil
	}
	return &RememberOutput{ID: entry.ID, Status: StatusCreated}, true, nil
}

// rememberCreate implements Branch C: assign a new id, embed best-effort,
// store, log a metric, and save a ledger row if idempotency applies.
func (s *Service) rememberCreate(ctx context.Context, in RememberInput, scopeID, chatID, threadID, taskID string) (*RememberOutput, error) {
	embedding := s.embedBestEffort(ctx, in.Content)

	// idempotency_key is stored whenever idempotency is enabled OR an
	// upsert was requested, so a later upsert can find this row again even
	// if the idempotency flag is off.
	var idempotencyKey string
	if s.cfg.EnableIdempotency || in.Upsert {
		idempotencyKey = in.IdempotencyKey
	}

	m := &storage.Memory{
		Content:        in.Content,
		Category:       in.Category,
		ScopeID:        scopeID,
		ChatID:         chatID,
		ThreadID:       threadID,
		TaskID:         taskID,
		Metadata:       in.Metadata,
		IdempotencyKey: idempotencyKey,
		Embedding:      embedding,
	}
	if err := s.db.CreateMemory(m); err != nil {
		return nil, wrapError(StorageError, err, "create memory")
	}

	if err := s.db.LogMetric(storage.MetricEvent{
		Timestamp: time.Now().UTC(),
		SessionID: in.SessionID,
		Kind:      storage.MetricRemember,
		MemoryID:  m.ID,
	}); err != nil {
		log.Warn("failed to log remember metric", "error", err)
	}

	if s.cfg.EnableIdempotency && in.IdempotencyKey != "" {
		scopeKey := s.scopeDiscriminator(scopeID)
		if err := s.saveLedgerEntry(scopeKey, in.IdempotencyKey, m.ID, StatusCreated); err != nil {
			return nil, err
		}
	}

	return &RememberOutput{ID: m.ID, Status: StatusCreated}, nil
}

// saveLedgerEntry records (or re-affirms) a remember call's ledger row. The
// ledger's Status is always "created": it is the historical record of the
// original write, not the current state of the row, so a later upsert that
// updates the same key never flips it to "updated".
func (s *Service) saveLedgerEntry(scopeKey, key, id string, _ RememberStatus) error {
	if err := s.db.SaveLedger(key, string(storage.MetricRemember), scopeKey, storage.LedgerEntry{ID: id, Status: string(StatusCreated)}); err != nil {
		return wrapError(StorageError, err, "save ledger entry")
	}
	return nil
}
