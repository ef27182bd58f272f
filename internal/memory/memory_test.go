package memory

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/engram/engram/internal/config"
	"github.com/engram/engram/internal/embedding"
	"github.com/engram/engram/internal/storage"
	"github.com/engram/engram/internal/testutil"
)

// fakeEmbedder is a deterministic bag-of-words embedder used so semantic
// ranking tests don't depend on a live embedding server. Vectors are
// one-hot-per-keyword presence, unit-normalized, exactly like a real
// embedding would be.
type fakeEmbedder struct {
	vocab []string
}

var testVocab = []string{
	"typescript", "javascript", "script", "coding", "programming",
	"weather", "sunny", "warm", "chocolate", "cake", "recipe",
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{vocab: testVocab}
}

func (f *fakeEmbedder) Dim() int { return len(f.vocab) }

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	v := make([]float32, len(f.vocab))
	var sumSq float64
	for i, word := range f.vocab {
		if strings.Contains(lower, word) {
			v[i] = 1
			sumSq++
		}
	}
	if sumSq == 0 {
		return v, nil
	}
	norm := math.Sqrt(sumSq)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func newTestService(t *testing.T) (*Service, *storage.Database) {
	t.Helper()
	embedding.SetProviderForTest(newFakeEmbedder())
	t.Cleanup(embedding.Reset)

	db := testutil.OpenStorage(t)
	cfg := config.DefaultConfig()
	cfg.DecayRate = 0.95
	return NewService(db, cfg), db
}

func TestRecallEmptyQueryFallbackMode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Remember(ctx, RememberInput{Content: "First memory"}); err != nil {
		t.Fatalf("remember: %v", err)
	}
	if _, err := svc.Remember(ctx, RememberInput{Content: "Second memory"}); err != nil {
		t.Fatalf("remember: %v", err)
	}

	out, err := svc.Recall(ctx, RecallInput{Query: ""})
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if !out.FallbackMode {
		t.Error("expected fallback_mode=true for empty query")
	}
	if len(out.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out.Results))
	}
	for _, r := range out.Results {
		m, err := svc.Get(r.ID)
		if err != nil {
			t.Fatalf("get %s: %v", r.ID, err)
		}
		if m.Strength != 1.0 {
			t.Errorf("expected stored strength 1.0, got %v", m.Strength)
		}
		if m.AccessCount != 2 {
			t.Errorf("expected access_count=2, got %d", m.AccessCount)
		}
	}
}

func TestRecallSemanticOrdering(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tsOut, err := svc.Remember(ctx, RememberInput{Content: "I love programming in TypeScript"})
	if err != nil {
		t.Fatalf("remember: %v", err)
	}
	if _, err := svc.Remember(ctx, RememberInput{Content: "The weather today is sunny and warm"}); err != nil {
		t.Fatalf("remember: %v", err)
	}

	out, err := svc.Recall(ctx, RecallInput{Query: "coding with JavaScript"})
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if out.FallbackMode {
		t.Error("expected fallback_mode=false for semantic recall")
	}
	if len(out.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out.Results))
	}
	if out.Results[0].ID != tsOut.ID {
		t.Errorf("expected TypeScript memory ranked first, got %s", out.Results[0].ID)
	}
	if !(out.Results[0].Relevance > out.Results[1].Relevance) {
		t.Errorf("expected relevance[0] > relevance[1], got %v vs %v", out.Results[0].Relevance, out.Results[1].Relevance)
	}
}

func TestDecayIsEphemeral(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	mOut, err := svc.Remember(ctx, RememberInput{Content: "TypeScript programming language"})
	if err != nil {
		t.Fatalf("remember: %v", err)
	}
	nOut, err := svc.Remember(ctx, RememberInput{Content: "Chocolate cake recipe"})
	if err != nil {
		t.Fatalf("remember: %v", err)
	}

	backdate := time.Now().UTC().Add(-30 * 24 * time.Hour)
	if err := db.DB().QueryRow("SELECT 1").Err(); err != nil {
		t.Fatalf("sanity check db: %v", err)
	}
	for _, id := range []string{mOut.ID, nOut.ID} {
		if _, err := db.DB().Exec(`UPDATE memories SET last_accessed = ? WHERE id = ?`, backdate.Format(time.RFC3339Nano), id); err != nil {
			t.Fatalf("backdate %s: %v", id, err)
		}
	}

	for i := 0; i < 3; i++ {
		if _, err := svc.Recall(ctx, RecallInput{Query: "TypeScript"}); err != nil {
			t.Fatalf("recall %d: %v", i, err)
		}
	}

	n, err := svc.Get(nOut.ID)
	if err != nil {
		t.Fatalf("get N: %v", err)
	}
	if n.Strength != 1.0 {
		t.Errorf("expected N's strength to remain 1.0, got %v", n.Strength)
	}

	m, err := svc.Get(mOut.ID)
	if err != nil {
		t.Fatalf("get M: %v", err)
	}
	if m.Strength != 1.0 {
		t.Errorf("expected M's strength to end at 1.0 after being returned, got %v", m.Strength)
	}
	if m.AccessCount != 4 { // starts at 1, +3 recalls
		t.Errorf("expected access_count increased by 3 (to 4), got %d", m.AccessCount)
	}
}

func TestUpsertPreservesIdentityAndHistory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Remember(ctx, RememberInput{Content: "Original", IdempotencyKey: "k1", Upsert: true})
	if err != nil {
		t.Fatalf("remember: %v", err)
	}
	if first.Status != StatusCreated {
		t.Errorf("expected status=created, got %s", first.Status)
	}

	before, err := svc.Get(first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	time.Sleep(1100 * time.Millisecond)

	second, err := svc.Remember(ctx, RememberInput{Content: "Updated", Category: "decision", IdempotencyKey: "k1", Upsert: true})
	if err != nil {
		t.Fatalf("remember: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected same id, got %s vs %s", second.ID, first.ID)
	}
	if second.Status != StatusUpdated {
		t.Errorf("expected status=updated, got %s", second.Status)
	}

	after, err := svc.Get(first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Errorf("created_at changed: %v -> %v", before.CreatedAt, after.CreatedAt)
	}
	if after.AccessCount != before.AccessCount {
		t.Errorf("access_count changed: %d -> %d", before.AccessCount, after.AccessCount)
	}
	if after.Strength != before.Strength {
		t.Errorf("strength changed: %v -> %v", before.Strength, after.Strength)
	}
	if !after.UpdatedAt.After(before.UpdatedAt) {
		t.Errorf("expected updated_at strictly later, before=%v after=%v", before.UpdatedAt, after.UpdatedAt)
	}
	if after.Content != "Updated" {
		t.Errorf("expected content=Updated, got %s", after.Content)
	}
	if after.Category != "decision" {
		t.Errorf("expected category=decision, got %s", after.Category)
	}
}

func TestUpsertFullReplaceNullsOmittedFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Remember(ctx, RememberInput{
		Content:        "With metadata",
		Category:       "fact",
		Metadata:       `{"source":"test"}`,
		IdempotencyKey: "k2",
		Upsert:         true,
	}); err != nil {
		t.Fatalf("remember: %v", err)
	}

	out, err := svc.Remember(ctx, RememberInput{Content: "Without metadata", IdempotencyKey: "k2", Upsert: true})
	if err != nil {
		t.Fatalf("remember: %v", err)
	}

	m, err := svc.Get(out.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if m.Category != "" {
		t.Errorf("expected category cleared, got %q", m.Category)
	}
	if m.Metadata != "" {
		t.Errorf("expected metadata cleared, got %q", m.Metadata)
	}
	if m.Content != "Without metadata" {
		t.Errorf("expected content updated, got %q", m.Content)
	}
}

func TestScopedForgetWhenScopesEnabled(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.cfg.EnableScopes = true

	out, err := svc.Remember(ctx, RememberInput{Content: "Scoped", ScopeID: "A"})
	if err != nil {
		t.Fatalf("remember: %v", err)
	}

	f1, err := svc.Forget(ForgetInput{ID: out.ID})
	if err != nil {
		t.Fatalf("forget: %v", err)
	}
	if f1.Deleted {
		t.Error("expected deleted=false without matching scope")
	}
	if _, err := svc.Get(out.ID); err != nil {
		t.Errorf("expected memory still present, got error: %v", err)
	}

	f2, err := svc.Forget(ForgetInput{ID: out.ID, ScopeID: "A"})
	if err != nil {
		t.Fatalf("forget: %v", err)
	}
	if !f2.Deleted {
		t.Error("expected deleted=true with matching scope")
	}
	if _, err := svc.Get(out.ID); err == nil {
		t.Error("expected memory absent after scoped forget")
	}
}

func TestIdempotencyLedgerIsolatedByScope(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.cfg.EnableScopes = true
	svc.cfg.EnableIdempotency = true

	p1, err := svc.Remember(ctx, RememberInput{Content: "A", ScopeID: "a", IdempotencyKey: "shared"})
	if err != nil {
		t.Fatalf("remember: %v", err)
	}
	p2, err := svc.Remember(ctx, RememberInput{Content: "B", ScopeID: "b", IdempotencyKey: "shared"})
	if err != nil {
		t.Fatalf("remember: %v", err)
	}
	if p1.ID == p2.ID {
		t.Error("expected distinct ids for the same idempotency key under different scopes")
	}
}

func TestNonUpsertReplayReturnsCreatedStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.cfg.EnableIdempotency = true

	created, err := svc.Remember(ctx, RememberInput{Content: "first", IdempotencyKey: "replay-key"})
	if err != nil {
		t.Fatalf("remember: %v", err)
	}

	replayed, err := svc.Remember(ctx, RememberInput{Content: "ignored on replay", IdempotencyKey: "replay-key"})
	if err != nil {
		t.Fatalf("remember: %v", err)
	}
	if replayed.ID != created.ID {
		t.Errorf("expected replay to return original id %s, got %s", created.ID, replayed.ID)
	}
	if replayed.Status != StatusCreated {
		t.Errorf("expected replay status=created, got %s", replayed.Status)
	}
}
