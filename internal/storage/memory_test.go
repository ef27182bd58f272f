package storage

import (
	"testing"

	"github.com/engram/engram/internal/testutil"
)

func mustCreate(t *testing.T, d *Database, m *Memory) {
	t.Helper()
	if err := d.CreateMemory(m); err != nil {
		t.Fatalf("CreateMemory: %v", err)
	}
}

func TestGetWithEmbeddingsIsolatesByScope(t *testing.T) {
	d := testutil.OpenStorage(t)

	mustCreate(t, d, &Memory{Content: "alpha scope memory", ScopeID: "scope-a", Embedding: []float32{1, 0, 0}})
	mustCreate(t, d, &Memory{Content: "beta scope memory", ScopeID: "scope-b", Embedding: []float32{0, 1, 0}})
	mustCreate(t, d, &Memory{Content: "unscoped memory", Embedding: []float32{0, 0, 1}})

	got, err := d.GetWithEmbeddings(Filters{ScopeID: "scope-a"})
	if err != nil {
		t.Fatalf("GetWithEmbeddings: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 memory scoped to scope-a, got %d", len(got))
	}
	if got[0].Content != "alpha scope memory" {
		t.Errorf("expected scope-a's own memory, got %q", got[0].Content)
	}

	all, err := d.GetWithEmbeddings(Filters{})
	if err != nil {
		t.Fatalf("GetWithEmbeddings (unfiltered): %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 memories with no filter, got %d", len(all))
	}
}

func TestGetWithEmbeddingsANDsMultipleFilters(t *testing.T) {
	d := testutil.OpenStorage(t)

	mustCreate(t, d, &Memory{Content: "matches both", ScopeID: "s1", ChatID: "c1", Embedding: []float32{1, 0}})
	mustCreate(t, d, &Memory{Content: "right scope wrong chat", ScopeID: "s1", ChatID: "c2", Embedding: []float32{1, 0}})
	mustCreate(t, d, &Memory{Content: "wrong scope right chat", ScopeID: "s2", ChatID: "c1", Embedding: []float32{1, 0}})

	got, err := d.GetWithEmbeddings(Filters{ScopeID: "s1", ChatID: "c1"})
	if err != nil {
		t.Fatalf("GetWithEmbeddings: %v", err)
	}
	if len(got) != 1 || got[0].Content != "matches both" {
		t.Fatalf("expected AND-combined filters to isolate the single matching row, got %+v", got)
	}
}

func TestGetWithEmbeddingsExcludesRowsWithoutEmbeddings(t *testing.T) {
	d := testutil.OpenStorage(t)

	mustCreate(t, d, &Memory{Content: "has embedding", Embedding: []float32{0.5, 0.5}})
	mustCreate(t, d, &Memory{Content: "no embedding"})

	got, err := d.GetWithEmbeddings(Filters{})
	if err != nil {
		t.Fatalf("GetWithEmbeddings: %v", err)
	}
	if len(got) != 1 || got[0].Content != "has embedding" {
		t.Fatalf("expected only the embedded row, got %+v", got)
	}
}

func TestDeleteMemoryRemovesFTSRow(t *testing.T) {
	d := testutil.OpenStorage(t)

	m := &Memory{Content: "a memory about sqlite triggers"}
	mustCreate(t, d, m)

	before, err := d.SearchFTS("triggers", 10, Filters{})
	if err != nil {
		t.Fatalf("SearchFTS before delete: %v", err)
	}
	if len(before) != 1 {
		t.Fatalf("expected 1 FTS match before delete, got %d", len(before))
	}

	deleted, err := d.DeleteMemory(m.ID, ScopeGuard{Mode: ScopeAny})
	if err != nil {
		t.Fatalf("DeleteMemory: %v", err)
	}
	if !deleted {
		t.Fatal("expected DeleteMemory to report a row was deleted")
	}

	after, err := d.SearchFTS("triggers", 10, Filters{})
	if err != nil {
		t.Fatalf("SearchFTS after delete: %v", err)
	}
	if len(after) != 0 {
		t.Errorf("expected the memories_ad trigger to remove the FTS row on delete, still found %d matches", len(after))
	}
}

func TestDeleteMemoryScopeExactRequiresMatchingScope(t *testing.T) {
	d := testutil.OpenStorage(t)

	m := &Memory{Content: "scoped memory", ScopeID: "scope-a"}
	mustCreate(t, d, m)

	deleted, err := d.DeleteMemory(m.ID, ScopeGuard{Mode: ScopeExact, ScopeID: "scope-b"})
	if err != nil {
		t.Fatalf("DeleteMemory: %v", err)
	}
	if deleted {
		t.Fatal("expected delete under the wrong scope to report no row deleted")
	}

	got, err := d.GetMemory(m.ID)
	if err != nil {
		t.Fatalf("GetMemory: %v", err)
	}
	if got == nil {
		t.Fatal("expected the memory to still exist after a scope-mismatched delete")
	}

	deleted, err = d.DeleteMemory(m.ID, ScopeGuard{Mode: ScopeExact, ScopeID: "scope-a"})
	if err != nil {
		t.Fatalf("DeleteMemory with correct scope: %v", err)
	}
	if !deleted {
		t.Error("expected delete under the correct scope to succeed")
	}
}

func TestDeleteMemoryScopeUnscopedNeverMatchesScopedRow(t *testing.T) {
	d := testutil.OpenStorage(t)

	m := &Memory{Content: "scoped memory", ScopeID: "scope-a"}
	mustCreate(t, d, m)

	deleted, err := d.DeleteMemory(m.ID, ScopeGuard{Mode: ScopeUnscoped})
	if err != nil {
		t.Fatalf("DeleteMemory: %v", err)
	}
	if deleted {
		t.Error("expected ScopeUnscoped to never delete a row that has a scope_id")
	}
}

func TestFindByIdempotencyKeyScopeIsolation(t *testing.T) {
	d := testutil.OpenStorage(t)

	mustCreate(t, d, &Memory{Content: "unscoped", IdempotencyKey: "k1"})
	mustCreate(t, d, &Memory{Content: "scoped", IdempotencyKey: "k1", ScopeID: "scope-a"})

	unscoped, err := d.FindByIdempotencyKey("k1", "")
	if err != nil {
		t.Fatalf("FindByIdempotencyKey (unscoped): %v", err)
	}
	if unscoped == nil || unscoped.Content != "unscoped" {
		t.Fatalf("expected the unscoped row back, got %+v", unscoped)
	}

	scoped, err := d.FindByIdempotencyKey("k1", "scope-a")
	if err != nil {
		t.Fatalf("FindByIdempotencyKey (scoped): %v", err)
	}
	if scoped == nil || scoped.Content != "scoped" {
		t.Fatalf("expected the scope-a row back, got %+v", scoped)
	}
}
