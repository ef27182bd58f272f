package storage

// CoreSchema creates the memories, idempotency ledger, and metrics tables.
// Applied idempotently at every open via CREATE TABLE IF NOT EXISTS.
const CoreSchema = `
CREATE TABLE IF NOT EXISTS memories (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	category TEXT,
	scope_id TEXT,
	chat_id TEXT,
	thread_id TEXT,
	task_id TEXT,
	metadata TEXT,
	idempotency_key TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	last_accessed TEXT NOT NULL,
	access_count INTEGER NOT NULL DEFAULT 1,
	strength REAL NOT NULL DEFAULT 1.0,
	embedding BLOB
);

CREATE INDEX IF NOT EXISTS idx_memories_scope ON memories(scope_id);
CREATE INDEX IF NOT EXISTS idx_memories_chat ON memories(chat_id);
CREATE INDEX IF NOT EXISTS idx_memories_thread ON memories(thread_id);
CREATE INDEX IF NOT EXISTS idx_memories_task ON memories(task_id);
CREATE INDEX IF NOT EXISTS idx_memories_category ON memories(category);
CREATE INDEX IF NOT EXISTS idx_memories_strength ON memories(strength DESC, last_accessed DESC);
CREATE INDEX IF NOT EXISTS idx_memories_idempotency ON memories(idempotency_key);

CREATE TABLE IF NOT EXISTS idempotency_ledger (
	key TEXT NOT NULL,
	operation TEXT NOT NULL,
	scope_key TEXT NOT NULL,
	result_json TEXT NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (key, operation, scope_key)
);

CREATE TABLE IF NOT EXISTS metric_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	session_id TEXT,
	kind TEXT NOT NULL,
	memory_id TEXT,
	query TEXT,
	result_count INTEGER NOT NULL DEFAULT 0,
	fallback INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_metric_events_kind ON metric_events(kind);
CREATE INDEX IF NOT EXISTS idx_metric_events_session ON metric_events(session_id);
`

// FTS5Schema creates the full-text search index over memories.content and the
// triggers that keep it synchronized on insert/delete/update. This mirrors the
// content-table + content_rowid pattern: the FTS table never holds primary
// data, only a searchable projection, so deleting a memory always removes its
// FTS row via the _ad trigger.
const FTS5Schema = `
CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
	content,
	content='memories',
	content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS memories_ai AFTER INSERT ON memories BEGIN
	INSERT INTO memories_fts(rowid, content) VALUES (new.rowid, new.content);
END;

CREATE TRIGGER IF NOT EXISTS memories_ad AFTER DELETE ON memories BEGIN
	INSERT INTO memories_fts(memories_fts, rowid, content) VALUES('delete', old.rowid, old.content);
END;

CREATE TRIGGER IF NOT EXISTS memories_au AFTER UPDATE ON memories BEGIN
	INSERT INTO memories_fts(memories_fts, rowid, content) VALUES('delete', old.rowid, old.content);
	INSERT INTO memories_fts(rowid, content) VALUES (new.rowid, new.content);
END;
`

// ValidCategories lists the recognized category hints. Unknown values are
// accepted and stored as-is — category is a filter hint, not an enforced
// taxonomy.
var ValidCategories = map[string]bool{
	"decision":   true,
	"pattern":    true,
	"fact":       true,
	"preference": true,
	"insight":    true,
}
