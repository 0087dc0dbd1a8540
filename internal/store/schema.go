package store

// schema is the per-namespace SQLite schema. Enum columns use CHECK
// constraints, the dependency graph gets its own edge table with a
// composite primary key, and progress history is an append-only event
// log.
const schema = `
CREATE TABLE IF NOT EXISTS work_items (
	id                  TEXT PRIMARY KEY,
	item_type           TEXT NOT NULL CHECK (item_type IN ('initiative','epic','feature','story','task')),
	title               TEXT NOT NULL,
	description         TEXT NOT NULL DEFAULT '',
	status              TEXT NOT NULL CHECK (status IN ('not_started','in_progress','completed','blocked','cancelled')),
	priority            TEXT NOT NULL CHECK (priority IN ('low','medium','high','critical')),
	complexity          TEXT NOT NULL DEFAULT '' CHECK (complexity IN ('','simple','moderate','complex')),
	parent_id           TEXT REFERENCES work_items(id),
	sequence_order      INTEGER NOT NULL DEFAULT 0,
	acceptance_criteria TEXT NOT NULL DEFAULT '[]',
	context_tags        TEXT NOT NULL DEFAULT '[]',
	notes               TEXT NOT NULL DEFAULT '',
	progress_percentage INTEGER NOT NULL DEFAULT 0,
	created_at          TEXT NOT NULL,
	updated_at          TEXT NOT NULL,
	embedding           BLOB,
	embedding_model_id  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_work_items_parent ON work_items(parent_id);
CREATE INDEX IF NOT EXISTS idx_work_items_type ON work_items(item_type);
CREATE INDEX IF NOT EXISTS idx_work_items_status ON work_items(status);

CREATE TABLE IF NOT EXISTS work_item_dependencies (
	src TEXT NOT NULL REFERENCES work_items(id) ON DELETE CASCADE,
	dst TEXT NOT NULL REFERENCES work_items(id) ON DELETE CASCADE,
	PRIMARY KEY (src, dst)
);

CREATE INDEX IF NOT EXISTS idx_deps_dst ON work_item_dependencies(dst);

CREATE TABLE IF NOT EXISTS execution_records (
	execution_id      TEXT PRIMARY KEY,
	work_item_id      TEXT NOT NULL REFERENCES work_items(id) ON DELETE CASCADE,
	mode              TEXT NOT NULL CHECK (mode IN ('autonomous','guided','validation_only')),
	status            TEXT NOT NULL CHECK (status IN ('pending','running','completed','failed','cancelled')),
	started_at        TEXT NOT NULL,
	ended_at          TEXT,
	agent_context     TEXT NOT NULL DEFAULT '{}',
	validation_issues TEXT NOT NULL DEFAULT '[]',
	artifacts         TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_execution_work_item ON execution_records(work_item_id);

CREATE TABLE IF NOT EXISTS progress_events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	entity_id  TEXT NOT NULL,
	percentage INTEGER NOT NULL,
	status     TEXT NOT NULL,
	notes      TEXT NOT NULL DEFAULT '',
	blockers   TEXT NOT NULL DEFAULT '[]',
	at         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_progress_entity ON progress_events(entity_id, at);

CREATE TABLE IF NOT EXISTS architecture_memory (
	id              TEXT PRIMARY KEY,
	slug            TEXT NOT NULL UNIQUE,
	title           TEXT NOT NULL,
	ai_requirements TEXT NOT NULL DEFAULT '',
	ai_when_to_use  TEXT NOT NULL DEFAULT '[]',
	keywords        TEXT NOT NULL DEFAULT '[]',
	children_slugs  TEXT NOT NULL DEFAULT '[]',
	related_slugs   TEXT NOT NULL DEFAULT '[]',
	linked_epic_ids TEXT NOT NULL DEFAULT '[]',
	tags            TEXT NOT NULL DEFAULT '[]',
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL,
	embedding       BLOB
);

CREATE TABLE IF NOT EXISTS troubleshoot_memory (
	id              TEXT PRIMARY KEY,
	slug            TEXT NOT NULL UNIQUE,
	title           TEXT NOT NULL,
	ai_use_case     TEXT NOT NULL DEFAULT '[]',
	ai_solutions    TEXT NOT NULL DEFAULT '',
	keywords        TEXT NOT NULL DEFAULT '[]',
	children_slugs  TEXT NOT NULL DEFAULT '[]',
	related_slugs   TEXT NOT NULL DEFAULT '[]',
	linked_epic_ids TEXT NOT NULL DEFAULT '[]',
	tags            TEXT NOT NULL DEFAULT '[]',
	usage_count     INTEGER NOT NULL DEFAULT 0,
	success_count   INTEGER NOT NULL DEFAULT 0,
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL,
	embedding       BLOB
);

-- sync_files tracks the last known content hash of each synced
-- workspace file so the sync engine can detect adds/modifies/deletes
-- without re-parsing every file on every run.
CREATE TABLE IF NOT EXISTS sync_files (
	path         TEXT PRIMARY KEY,
	entity_id    TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	synced_at    TEXT NOT NULL
);
`
