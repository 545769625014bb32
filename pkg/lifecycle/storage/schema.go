package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates all lifecycle tables and indexes. Statements are
// idempotent so initialization can run on every open.
const Schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	storyteller_id TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'active',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	archived_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS project_roles (
	project_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	role TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (project_id, user_id)
);

CREATE TABLE IF NOT EXISTS subscriptions (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_subscriptions_project ON subscriptions(project_id);

CREATE TABLE IF NOT EXISTS invitations (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	email TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_invitations_project ON invitations(project_id);

CREATE TABLE IF NOT EXISTS chapters (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	name TEXT NOT NULL,
	position INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chapters_project ON chapters(project_id);

CREATE TABLE IF NOT EXISTS stories (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	chapter_id TEXT,
	title TEXT NOT NULL,
	transcript TEXT,
	audio_key TEXT,
	audio_format TEXT,
	photo_key TEXT,
	photo_format TEXT,
	duration_seconds INTEGER NOT NULL DEFAULT 0,
	recorded_at TIMESTAMP NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_stories_project ON stories(project_id);
CREATE INDEX IF NOT EXISTS idx_stories_created ON stories(created_at);

CREATE TABLE IF NOT EXISTS interactions (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	story_id TEXT NOT NULL,
	author_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	body TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_interactions_project ON interactions(project_id);
CREATE INDEX IF NOT EXISTS idx_interactions_story ON interactions(story_id);

CREATE TABLE IF NOT EXISTS chapter_summaries (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	chapter_id TEXT NOT NULL,
	summary TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chapter_summaries_project ON chapter_summaries(project_id);

CREATE TABLE IF NOT EXISTS temp_files (
	key TEXT PRIMARY KEY,
	project_id TEXT,
	size INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_temp_files_created ON temp_files(created_at);

CREATE TABLE IF NOT EXISTS export_requests (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	facilitator_id TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'queued',
	options TEXT NOT NULL,
	storage_key TEXT,
	download_url TEXT,
	expires_at TIMESTAMP,
	progress INTEGER NOT NULL DEFAULT 0,
	current_step TEXT,
	error TEXT,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_export_requests_project ON export_requests(project_id);
CREATE INDEX IF NOT EXISTS idx_export_requests_guard ON export_requests(project_id, facilitator_id, status, created_at);
`

// InsertSchemaVersion records the schema version on first initialization.
const InsertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version) VALUES (?)`

// GetSchemaVersion reads the recorded schema version.
const GetSchemaVersion = `SELECT version FROM schema_version LIMIT 1`
