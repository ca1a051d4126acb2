package database

import "database/sql"

// Schema is the full service schema. Statements are idempotent so the
// migrate command can be re-run safely.
const Schema = `
CREATE TABLE IF NOT EXISTS webhook_records (
	id TEXT PRIMARY KEY,
	project_id INTEGER,
	group_id INTEGER,
	owning_user_id TEXT NOT NULL,
	webhook_exists INTEGER NOT NULL DEFAULT 0,
	webhook_secret TEXT NOT NULL DEFAULT '',
	webhook_uuid TEXT NOT NULL DEFAULT '',
	webhook_url TEXT NOT NULL DEFAULT '',
	scopes TEXT NOT NULL DEFAULT '[]',
	last_error TEXT NOT NULL DEFAULT '',
	failure_count INTEGER NOT NULL DEFAULT 0,
	last_synced_at INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_webhook_records_project
	ON webhook_records(project_id) WHERE project_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_webhook_records_group
	ON webhook_records(group_id) WHERE group_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_webhook_records_pending
	ON webhook_records(webhook_exists, last_synced_at);

CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	full_name TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT 'admin',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_logs (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL DEFAULT '',
	action TEXT NOT NULL,
	resource_type TEXT NOT NULL DEFAULT '',
	resource_id TEXT NOT NULL DEFAULT '',
	metadata TEXT NOT NULL DEFAULT '{}',
	ip_address TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at);
`

func Migrate(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
