package database

// migrationsSQL contains all database migrations.
// Migrations are applied in order by version number and must run unchanged
// on both SQLite and Postgres.
var migrationsSQL = map[int]string{
	1: migrationV1Progress,
	2: migrationV2DispatchLog,
}

// migrationV1Progress creates the per-user completion counter.
// user_id is the sender address with its channel prefix removed.
const migrationV1Progress = `
CREATE TABLE IF NOT EXISTS progress (
    user_id TEXT PRIMARY KEY,
    days_completed INTEGER NOT NULL DEFAULT 0 CHECK (days_completed >= 0),
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// migrationV2DispatchLog records every outbound send attempt of the daily
// reading, successful or not. Ids are generated by the application.
const migrationV2DispatchLog = `
CREATE TABLE IF NOT EXISTS dispatch_log (
    id TEXT PRIMARY KEY,
    plan_date TEXT NOT NULL,
    plan_day INTEGER NOT NULL,
    recipient TEXT NOT NULL,
    success BOOLEAN NOT NULL,
    provider_id TEXT,
    error_message TEXT,
    sent_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_dispatch_log_sent_at ON dispatch_log(sent_at);
`
