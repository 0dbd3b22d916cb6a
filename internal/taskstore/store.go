// Package taskstore is the durable record of devices, backup tasks,
// their logs, and recurring schedules (spec.md §4.5). It is a thin
// layer over database/sql: raw SQL, no ORM, grounded on the teacher
// pack's plain-sql.DB driver style (estuary-flow's
// .graveyard/materialize/driver/sql.go caches one *sql.DB per DSN).
// This package keeps one *sql.DB for a single SQLite file and runs
// each operation as direct ExecContext/QueryContext calls; it uses no
// prepared statements and no explicit transactions.
package taskstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"firestige.xyz/netbackup/internal/log"
)

// Store wraps the task/device database. All mutations are
// individually transactional (spec.md §4.5); no multi-task
// transaction is ever required.
type Store struct {
	db *sql.DB
}

// Open connects to dsn (a SQLite file path, or ":memory:" for tests)
// and applies the schema migration. dsn comes from GlobalConfig's
// server.database_url (spec.md §6 DATABASE_URL).
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("taskstore: open: %w", err)
	}
	// SQLite allows only one writer at a time; a single connection
	// avoids SQLITE_BUSY storms under the worker pool's concurrency.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("taskstore: ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	log.GetLogger().WithField("dsn", dsn).Info("taskstore: database ready")
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS devices (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	alias TEXT NOT NULL DEFAULT '',
	ip_address TEXT NOT NULL UNIQUE,
	port INTEGER NOT NULL DEFAULT 22,
	protocol TEXT NOT NULL,
	device_type TEXT NOT NULL,
	username TEXT NOT NULL,
	password_cipher TEXT NOT NULL,
	enable_password_cipher TEXT NOT NULL DEFAULT '',
	command TEXT NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	last_backup_at TEXT,
	last_backup_status TEXT
);

CREATE TABLE IF NOT EXISTS backup_tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	device_id INTEGER NOT NULL REFERENCES devices(id),
	submitter_id INTEGER NOT NULL DEFAULT 0,
	task_type TEXT NOT NULL,
	status TEXT NOT NULL,
	effective_command TEXT NOT NULL,
	artifact_path TEXT,
	artifact_size_bytes INTEGER,
	artifact_sha256 TEXT,
	started_at TEXT,
	completed_at TEXT,
	created_at TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	retry_count INTEGER NOT NULL DEFAULT 0,
	max_retries INTEGER NOT NULL DEFAULT 3
);
CREATE INDEX IF NOT EXISTS idx_backup_tasks_device ON backup_tasks(device_id);
CREATE INDEX IF NOT EXISTS idx_backup_tasks_status ON backup_tasks(status);

CREATE TABLE IF NOT EXISTS backup_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id INTEGER NOT NULL REFERENCES backup_tasks(id) ON DELETE CASCADE,
	level TEXT NOT NULL,
	message TEXT NOT NULL,
	timestamp TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_backup_logs_task ON backup_logs(task_id);

CREATE TABLE IF NOT EXISTS scheduled_tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	task_type TEXT NOT NULL,
	frequency_type TEXT NOT NULL,
	cron_expression TEXT NOT NULL,
	frequency_hour INTEGER NOT NULL DEFAULT 0,
	frequency_minute INTEGER NOT NULL DEFAULT 0,
	frequency_weekday INTEGER NOT NULL DEFAULT 0,
	frequency_day INTEGER NOT NULL DEFAULT 0,
	frequency_cron TEXT NOT NULL DEFAULT '',
	target_device_ids TEXT NOT NULL DEFAULT '',
	command TEXT NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	created_by INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	last_run_at TEXT,
	next_run_at TEXT
);

CREATE TABLE IF NOT EXISTS task_executions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	scheduled_id INTEGER NOT NULL REFERENCES scheduled_tasks(id),
	status TEXT NOT NULL,
	started_at TEXT NOT NULL,
	completed_at TEXT,
	result_summary TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	execution_log TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_task_executions_scheduled ON task_executions(scheduled_id);
`

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("taskstore: migrate: %w", err)
	}
	return nil
}
