package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is portable DDL shared by the supported backends. JSON-shaped
// columns (conditions, actions, tags, custom fields) are stored as TEXT and
// normalized into typed values at repository load time.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tickets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		organization TEXT NOT NULL,
		title TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'new',
		priority TEXT NOT NULL DEFAULT 'medium',
		assigned_agent TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',
		custom_fields TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		first_response_at TIMESTAMP,
		resolved_at TIMESTAMP,
		closed_at TIMESTAMP,
		response_breach_at TIMESTAMP,
		resolution_breach_at TIMESTAMP,
		version INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ticket_id INTEGER NOT NULL,
		author TEXT NOT NULL,
		body TEXT NOT NULL,
		is_internal BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		organization TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS automation_rules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		organization TEXT NOT NULL,
		name TEXT NOT NULL,
		trigger_type TEXT NOT NULL,
		conditions TEXT NOT NULL DEFAULT '[]',
		actions TEXT NOT NULL DEFAULT '[]',
		execution_order INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		stop_on_match BOOLEAN NOT NULL DEFAULT FALSE,
		usage_count INTEGER NOT NULL DEFAULT 0,
		last_executed TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sla_policies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		organization TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		response_time_minutes INTEGER NOT NULL DEFAULT 0,
		resolution_time_minutes INTEGER NOT NULL DEFAULT 0,
		conditions TEXT NOT NULL DEFAULT '[]',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		priority INTEGER NOT NULL DEFAULT 0,
		calendar_id INTEGER,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS business_hours (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		organization TEXT NOT NULL,
		name TEXT NOT NULL,
		timezone TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		working_days TEXT NOT NULL DEFAULT '[]',
		holidays TEXT NOT NULL DEFAULT '[]',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rule_executions (
		id TEXT PRIMARY KEY,
		rule_id INTEGER NOT NULL,
		ticket_id INTEGER NOT NULL,
		trigger_type TEXT NOT NULL,
		actions_executed TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	)`,
}

// EnsureSchema creates missing tables on the sqlite dev backend. mysql and
// postgres deployments provision their schema through managed migrations, so
// for those drivers this is a no-op. Safe to run at every startup.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if db.DriverName() != "sqlite3" {
		return nil
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
