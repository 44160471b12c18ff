package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

// tables lists the DDL for every table. Statements are idempotent so
// migrate can run on each Open.
var tables = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		parent_id TEXT,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS stories (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		sections TEXT,
		difficulty INTEGER NOT NULL DEFAULT 1,
		word_count INTEGER NOT NULL DEFAULT 0,
		reading_time INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		ended_at INTEGER,
		duration INTEGER NOT NULL DEFAULT 0,
		completed INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS sessions_user ON sessions (user_id, started_at)`,
	`CREATE TABLE IF NOT EXISTS reading_progress (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		story_id TEXT NOT NULL,
		session_id TEXT,
		words_read INTEGER NOT NULL DEFAULT 0,
		current_position INTEGER NOT NULL DEFAULT 0,
		completed INTEGER NOT NULL DEFAULT 0,
		accuracy INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS reading_progress_user ON reading_progress (user_id, story_id)`,
	`CREATE TABLE IF NOT EXISTS math_progress (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		session_id TEXT,
		problems_attempted INTEGER NOT NULL DEFAULT 0,
		problems_correct INTEGER NOT NULL DEFAULT 0,
		current_level INTEGER NOT NULL DEFAULT 1,
		streak INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS vibe_states (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		session_id TEXT,
		state TEXT NOT NULL,
		notes TEXT,
		recorded_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS vibe_states_user ON vibe_states (user_id, recorded_at)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		story_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS chat_messages_thread ON chat_messages (user_id, story_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS quizzes (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		story_id TEXT NOT NULL,
		section INTEGER,
		questions TEXT NOT NULL,
		answers TEXT,
		score INTEGER,
		total_questions INTEGER NOT NULL,
		passed INTEGER,
		feedback TEXT,
		created_at INTEGER NOT NULL,
		completed_at INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS quizzes_user ON quizzes (user_id, story_id)`,
	`CREATE TABLE IF NOT EXISTS llm_request_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sequence INTEGER NOT NULL,
		timestamp INTEGER NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		latency_ms INTEGER NOT NULL DEFAULT 0,
		success INTEGER NOT NULL,
		error_message TEXT,
		request_body TEXT,
		response_body TEXT,
		attempt INTEGER NOT NULL DEFAULT 0,
		fallback INTEGER NOT NULL DEFAULT 0,
		rate_limited INTEGER NOT NULL DEFAULT 0
	)`,
}

// addedColumns are columns that came after their table was first shipped.
// migrate adds the ones an older database is missing.
var addedColumns = []struct{ table, column, ddl string }{
	{"llm_request_events", "attempt", "INTEGER NOT NULL DEFAULT 0"},
	{"llm_request_events", "fallback", "INTEGER NOT NULL DEFAULT 0"},
	{"llm_request_events", "rate_limited", "INTEGER NOT NULL DEFAULT 0"},
}

func migrate(ctx context.Context, drv *entsql.Driver) error {
	for _, ddl := range tables {
		if err := drv.Exec(ctx, ddl, []any{}, nil); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	for _, c := range addedColumns {
		have, err := hasColumn(ctx, drv, c.table, c.column)
		if err != nil {
			return err
		}
		if have {
			continue
		}
		ddl := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", c.table, c.column, c.ddl)
		if err := drv.Exec(ctx, ddl, []any{}, nil); err != nil {
			return fmt.Errorf("add column %s.%s: %w", c.table, c.column, err)
		}
	}
	return nil
}

func hasColumn(ctx context.Context, drv *entsql.Driver, table, column string) (bool, error) {
	found := false
	err := queryRows(ctx, drv, fmt.Sprintf("SELECT name FROM pragma_table_info('%s')", table), []any{},
		func(rows *entsql.Rows) error {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			if name == column {
				found = true
			}
			return nil
		})
	if err != nil {
		return false, fmt.Errorf("inspect table %s: %w", table, err)
	}
	return found, nil
}
