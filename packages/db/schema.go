package db

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS test_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		test_run_id TEXT NOT NULL UNIQUE,
		test_type TEXT NOT NULL,
		status TEXT NOT NULL,
		owner TEXT,
		environment TEXT,
		branch TEXT,
		start_time DATETIME NOT NULL,
		end_time DATETIME,
		duration REAL
	)`,
	`CREATE TABLE IF NOT EXISTS test_executions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		test_run_id TEXT NOT NULL,
		test_module TEXT NOT NULL,
		test_function TEXT NOT NULL,
		name TEXT,
		description TEXT,
		result TEXT NOT NULL,
		failure TEXT,
		failure_type TEXT,
		environment TEXT,
		start_time DATETIME NOT NULL,
		end_time DATETIME,
		duration REAL
	)`,
	`CREATE TABLE IF NOT EXISTS steps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		step_id TEXT NOT NULL UNIQUE,
		sequence_number INTEGER NOT NULL,
		hierarchical_number TEXT NOT NULL,
		indent_level INTEGER NOT NULL,
		parent_step_id INTEGER REFERENCES steps(id),
		step_function TEXT NOT NULL,
		content TEXT NOT NULL,
		execution_id INTEGER NOT NULL REFERENCES test_executions(id),
		test_function TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		start_time DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS custom_metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		execution_id INTEGER NOT NULL REFERENCES test_executions(id),
		name TEXT NOT NULL,
		value TEXT,
		UNIQUE(execution_id, name)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_steps_execution ON steps(execution_id)`,
	`CREATE INDEX IF NOT EXISTS idx_steps_parent ON steps(parent_step_id)`,
	`CREATE INDEX IF NOT EXISTS idx_executions_run ON test_executions(test_run_id)`,
}

// Migrate creates the results schema if it does not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}
