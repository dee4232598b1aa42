package database

// Table definitions. Text columns are NOT NULL with empty defaults so they
// scan into plain strings.

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS generated_scripts (
		id VARCHAR(36) PRIMARY KEY,
		requirement TEXT NOT NULL,
		framework_key VARCHAR(64) NOT NULL,
		language VARCHAR(32) NOT NULL DEFAULT '',
		provider VARCHAR(32) NOT NULL DEFAULT '',
		model VARCHAR(128) NOT NULL DEFAULT '',
		source VARCHAR(16) NOT NULL DEFAULT '',
		content MEDIUMTEXT NOT NULL,
		code MEDIUMTEXT NOT NULL,
		file_path VARCHAR(512) NOT NULL DEFAULT '',
		created_at DATETIME(6) NOT NULL,
		INDEX idx_scripts_created (created_at)
	)`,
	`CREATE TABLE IF NOT EXISTS signup_runs (
		id VARCHAR(36) PRIMARY KEY,
		url VARCHAR(2048) NOT NULL,
		username VARCHAR(255) NOT NULL DEFAULT '',
		email VARCHAR(255) NOT NULL DEFAULT '',
		temporal_run_id VARCHAR(255) NOT NULL DEFAULT '',
		temporal_workflow_id VARCHAR(255) NOT NULL DEFAULT '',
		status VARCHAR(16) NOT NULL,
		started_at DATETIME(6) NULL,
		completed_at DATETIME(6) NULL,
		error_message TEXT NOT NULL,
		screenshot_path VARCHAR(512) NOT NULL DEFAULT '',
		INDEX idx_runs_started (started_at)
	)`,
	`CREATE TABLE IF NOT EXISTS step_results (
		run_id VARCHAR(36) NOT NULL,
		sequence INT NOT NULL,
		name VARCHAR(64) NOT NULL,
		selector VARCHAR(512) NOT NULL DEFAULT '',
		status VARCHAR(16) NOT NULL,
		error_message TEXT NOT NULL,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, sequence),
		FOREIGN KEY (run_id) REFERENCES signup_runs(id) ON DELETE CASCADE
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS generated_scripts (
		id VARCHAR(36) PRIMARY KEY,
		requirement TEXT NOT NULL,
		framework_key VARCHAR(64) NOT NULL,
		language VARCHAR(32) NOT NULL DEFAULT '',
		provider VARCHAR(32) NOT NULL DEFAULT '',
		model VARCHAR(128) NOT NULL DEFAULT '',
		source VARCHAR(16) NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		code TEXT NOT NULL DEFAULT '',
		file_path VARCHAR(512) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scripts_created ON generated_scripts (created_at)`,
	`CREATE TABLE IF NOT EXISTS signup_runs (
		id VARCHAR(36) PRIMARY KEY,
		url TEXT NOT NULL,
		username VARCHAR(255) NOT NULL DEFAULT '',
		email VARCHAR(255) NOT NULL DEFAULT '',
		temporal_run_id VARCHAR(255) NOT NULL DEFAULT '',
		temporal_workflow_id VARCHAR(255) NOT NULL DEFAULT '',
		status VARCHAR(16) NOT NULL,
		started_at TIMESTAMPTZ NULL,
		completed_at TIMESTAMPTZ NULL,
		error_message TEXT NOT NULL DEFAULT '',
		screenshot_path VARCHAR(512) NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_started ON signup_runs (started_at)`,
	`CREATE TABLE IF NOT EXISTS step_results (
		run_id VARCHAR(36) NOT NULL REFERENCES signup_runs(id) ON DELETE CASCADE,
		sequence INT NOT NULL,
		name VARCHAR(64) NOT NULL,
		selector VARCHAR(512) NOT NULL DEFAULT '',
		status VARCHAR(16) NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		duration_ms BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, sequence)
	)`,
}
