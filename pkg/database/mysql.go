package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"dev/bravebird/signup-automation-go/pkg/models"
)

// MySQL is the MySQL-backed Store
type MySQL struct {
	conn *sql.DB
}

var _ Store = (*MySQL)(nil)

// NewMySQL opens a MySQL connection. parseTime is forced on so DATETIME
// columns scan into time.Time.
func NewMySQL(ctx context.Context, dsn string) (*MySQL, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	if cfg.Loc == nil {
		cfg.Loc = time.UTC
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn := sql.OpenDB(connector)

	// Configure connection pool
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &MySQL{conn: conn}, nil
}

// Close closes the database connection
func (db *MySQL) Close() error {
	return db.conn.Close()
}

// Ping checks the connection
func (db *MySQL) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Migrate creates the tables if they do not exist
func (db *MySQL) Migrate(ctx context.Context) error {
	for _, stmt := range mysqlSchema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return nil
}

// ==================== Generated Scripts ====================

// CreateScript stores a generated script
func (db *MySQL) CreateScript(ctx context.Context, s *models.GeneratedScript) error {
	query := `
		INSERT INTO generated_scripts (id, requirement, framework_key, language, provider, model, source, content, code, file_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx, query,
		s.ID,
		s.Requirement,
		s.FrameworkKey,
		s.Language,
		s.Provider,
		s.Model,
		s.Source,
		s.Content,
		s.Code,
		s.FilePath,
		s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create script: %w", err)
	}
	return nil
}

// GetScript retrieves a generated script by ID
func (db *MySQL) GetScript(ctx context.Context, id string) (*models.GeneratedScript, error) {
	query := `
		SELECT id, requirement, framework_key, language, provider, model, source, content, code, file_path, created_at
		FROM generated_scripts
		WHERE id = ?
	`

	var s models.GeneratedScript
	err := db.conn.QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&s.Requirement,
		&s.FrameworkKey,
		&s.Language,
		&s.Provider,
		&s.Model,
		&s.Source,
		&s.Content,
		&s.Code,
		&s.FilePath,
		&s.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get script: %w", err)
	}

	return &s, nil
}

// ListScripts retrieves the most recent scripts without their content
func (db *MySQL) ListScripts(ctx context.Context, limit int) ([]models.GeneratedScript, error) {
	query := `
		SELECT id, requirement, framework_key, language, provider, model, source, file_path, created_at
		FROM generated_scripts
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := db.conn.QueryContext(ctx, query, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}
	defer rows.Close()

	var scripts []models.GeneratedScript
	for rows.Next() {
		var s models.GeneratedScript
		err := rows.Scan(
			&s.ID,
			&s.Requirement,
			&s.FrameworkKey,
			&s.Language,
			&s.Provider,
			&s.Model,
			&s.Source,
			&s.FilePath,
			&s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan script: %w", err)
		}
		scripts = append(scripts, s)
	}

	return scripts, rows.Err()
}

// DeleteScript deletes a generated script
func (db *MySQL) DeleteScript(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM generated_scripts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete script: %w", err)
	}
	return nil
}

// ==================== Sign-up Runs ====================

// CreateRun stores a new sign-up run
func (db *MySQL) CreateRun(ctx context.Context, run *models.SignupRun) error {
	query := `
		INSERT INTO signup_runs (id, url, username, email, temporal_run_id, temporal_workflow_id, status, started_at, error_message, screenshot_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if run.StartedAt == nil {
		now := time.Now().UTC()
		run.StartedAt = &now
	}

	_, err := db.conn.ExecContext(ctx, query,
		run.ID,
		run.URL,
		run.Username,
		run.Email,
		run.TemporalRunID,
		run.TemporalWorkflowID,
		run.Status,
		run.StartedAt,
		run.ErrorMessage,
		run.ScreenshotPath,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// GetRun retrieves a sign-up run by ID
func (db *MySQL) GetRun(ctx context.Context, id string) (*models.SignupRun, error) {
	query := `
		SELECT id, url, username, email, temporal_run_id, temporal_workflow_id, status,
		       started_at, completed_at, error_message, screenshot_path
		FROM signup_runs
		WHERE id = ?
	`

	var run models.SignupRun
	err := db.conn.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.URL,
		&run.Username,
		&run.Email,
		&run.TemporalRunID,
		&run.TemporalWorkflowID,
		&run.Status,
		&run.StartedAt,
		&run.CompletedAt,
		&run.ErrorMessage,
		&run.ScreenshotPath,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return &run, nil
}

// ListRuns retrieves the most recent runs
func (db *MySQL) ListRuns(ctx context.Context, limit int) ([]models.SignupRun, error) {
	query := `
		SELECT id, url, username, email, temporal_run_id, temporal_workflow_id, status,
		       started_at, completed_at, error_message, screenshot_path
		FROM signup_runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := db.conn.QueryContext(ctx, query, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.SignupRun
	for rows.Next() {
		var run models.SignupRun
		err := rows.Scan(
			&run.ID,
			&run.URL,
			&run.Username,
			&run.Email,
			&run.TemporalRunID,
			&run.TemporalWorkflowID,
			&run.Status,
			&run.StartedAt,
			&run.CompletedAt,
			&run.ErrorMessage,
			&run.ScreenshotPath,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// UpdateRunStatus updates the status of a run. Terminal statuses also set completed_at.
func (db *MySQL) UpdateRunStatus(ctx context.Context, id string, status models.RunStatus, errorMsg, screenshotPath string) error {
	query := `
		UPDATE signup_runs
		SET status = ?, error_message = ?,
		    screenshot_path = CASE WHEN ? <> '' THEN ? ELSE screenshot_path END,
		    completed_at = CASE WHEN ? IN ('success', 'failed', 'canceled') THEN UTC_TIMESTAMP(6) ELSE completed_at END
		WHERE id = ?
	`

	_, err := db.conn.ExecContext(ctx, query, status, errorMsg, screenshotPath, screenshotPath, status, id)
	if err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}
	return nil
}

// ==================== Step Results ====================

// SaveStepResults replaces the recorded steps of a run
func (db *MySQL) SaveStepResults(ctx context.Context, runID string, steps []models.StepResult) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM step_results WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to clear steps: %w", err)
	}

	query := `
		INSERT INTO step_results (run_id, sequence, name, selector, status, error_message, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for _, step := range steps {
		_, err := tx.ExecContext(ctx, query,
			runID,
			step.Sequence,
			step.Name,
			step.Selector,
			step.Status,
			step.ErrorMessage,
			step.Duration,
		)
		if err != nil {
			return fmt.Errorf("failed to insert step %s: %w", step.Name, err)
		}
	}

	return tx.Commit()
}

// GetStepResults retrieves the steps of a run in execution order
func (db *MySQL) GetStepResults(ctx context.Context, runID string) ([]models.StepResult, error) {
	query := `
		SELECT run_id, sequence, name, selector, status, error_message, duration_ms
		FROM step_results
		WHERE run_id = ?
		ORDER BY sequence
	`

	rows, err := db.conn.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get steps: %w", err)
	}
	defer rows.Close()

	var steps []models.StepResult
	for rows.Next() {
		var step models.StepResult
		err := rows.Scan(
			&step.RunID,
			&step.Sequence,
			&step.Name,
			&step.Selector,
			&step.Status,
			&step.ErrorMessage,
			&step.Duration,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		steps = append(steps, step)
	}

	return steps, rows.Err()
}
