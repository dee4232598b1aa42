package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dev/bravebird/signup-automation-go/pkg/models"
)

// Postgres is the PostgreSQL-backed Store
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

// NewPostgres creates a connection pool and verifies connectivity
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if poolConfig.MaxConns == 0 {
		poolConfig.MaxConns = 10
	}
	poolConfig.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Close closes the pool
func (db *Postgres) Close() error {
	db.pool.Close()
	return nil
}

// Ping checks the connection
func (db *Postgres) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Migrate creates the tables if they do not exist
func (db *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return nil
}

// ==================== Generated Scripts ====================

// CreateScript stores a generated script
func (db *Postgres) CreateScript(ctx context.Context, s *models.GeneratedScript) error {
	query := `
		INSERT INTO generated_scripts (id, requirement, framework_key, language, provider, model, source, content, code, file_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	_, err := db.pool.Exec(ctx, query,
		s.ID,
		s.Requirement,
		s.FrameworkKey,
		s.Language,
		s.Provider,
		s.Model,
		string(s.Source),
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
func (db *Postgres) GetScript(ctx context.Context, id string) (*models.GeneratedScript, error) {
	query := `
		SELECT id, requirement, framework_key, language, provider, model, source, content, code, file_path, created_at
		FROM generated_scripts
		WHERE id = $1
	`

	var s models.GeneratedScript
	var source string
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.Requirement,
		&s.FrameworkKey,
		&s.Language,
		&s.Provider,
		&s.Model,
		&source,
		&s.Content,
		&s.Code,
		&s.FilePath,
		&s.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get script: %w", err)
	}

	s.Source = models.ScriptSource(source)
	return &s, nil
}

// ListScripts retrieves the most recent scripts without their content
func (db *Postgres) ListScripts(ctx context.Context, limit int) ([]models.GeneratedScript, error) {
	query := `
		SELECT id, requirement, framework_key, language, provider, model, source, file_path, created_at
		FROM generated_scripts
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := db.pool.Query(ctx, query, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}
	defer rows.Close()

	var scripts []models.GeneratedScript
	for rows.Next() {
		var s models.GeneratedScript
		var source string
		err := rows.Scan(
			&s.ID,
			&s.Requirement,
			&s.FrameworkKey,
			&s.Language,
			&s.Provider,
			&s.Model,
			&source,
			&s.FilePath,
			&s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan script: %w", err)
		}
		s.Source = models.ScriptSource(source)
		scripts = append(scripts, s)
	}

	return scripts, rows.Err()
}

// DeleteScript deletes a generated script
func (db *Postgres) DeleteScript(ctx context.Context, id string) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM generated_scripts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete script: %w", err)
	}
	return nil
}

// ==================== Sign-up Runs ====================

// CreateRun stores a new sign-up run
func (db *Postgres) CreateRun(ctx context.Context, run *models.SignupRun) error {
	query := `
		INSERT INTO signup_runs (id, url, username, email, temporal_run_id, temporal_workflow_id, status, started_at, error_message, screenshot_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if run.StartedAt == nil {
		now := time.Now().UTC()
		run.StartedAt = &now
	}

	_, err := db.pool.Exec(ctx, query,
		run.ID,
		run.URL,
		run.Username,
		run.Email,
		run.TemporalRunID,
		run.TemporalWorkflowID,
		string(run.Status),
		run.StartedAt,
		run.ErrorMessage,
		run.ScreenshotPath,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

const runColumns = `id, url, username, email, temporal_run_id, temporal_workflow_id, status,
		       started_at, completed_at, error_message, screenshot_path`

func scanRun(row pgx.Row) (*models.SignupRun, error) {
	var run models.SignupRun
	var status string
	err := row.Scan(
		&run.ID,
		&run.URL,
		&run.Username,
		&run.Email,
		&run.TemporalRunID,
		&run.TemporalWorkflowID,
		&status,
		&run.StartedAt,
		&run.CompletedAt,
		&run.ErrorMessage,
		&run.ScreenshotPath,
	)
	if err != nil {
		return nil, err
	}
	run.Status = models.RunStatus(status)
	return &run, nil
}

// GetRun retrieves a sign-up run by ID
func (db *Postgres) GetRun(ctx context.Context, id string) (*models.SignupRun, error) {
	query := `SELECT ` + runColumns + ` FROM signup_runs WHERE id = $1`

	run, err := scanRun(db.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves the most recent runs
func (db *Postgres) ListRuns(ctx context.Context, limit int) ([]models.SignupRun, error) {
	query := `SELECT ` + runColumns + ` FROM signup_runs ORDER BY started_at DESC LIMIT $1`

	rows, err := db.pool.Query(ctx, query, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.SignupRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// UpdateRunStatus updates the status of a run. Terminal statuses also set completed_at.
func (db *Postgres) UpdateRunStatus(ctx context.Context, id string, status models.RunStatus, errorMsg, screenshotPath string) error {
	query := `
		UPDATE signup_runs
		SET status = $1, error_message = $2,
		    screenshot_path = CASE WHEN $3 <> '' THEN $3 ELSE screenshot_path END,
		    completed_at = CASE WHEN $1 IN ('success', 'failed', 'canceled') THEN NOW() ELSE completed_at END
		WHERE id = $4
	`

	_, err := db.pool.Exec(ctx, query, string(status), errorMsg, screenshotPath, id)
	if err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}
	return nil
}

// ==================== Step Results ====================

// SaveStepResults replaces the recorded steps of a run
func (db *Postgres) SaveStepResults(ctx context.Context, runID string, steps []models.StepResult) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM step_results WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("failed to clear steps: %w", err)
	}

	batch := &pgx.Batch{}
	for _, step := range steps {
		batch.Queue(`
			INSERT INTO step_results (run_id, sequence, name, selector, status, error_message, duration_ms)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			runID, step.Sequence, step.Name, step.Selector, string(step.Status), step.ErrorMessage, step.Duration,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert steps: %w", err)
	}

	return tx.Commit(ctx)
}

// GetStepResults retrieves the steps of a run in execution order
func (db *Postgres) GetStepResults(ctx context.Context, runID string) ([]models.StepResult, error) {
	query := `
		SELECT run_id, sequence, name, selector, status, error_message, duration_ms
		FROM step_results
		WHERE run_id = $1
		ORDER BY sequence
	`

	rows, err := db.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get steps: %w", err)
	}
	defer rows.Close()

	var steps []models.StepResult
	for rows.Next() {
		var step models.StepResult
		var status string
		err := rows.Scan(
			&step.RunID,
			&step.Sequence,
			&step.Name,
			&step.Selector,
			&status,
			&step.ErrorMessage,
			&step.Duration,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		step.Status = models.RunStatus(status)
		steps = append(steps, step)
	}

	return steps, rows.Err()
}
