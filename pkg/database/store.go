// Package database persists generated scripts and sign-up runs in MySQL or
// PostgreSQL.
package database

import (
	"context"
	"fmt"

	"dev/bravebird/signup-automation-go/pkg/models"
)

// Store is the persistence interface shared by the MySQL and PostgreSQL
// backends. Lookups of a missing ID return (nil, nil).
type Store interface {
	// ===== Generated Scripts =====
	CreateScript(ctx context.Context, script *models.GeneratedScript) error
	GetScript(ctx context.Context, id string) (*models.GeneratedScript, error)
	ListScripts(ctx context.Context, limit int) ([]models.GeneratedScript, error)
	DeleteScript(ctx context.Context, id string) error

	// ===== Sign-up Runs =====
	CreateRun(ctx context.Context, run *models.SignupRun) error
	GetRun(ctx context.Context, id string) (*models.SignupRun, error)
	ListRuns(ctx context.Context, limit int) ([]models.SignupRun, error)
	UpdateRunStatus(ctx context.Context, id string, status models.RunStatus, errorMsg, screenshotPath string) error

	// ===== Step Results =====
	SaveStepResults(ctx context.Context, runID string, steps []models.StepResult) error
	GetStepResults(ctx context.Context, runID string) ([]models.StepResult, error)

	// Migrate creates the tables if they do not exist
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// DefaultListLimit caps list queries when no limit is given
const DefaultListLimit = 100

// Open connects to the backend named by driver ("mysql" or "postgres")
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "mysql":
		return NewMySQL(ctx, dsn)
	case "postgres", "postgresql", "pgx":
		return NewPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func listLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return DefaultListLimit
	}
	return limit
}
