package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dev/bravebird/signup-automation-go/pkg/models"
)

func openTestStore(t *testing.T, driver, envVar string) Store {
	t.Helper()
	dsn := os.Getenv(envVar)
	if dsn == "" {
		t.Skipf("Skipping: %s not set", envVar)
	}

	ctx := context.Background()
	s, err := Open(ctx, driver, dsn)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMySQLStore(t *testing.T) {
	testStore(t, openTestStore(t, "mysql", "TEST_MYSQL_DSN"))
}

func TestPostgresStore(t *testing.T) {
	testStore(t, openTestStore(t, "postgres", "TEST_POSTGRES_DSN"))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "sqlite", "file::memory:")
	assert.Error(t, err)
}

func TestListLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, listLimit(0))
	assert.Equal(t, DefaultListLimit, listLimit(-3))
	assert.Equal(t, DefaultListLimit, listLimit(5000))
	assert.Equal(t, 20, listLimit(20))
}

func testStore(t *testing.T, s Store) {
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	// Migrate is idempotent
	require.NoError(t, s.Migrate(ctx))

	t.Run("scripts", func(t *testing.T) {
		script := &models.GeneratedScript{
			ID:           uuid.New().String(),
			Requirement:  "successful sign up",
			FrameworkKey: "playwright-js",
			Language:     "javascript",
			Provider:     "openai",
			Model:        "gpt-3.5-turbo",
			Source:       models.SourceLLM,
			Content:      "Sure!\n```js\ncode\n```",
			Code:         "code",
			FilePath:     "generated_scripts/test_successful_sign_up.js",
		}
		require.NoError(t, s.CreateScript(ctx, script))
		assert.False(t, script.CreatedAt.IsZero())

		got, err := s.GetScript(ctx, script.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, script.Code, got.Code)
		assert.Equal(t, models.SourceLLM, got.Source)

		list, err := s.ListScripts(ctx, 10)
		require.NoError(t, err)
		assert.NotEmpty(t, list)

		require.NoError(t, s.DeleteScript(ctx, script.ID))
		got, err = s.GetScript(ctx, script.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("runs and steps", func(t *testing.T) {
		run := &models.SignupRun{
			ID:                 uuid.New().String(),
			URL:                "https://example.com/signup",
			Username:           "testuser",
			Email:              "testuser@example.com",
			TemporalWorkflowID: "signup-test",
			Status:             models.StatusRunning,
		}
		require.NoError(t, s.CreateRun(ctx, run))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, models.StatusRunning, got.Status)
		assert.Nil(t, got.CompletedAt)

		steps := []models.StepResult{
			{Sequence: 1, Name: "navigate", Selector: run.URL, Status: models.StatusSuccess, Duration: 120},
			{Sequence: 2, Name: "fill_username", Selector: "input[name=username]", Status: models.StatusFailed, ErrorMessage: "element not found", Duration: 30000},
		}
		require.NoError(t, s.SaveStepResults(ctx, run.ID, steps))
		// Saving again replaces rather than appends
		require.NoError(t, s.SaveStepResults(ctx, run.ID, steps))

		gotSteps, err := s.GetStepResults(ctx, run.ID)
		require.NoError(t, err)
		require.Len(t, gotSteps, 2)
		assert.Equal(t, "navigate", gotSteps[0].Name)
		assert.Equal(t, models.StatusFailed, gotSteps[1].Status)
		assert.Equal(t, int64(30000), gotSteps[1].Duration)

		require.NoError(t, s.UpdateRunStatus(ctx, run.ID, models.StatusFailed, "step fill_username: element not found", "screenshots/x.png"))
		got, err = s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusFailed, got.Status)
		assert.Equal(t, "screenshots/x.png", got.ScreenshotPath)
		require.NotNil(t, got.CompletedAt)
		assert.WithinDuration(t, time.Now(), *got.CompletedAt, time.Hour)

		runs, err := s.ListRuns(ctx, 5)
		require.NoError(t, err)
		assert.NotEmpty(t, runs)

		missing, err := s.GetRun(ctx, uuid.New().String())
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}
