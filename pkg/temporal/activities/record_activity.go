package activities

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"

	"dev/bravebird/signup-automation-go/pkg/metrics"
	"dev/bravebird/signup-automation-go/pkg/temporal/workflows"
)

// RecordRunResultActivity writes the run status and, when present, its steps
func (a *Activities) RecordRunResultActivity(ctx context.Context, input workflows.RecordRunInput) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Recording run result", "runID", input.RunID, "status", input.Status)

	if input.Status.IsTerminal() {
		metrics.RecordSignupRun(string(input.Status))
	}

	if a.Store == nil {
		return nil
	}

	if err := a.Store.UpdateRunStatus(ctx, input.RunID, input.Status, input.ErrorMessage, input.ScreenshotPath); err != nil {
		return fmt.Errorf("update run %s: %w", input.RunID, err)
	}
	if len(input.Steps) > 0 {
		if err := a.Store.SaveStepResults(ctx, input.RunID, input.Steps); err != nil {
			return fmt.Errorf("save steps for run %s: %w", input.RunID, err)
		}
	}
	return nil
}
