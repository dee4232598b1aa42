package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"dev/bravebird/signup-automation-go/pkg/models"
)

// GenerationQuery reports a GenerationState for a generation workflow
const GenerationQuery = "getGeneration"

// GenerationState is the progress of one generation workflow. Script is set
// once the status is success.
type GenerationState struct {
	Status models.RunStatus        `json:"status"`
	Script *models.GeneratedScript `json:"script,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

// ScriptGenerationWorkflow generates one test script in an activity, so slow
// or flaky providers are retried by the server instead of the caller
func ScriptGenerationWorkflow(ctx workflow.Context, req models.GenerateRequest) (models.GeneratedScript, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting script generation", "framework", req.FrameworkKey, "choice", req.Choice, "provider", req.LLMProvider)

	state := GenerationState{Status: models.StatusRunning}
	if err := workflow.SetQueryHandler(ctx, GenerationQuery, func() (GenerationState, error) {
		return state, nil
	}); err != nil {
		logger.Error("Failed to register query handler", "error", err)
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        2 * time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        time.Minute,
			MaximumAttempts:        DefaultRetryAttempts,
			NonRetryableErrorTypes: []string{ErrTypeInvalidRequest},
		},
	})

	var script models.GeneratedScript
	if err := workflow.ExecuteActivity(ctx, "GenerateScriptActivity", req).Get(ctx, &script); err != nil {
		state.Status = statusFromError(err)
		state.Error = err.Error()
		return models.GeneratedScript{}, err
	}
	state.Status = models.StatusSuccess
	state.Script = &script

	logger.Info("Script generated", "id", script.ID, "source", script.Source, "path", script.FilePath)
	return script, nil
}
