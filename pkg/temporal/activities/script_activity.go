package activities

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"dev/bravebird/signup-automation-go/pkg/frameworks"
	"dev/bravebird/signup-automation-go/pkg/generator"
	"dev/bravebird/signup-automation-go/pkg/models"
	"dev/bravebird/signup-automation-go/pkg/signup"
	"dev/bravebird/signup-automation-go/pkg/temporal/workflows"
)

// GenerateScriptActivity generates, saves and stores one test script
func (a *Activities) GenerateScriptActivity(ctx context.Context, req models.GenerateRequest) (models.GeneratedScript, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Generating script", "framework", req.FrameworkKey, "choice", req.Choice, "provider", req.LLMProvider)

	if a.Generator == nil {
		return models.GeneratedScript{}, temporal.NewNonRetryableApplicationError("generator not configured", workflows.ErrTypeInvalidRequest, nil)
	}

	// Provider calls can outlast the heartbeat timeout
	a.heartbeat(ctx, "generating")
	stop := keepAlive(ctx, a.heartbeatInterval(ctx), func() {
		a.heartbeat(ctx, "generating")
	})
	script, err := a.Generator.Generate(ctx, req)
	stop()
	if err != nil {
		if isInvalidRequest(err) {
			return models.GeneratedScript{}, temporal.NewNonRetryableApplicationError(err.Error(), workflows.ErrTypeInvalidRequest, err)
		}
		return models.GeneratedScript{}, err
	}
	return *script, nil
}

// isInvalidRequest reports errors that no retry can fix
func isInvalidRequest(err error) bool {
	return errors.Is(err, generator.ErrEmptyRequirement) ||
		errors.Is(err, generator.ErrUnknownProvider) ||
		errors.Is(err, frameworks.ErrUnknownFramework) ||
		errors.Is(err, signup.ErrInvalidFlow)
}
