package activities

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"dev/bravebird/signup-automation-go/pkg/browser"
	"dev/bravebird/signup-automation-go/pkg/database"
	"dev/bravebird/signup-automation-go/pkg/generator"
	"dev/bravebird/signup-automation-go/pkg/metrics"
	"dev/bravebird/signup-automation-go/pkg/models"
	"dev/bravebird/signup-automation-go/pkg/signup"
	"dev/bravebird/signup-automation-go/pkg/temporal/workflows"
)

// Activities holds activity implementations
type Activities struct {
	Pool          *browser.Pool
	Generator     *generator.Service
	Store         database.Store
	ScreenshotDir string
	BrowserBin    string

	// HeartbeatInterval overrides the interval derived from the heartbeat timeout
	HeartbeatInterval time.Duration

	recordHeartbeat func(ctx context.Context, details ...interface{})
}

// NewActivities creates new activities with an empty browser pool
func NewActivities(gen *generator.Service, store database.Store, screenshotDir string) *Activities {
	return &Activities{
		Pool:          browser.NewPool(),
		Generator:     gen,
		Store:         store,
		ScreenshotDir: screenshotDir,
	}
}

// InitializeBrowserActivity initializes a browser session
func (a *Activities) InitializeBrowserActivity(ctx context.Context, input workflows.BrowserInitInput) (workflows.BrowserSession, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Initializing browser session", "headless", input.Headless)

	session, err := a.Pool.Open(browser.LaunchOptions{
		Headless: input.Headless,
		Bin:      a.BrowserBin,
	})
	if err != nil {
		return workflows.BrowserSession{}, err
	}

	logger.Info("Browser session created", "sessionID", session.ID)

	return workflows.BrowserSession{
		SessionID: session.ID,
		PageURL:   "about:blank",
	}, nil
}

// CloseBrowserActivity closes a browser session
func (a *Activities) CloseBrowserActivity(ctx context.Context, sessionID string) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Closing browser session", "sessionID", sessionID)

	return a.Pool.Close(sessionID)
}

// RunSignupActivity drives the sign-up form in an open session.
// A failing step is reported in the result, not as an error, so the
// workflow can screenshot the page and record the steps that ran.
func (a *Activities) RunSignupActivity(ctx context.Context, input workflows.RunSignupInput) (models.SignupResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Running sign-up flow", "runID", input.RunID, "url", input.Signup.URL)

	session, err := a.Pool.Get(input.SessionID)
	if err != nil {
		return models.SignupResult{}, err
	}

	flow := signup.FromInput(input.Signup)
	if err := flow.Validate(); err != nil {
		return models.SignupResult{}, temporal.NewNonRetryableApplicationError(err.Error(), workflows.ErrTypeInvalidFlow, err)
	}

	var (
		mu   sync.Mutex
		done int
	)
	observe := func(step models.StepResult) {
		metrics.RecordSignupStep(step.Name, time.Duration(step.Duration)*time.Millisecond)
		mu.Lock()
		done = step.Sequence
		mu.Unlock()
		a.heartbeat(ctx, step)
		logger.Info("Sign-up step finished", "runID", input.RunID, "step", step.Name, "status", step.Status)
	}

	// A step can take as long as the flow timeout, which may exceed the
	// heartbeat timeout
	stop := keepAlive(ctx, a.heartbeatInterval(ctx), func() {
		mu.Lock()
		n := done
		mu.Unlock()
		a.heartbeat(ctx, n)
	})
	res, err := flow.RunObserved(ctx, session.Page, observe)
	stop()

	return toSignupResult(ctx, input.RunID, res, err)
}

func toSignupResult(ctx context.Context, runID string, res signup.Result, err error) (models.SignupResult, error) {
	out := models.SignupResult{
		RunID:         runID,
		Status:        res.Status,
		Steps:         res.Steps,
		SuccessText:   res.SuccessText,
		TotalDuration: res.Duration.Milliseconds(),
	}
	for i := range out.Steps {
		out.Steps[i].RunID = runID
	}
	if err == nil {
		return out, nil
	}

	// Cancellation belongs to the workflow, not to the run result
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, ctxErr
	}
	if errors.Is(err, signup.ErrInvalidFlow) {
		return out, temporal.NewNonRetryableApplicationError(err.Error(), workflows.ErrTypeInvalidFlow, err)
	}
	out.Status = models.StatusFailed
	out.ErrorMessage = err.Error()
	return out, nil
}

// TakeScreenshotActivity takes a screenshot
func (a *Activities) TakeScreenshotActivity(ctx context.Context, screenshotInput workflows.ScreenshotInput) (string, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Taking screenshot", "sessionID", screenshotInput.SessionID)

	session, err := a.Pool.Get(screenshotInput.SessionID)
	if err != nil {
		return "", err
	}

	path, err := session.Screenshot(a.ScreenshotDir, screenshotInput.Filename)
	if err != nil {
		return "", fmt.Errorf("screenshot for session %s: %w", screenshotInput.SessionID, err)
	}
	return path, nil
}
