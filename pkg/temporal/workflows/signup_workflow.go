package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"dev/bravebird/signup-automation-go/pkg/models"
)

// Query and error type names shared with the activities and the API
const (
	ProgressQuery         = "getProgress"
	ErrTypeInvalidFlow    = "InvalidFlowError"
	ErrTypeInvalidRequest = "InvalidRequestError"
	ErrTypeBrowserLaunch  = "FatalBrowserError"
	DefaultRunTimeout     = 300
	DefaultRetryAttempts  = 3
)

// SignupWorkflowInput starts one sign-up run
type SignupWorkflowInput struct {
	RunID         string             `json:"run_id"`
	Signup        models.SignupInput `json:"signup"`
	Headless      bool               `json:"headless"`
	Timeout       int                `json:"timeout_seconds"`
	RetryAttempts int                `json:"retry_attempts"`
}

// BrowserSession holds browser session information
type BrowserSession struct {
	SessionID string `json:"session_id"`
	PageURL   string `json:"page_url"`
}

// BrowserInitInput is the input for browser initialization
type BrowserInitInput struct {
	Headless bool `json:"headless"`
}

// RunSignupInput is the input for executing the sign-up flow in a session
type RunSignupInput struct {
	SessionID string             `json:"session_id"`
	RunID     string             `json:"run_id"`
	Signup    models.SignupInput `json:"signup"`
}

// ScreenshotInput is the input for taking a screenshot
type ScreenshotInput struct {
	SessionID string `json:"session_id"`
	Filename  string `json:"filename"`
}

// RecordRunInput persists the state of a run
type RecordRunInput struct {
	RunID          string              `json:"run_id"`
	Status         models.RunStatus    `json:"status"`
	Steps          []models.StepResult `json:"steps,omitempty"`
	ErrorMessage   string              `json:"error_message,omitempty"`
	ScreenshotPath string              `json:"screenshot_path,omitempty"`
}

// SignupFlowWorkflow opens a browser, runs the sign-up flow once and records
// the outcome. A failed run gets a screenshot of the page it stopped on.
func SignupFlowWorkflow(ctx workflow.Context, input SignupWorkflowInput) (models.SignupResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting sign-up workflow", "runID", input.RunID, "url", input.Signup.URL)

	result := models.SignupResult{
		RunID:  input.RunID,
		Status: models.StatusRunning,
		Steps:  make([]models.StepResult, 0, 6),
	}

	// Register query handler for real-time progress
	err := workflow.SetQueryHandler(ctx, ProgressQuery, func() (models.SignupResult, error) {
		return result, nil
	})
	if err != nil {
		logger.Error("Failed to register query handler", "error", err)
	}

	timeout := input.Timeout
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}
	attempts := input.RetryAttempts
	if attempts <= 0 {
		attempts = DefaultRetryAttempts
	}

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: time.Duration(timeout) * time.Second,
		HeartbeatTimeout:    30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        time.Minute,
			MaximumAttempts:        int32(attempts),
			NonRetryableErrorTypes: []string{ErrTypeBrowserLaunch, ErrTypeInvalidFlow},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	startTime := workflow.Now(ctx)

	// Cleanup activities must still run after the workflow is canceled
	cleanupCtx, _ := workflow.NewDisconnectedContext(ctx)

	finish := func() (models.SignupResult, error) {
		result.TotalDuration = workflow.Now(ctx).Sub(startTime).Milliseconds()
		record := RecordRunInput{
			RunID:          result.RunID,
			Status:         result.Status,
			Steps:          result.Steps,
			ErrorMessage:   result.ErrorMessage,
			ScreenshotPath: result.ScreenshotPath,
		}
		if err := workflow.ExecuteActivity(cleanupCtx, "RecordRunResultActivity", record).Get(cleanupCtx, nil); err != nil {
			logger.Warn("Failed to record run result", "runID", result.RunID, "error", err)
		}
		logger.Info("Sign-up workflow completed", "status", result.Status, "duration", result.TotalDuration)
		return result, nil
	}

	err = workflow.ExecuteActivity(ctx, "RecordRunResultActivity", RecordRunInput{
		RunID:  input.RunID,
		Status: models.StatusRunning,
	}).Get(ctx, nil)
	if err != nil {
		logger.Warn("Failed to mark run as running", "runID", input.RunID, "error", err)
	}

	var session BrowserSession
	err = workflow.ExecuteActivity(ctx, "InitializeBrowserActivity", BrowserInitInput{
		Headless: input.Headless,
	}).Get(ctx, &session)
	if err != nil {
		result.Status = statusFromError(err)
		result.ErrorMessage = "Failed to initialize browser: " + err.Error()
		return finish()
	}

	defer func() {
		_ = workflow.ExecuteActivity(cleanupCtx, "CloseBrowserActivity", session.SessionID).Get(cleanupCtx, nil)
	}()

	// Submitting a sign-up form twice can create two accounts
	runCtx := workflow.WithRetryPolicy(ctx, temporal.RetryPolicy{MaximumAttempts: 1})

	var runResult models.SignupResult
	err = workflow.ExecuteActivity(runCtx, "RunSignupActivity", RunSignupInput{
		SessionID: session.SessionID,
		RunID:     input.RunID,
		Signup:    input.Signup,
	}).Get(runCtx, &runResult)
	if err != nil {
		result.Status = statusFromError(err)
		result.ErrorMessage = err.Error()
	} else {
		result.Status = runResult.Status
		result.Steps = runResult.Steps
		result.SuccessText = runResult.SuccessText
		result.ErrorMessage = runResult.ErrorMessage
	}

	if result.Status == models.StatusFailed {
		var screenshotPath string
		_ = workflow.ExecuteActivity(cleanupCtx, "TakeScreenshotActivity", ScreenshotInput{
			SessionID: session.SessionID,
			Filename:  input.RunID + "_failure.png",
		}).Get(cleanupCtx, &screenshotPath)
		result.ScreenshotPath = screenshotPath
	}

	return finish()
}

// statusFromError maps an activity error onto a run status
func statusFromError(err error) models.RunStatus {
	if temporal.IsCanceledError(err) {
		return models.StatusCanceled
	}
	return models.StatusFailed
}

// ParallelSignupInput runs the same flow for several accounts.
// RunIDs are matched to Accounts by index; missing IDs are derived from BatchID.
type ParallelSignupInput struct {
	BatchID  string                `json:"batch_id"`
	Signup   models.SignupInput    `json:"signup"`
	Accounts []models.AccountInput `json:"accounts"`
	RunIDs   []string              `json:"run_ids,omitempty"`
	Headless bool                  `json:"headless"`
}

// ParallelSignupResult holds one result per account, in input order
type ParallelSignupResult struct {
	Results []models.SignupResult `json:"results"`
}

// ParallelSignupWorkflow starts one SignupFlowWorkflow child per account
func ParallelSignupWorkflow(ctx workflow.Context, input ParallelSignupInput) (ParallelSignupResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting parallel sign-up", "batchID", input.BatchID, "accounts", len(input.Accounts))

	result := ParallelSignupResult{
		Results: make([]models.SignupResult, len(input.Accounts)),
	}

	selector := workflow.NewSelector(ctx)

	for i, account := range input.Accounts {
		runID := fmt.Sprintf("%s-%d", input.BatchID, i+1)
		if i < len(input.RunIDs) && input.RunIDs[i] != "" {
			runID = input.RunIDs[i]
		}

		signupInput := input.Signup
		signupInput.Username = account.Username
		signupInput.Email = account.Email
		signupInput.Password = account.Password

		childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID: "signup-" + runID,
		})
		future := workflow.ExecuteChildWorkflow(childCtx, SignupFlowWorkflow, SignupWorkflowInput{
			RunID:         runID,
			Signup:        signupInput,
			Headless:      input.Headless,
			Timeout:       DefaultRunTimeout,
			RetryAttempts: DefaultRetryAttempts,
		})

		idx := i
		selector.AddFuture(future, func(f workflow.Future) {
			var childResult models.SignupResult
			if err := f.Get(ctx, &childResult); err != nil {
				childResult = models.SignupResult{
					RunID:        runID,
					Status:       statusFromError(err),
					ErrorMessage: err.Error(),
				}
			}
			result.Results[idx] = childResult
		})
	}

	// Wait for all child workflows to complete
	for range input.Accounts {
		selector.Select(ctx)
	}

	logger.Info("Parallel sign-up completed", "batchID", input.BatchID, "runs", len(input.Accounts))
	return result, nil
}
