package workflows_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"dev/bravebird/signup-automation-go/pkg/models"
	"dev/bravebird/signup-automation-go/pkg/temporal/activities"
	"dev/bravebird/signup-automation-go/pkg/temporal/workflows"
)

type SignupWorkflowSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite

	env  *testsuite.TestWorkflowEnvironment
	acts *activities.Activities
}

func TestSignupWorkflowSuite(t *testing.T) {
	suite.Run(t, new(SignupWorkflowSuite))
}

func (s *SignupWorkflowSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	s.acts = &activities.Activities{}
	s.env.RegisterActivity(s.acts)
}

func (s *SignupWorkflowSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func testInput() workflows.SignupWorkflowInput {
	return workflows.SignupWorkflowInput{
		RunID: "run-1",
		Signup: models.SignupInput{
			URL:      "https://example.com/signup",
			Username: "testuser",
			Email:    "testuser@example.com",
			Password: "P@ssw0rd",
		},
		Headless: true,
	}
}

func successSteps() []models.StepResult {
	names := []string{"navigate", "fill_username", "fill_email", "fill_password", "submit", "assert_success"}
	steps := make([]models.StepResult, len(names))
	for i, n := range names {
		steps[i] = models.StepResult{Sequence: i + 1, Name: n, Status: models.StatusSuccess}
	}
	return steps
}

func (s *SignupWorkflowSuite) expectBrowser() {
	s.env.OnActivity(s.acts.InitializeBrowserActivity, mock.Anything, workflows.BrowserInitInput{Headless: true}).
		Return(workflows.BrowserSession{SessionID: "session-1", PageURL: "about:blank"}, nil).Once()
	s.env.OnActivity(s.acts.CloseBrowserActivity, mock.Anything, "session-1").Return(nil).Once()
}

func (s *SignupWorkflowSuite) captureRecords() *[]workflows.RecordRunInput {
	var records []workflows.RecordRunInput
	s.env.OnActivity(s.acts.RecordRunResultActivity, mock.Anything, mock.Anything).
		Return(func(ctx context.Context, in workflows.RecordRunInput) error {
			records = append(records, in)
			return nil
		})
	return &records
}

func (s *SignupWorkflowSuite) Test_Success() {
	s.expectBrowser()
	records := s.captureRecords()
	s.env.OnActivity(s.acts.RunSignupActivity, mock.Anything, mock.MatchedBy(func(in workflows.RunSignupInput) bool {
		return in.SessionID == "session-1" && in.RunID == "run-1" && in.Signup.Username == "testuser"
	})).Return(models.SignupResult{
		RunID:       "run-1",
		Status:      models.StatusSuccess,
		Steps:       successSteps(),
		SuccessText: "Welcome",
	}, nil).Once()

	s.env.ExecuteWorkflow(workflows.SignupFlowWorkflow, testInput())

	s.Require().True(s.env.IsWorkflowCompleted())
	s.Require().NoError(s.env.GetWorkflowError())

	var result models.SignupResult
	s.Require().NoError(s.env.GetWorkflowResult(&result))
	s.Equal(models.StatusSuccess, result.Status)
	s.Equal("Welcome", result.SuccessText)
	s.Len(result.Steps, 6)
	s.Empty(result.ScreenshotPath)

	s.Require().Len(*records, 2)
	s.Equal(models.StatusRunning, (*records)[0].Status)
	s.Equal(models.StatusSuccess, (*records)[1].Status)
	s.Len((*records)[1].Steps, 6)
	s.env.AssertNotCalled(s.T(), "TakeScreenshotActivity", mock.Anything, mock.Anything)
}

func (s *SignupWorkflowSuite) Test_StepFailureTakesScreenshot() {
	s.expectBrowser()
	records := s.captureRecords()

	steps := successSteps()[:5]
	steps[4].Status = models.StatusFailed
	steps[4].ErrorMessage = "form submission did not navigate"
	s.env.OnActivity(s.acts.RunSignupActivity, mock.Anything, mock.Anything).Return(models.SignupResult{
		RunID:        "run-1",
		Status:       models.StatusFailed,
		Steps:        steps,
		ErrorMessage: "step submit: form submission did not navigate",
	}, nil).Once()
	s.env.OnActivity(s.acts.TakeScreenshotActivity, mock.Anything, workflows.ScreenshotInput{
		SessionID: "session-1",
		Filename:  "run-1_failure.png",
	}).Return("/tmp/screenshots/run-1_failure.png", nil).Once()

	s.env.ExecuteWorkflow(workflows.SignupFlowWorkflow, testInput())

	s.Require().True(s.env.IsWorkflowCompleted())
	s.Require().NoError(s.env.GetWorkflowError())

	var result models.SignupResult
	s.Require().NoError(s.env.GetWorkflowResult(&result))
	s.Equal(models.StatusFailed, result.Status)
	s.Equal("/tmp/screenshots/run-1_failure.png", result.ScreenshotPath)
	s.Contains(result.ErrorMessage, "submit")

	final := (*records)[len(*records)-1]
	s.Equal(models.StatusFailed, final.Status)
	s.Equal("/tmp/screenshots/run-1_failure.png", final.ScreenshotPath)
	s.Len(final.Steps, 5)
}

func (s *SignupWorkflowSuite) Test_RunActivityIsNotRetried() {
	s.expectBrowser()
	s.captureRecords()
	s.env.OnActivity(s.acts.RunSignupActivity, mock.Anything, mock.Anything).
		Return(models.SignupResult{}, errors.New("browser crashed")).Once()
	s.env.OnActivity(s.acts.TakeScreenshotActivity, mock.Anything, mock.Anything).Return("", errors.New("page gone"))

	s.env.ExecuteWorkflow(workflows.SignupFlowWorkflow, testInput())

	s.Require().NoError(s.env.GetWorkflowError())
	var result models.SignupResult
	s.Require().NoError(s.env.GetWorkflowResult(&result))
	s.Equal(models.StatusFailed, result.Status)
	s.Contains(result.ErrorMessage, "browser crashed")
	s.env.AssertNumberOfCalls(s.T(), "RunSignupActivity", 1)
}

func (s *SignupWorkflowSuite) Test_BrowserInitFailure() {
	records := s.captureRecords()
	s.env.OnActivity(s.acts.InitializeBrowserActivity, mock.Anything, mock.Anything).
		Return(workflows.BrowserSession{}, temporal.NewNonRetryableApplicationError("no chrome", workflows.ErrTypeBrowserLaunch, nil))

	s.env.ExecuteWorkflow(workflows.SignupFlowWorkflow, testInput())

	s.Require().NoError(s.env.GetWorkflowError())
	var result models.SignupResult
	s.Require().NoError(s.env.GetWorkflowResult(&result))
	s.Equal(models.StatusFailed, result.Status)
	s.Contains(result.ErrorMessage, "Failed to initialize browser")
	s.Equal(models.StatusFailed, (*records)[len(*records)-1].Status)
	s.env.AssertNotCalled(s.T(), "RunSignupActivity", mock.Anything, mock.Anything)
}

func (s *SignupWorkflowSuite) Test_ProgressQuery() {
	s.expectBrowser()
	s.captureRecords()
	s.env.OnActivity(s.acts.RunSignupActivity, mock.Anything, mock.Anything).
		Return(models.SignupResult{RunID: "run-1", Status: models.StatusSuccess, Steps: successSteps()}, nil)

	s.env.ExecuteWorkflow(workflows.SignupFlowWorkflow, testInput())
	s.Require().True(s.env.IsWorkflowCompleted())

	value, err := s.env.QueryWorkflow(workflows.ProgressQuery)
	s.Require().NoError(err)
	var progress models.SignupResult
	s.Require().NoError(value.Get(&progress))
	s.Equal("run-1", progress.RunID)
	s.Equal(models.StatusSuccess, progress.Status)
}

func TestParallelSignupWorkflow(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(workflows.SignupFlowWorkflow)

	env.OnWorkflow(workflows.SignupFlowWorkflow, mock.Anything, mock.Anything).
		Return(func(ctx workflow.Context, in workflows.SignupWorkflowInput) (models.SignupResult, error) {
			if in.Signup.Username == "bob" {
				return models.SignupResult{}, errors.New("child crashed")
			}
			assert.Equal(t, "https://example.com/signup", in.Signup.URL)
			return models.SignupResult{RunID: in.RunID, Status: models.StatusSuccess}, nil
		})

	env.ExecuteWorkflow(workflows.ParallelSignupWorkflow, workflows.ParallelSignupInput{
		BatchID: "batch-1",
		Signup:  models.SignupInput{URL: "https://example.com/signup"},
		Accounts: []models.AccountInput{
			{Username: "alice", Email: "alice@example.com", Password: "pw"},
			{Username: "bob", Email: "bob@example.com", Password: "pw"},
			{Username: "carol", Email: "carol@example.com", Password: "pw"},
		},
		RunIDs:   []string{"run-a"},
		Headless: true,
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result workflows.ParallelSignupResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Len(t, result.Results, 3)

	assert.Equal(t, "run-a", result.Results[0].RunID)
	assert.Equal(t, models.StatusSuccess, result.Results[0].Status)

	assert.Equal(t, "batch-1-2", result.Results[1].RunID)
	assert.Equal(t, models.StatusFailed, result.Results[1].Status)
	assert.Contains(t, result.Results[1].ErrorMessage, "child crashed")

	assert.Equal(t, "batch-1-3", result.Results[2].RunID)
	assert.Equal(t, models.StatusSuccess, result.Results[2].Status)
}
