package workflows_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"dev/bravebird/signup-automation-go/pkg/models"
	"dev/bravebird/signup-automation-go/pkg/temporal/activities"
	"dev/bravebird/signup-automation-go/pkg/temporal/workflows"
)

func TestScriptGenerationWorkflow(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	acts := &activities.Activities{}
	env.RegisterActivity(acts)

	req := models.GenerateRequest{Requirement: "sign up a user", FrameworkKey: "go-rod"}
	env.OnActivity(acts.GenerateScriptActivity, mock.Anything, req).Return(models.GeneratedScript{
		ID:           "script-1",
		FrameworkKey: "go-rod",
		Source:       models.SourceTemplate,
		FilePath:     "generated_scripts/test_sign_up_a_user.go",
	}, nil).Once()

	env.ExecuteWorkflow(workflows.ScriptGenerationWorkflow, req)

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var script models.GeneratedScript
	require.NoError(t, env.GetWorkflowResult(&script))
	assert.Equal(t, "script-1", script.ID)
	assert.Equal(t, models.SourceTemplate, script.Source)

	value, err := env.QueryWorkflow(workflows.GenerationQuery)
	require.NoError(t, err)
	var state workflows.GenerationState
	require.NoError(t, value.Get(&state))
	assert.Equal(t, models.StatusSuccess, state.Status)
	require.NotNil(t, state.Script)
	assert.Equal(t, "script-1", state.Script.ID)
	env.AssertExpectations(t)
}

func TestScriptGenerationWorkflow_InvalidRequestNotRetried(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	acts := &activities.Activities{}
	env.RegisterActivity(acts)

	env.OnActivity(acts.GenerateScriptActivity, mock.Anything, mock.Anything).Return(
		models.GeneratedScript{},
		temporal.NewNonRetryableApplicationError("requirement is empty", workflows.ErrTypeInvalidRequest, nil),
	)

	env.ExecuteWorkflow(workflows.ScriptGenerationWorkflow, models.GenerateRequest{})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requirement is empty")
	env.AssertNumberOfCalls(t, "GenerateScriptActivity", 1)

	value, err := env.QueryWorkflow(workflows.GenerationQuery)
	require.NoError(t, err)
	var state workflows.GenerationState
	require.NoError(t, value.Get(&state))
	assert.Equal(t, models.StatusFailed, state.Status)
	assert.Contains(t, state.Error, "requirement is empty")
	assert.Nil(t, state.Script)
}
