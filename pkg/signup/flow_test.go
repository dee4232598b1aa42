package signup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dev/bravebird/signup-automation-go/pkg/models"
)

// fakeDriver records calls and fails on demand
type fakeDriver struct {
	calls    []string
	failOn   string
	failErr  error
	text     string
	deadline bool
}

func (d *fakeDriver) record(call string) error {
	d.calls = append(d.calls, call)
	if d.failOn == call {
		return d.failErr
	}
	return nil
}

func (d *fakeDriver) Navigate(ctx context.Context, url string) error {
	_, d.deadline = ctx.Deadline()
	return d.record("navigate " + url)
}

func (d *fakeDriver) Fill(ctx context.Context, selector, value string) error {
	return d.record(fmt.Sprintf("fill %s=%s", selector, value))
}

func (d *fakeDriver) SubmitAndWaitNavigation(ctx context.Context, selector string) error {
	return d.record("submit " + selector)
}

func (d *fakeDriver) WaitText(ctx context.Context, selector string) (string, error) {
	if err := d.record("wait " + selector); err != nil {
		return "", err
	}
	return d.text, nil
}

func TestRun_Success(t *testing.T) {
	d := &fakeDriver{text: "Welcome aboard"}
	flow := DefaultFlow()

	result, err := flow.run(context.Background(), d, nil)
	require.NoError(t, err)

	assert.Equal(t, models.StatusSuccess, result.Status)
	assert.Equal(t, "Welcome aboard", result.SuccessText)
	assert.True(t, d.deadline, "steps should run under a deadline")
	assert.Equal(t, []string{
		"navigate https://example.com/signup",
		"fill input[name=username]=testuser",
		"fill input[name=email]=testuser@example.com",
		"fill input[name=password]=P@ssw0rd",
		"submit button[type=submit]",
		"wait .success-message",
	}, d.calls)

	require.Len(t, result.Steps, 6)
	wantNames := []string{StepNavigate, StepFillUsername, StepFillEmail, StepFillPassword, StepSubmit, StepAssertSuccess}
	for i, step := range result.Steps {
		assert.Equal(t, i+1, step.Sequence)
		assert.Equal(t, wantNames[i], step.Name)
		assert.Equal(t, models.StatusSuccess, step.Status)
	}
}

func TestRun_StopsAtFirstFailure(t *testing.T) {
	tests := []struct {
		name      string
		failOn    string
		failErr   error
		wantSteps int
		wantErr   error
	}{
		{
			name:      "navigation fails",
			failOn:    "navigate https://example.com/signup",
			failErr:   ErrNavigation,
			wantSteps: 1,
			wantErr:   ErrNavigation,
		},
		{
			name:      "email field missing",
			failOn:    "fill input[name=email]=testuser@example.com",
			failErr:   fmt.Errorf("%w: input[name=email]", ErrElementNotFound),
			wantSteps: 3,
			wantErr:   ErrElementNotFound,
		},
		{
			name:      "submit does not navigate",
			failOn:    "submit button[type=submit]",
			failErr:   ErrSubmit,
			wantSteps: 5,
			wantErr:   ErrSubmit,
		},
		{
			name:      "success message missing",
			failOn:    "wait .success-message",
			failErr:   ErrSuccessMissing,
			wantSteps: 6,
			wantErr:   ErrSuccessMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDriver{failOn: tt.failOn, failErr: tt.failErr}

			result, err := DefaultFlow().run(context.Background(), d, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)

			assert.Equal(t, models.StatusFailed, result.Status)
			require.Len(t, result.Steps, tt.wantSteps)
			assert.Len(t, d.calls, tt.wantSteps)

			last := result.Steps[len(result.Steps)-1]
			assert.Equal(t, models.StatusFailed, last.Status)
			assert.NotEmpty(t, last.ErrorMessage)
			for _, step := range result.Steps[:len(result.Steps)-1] {
				assert.Equal(t, models.StatusSuccess, step.Status)
			}
		})
	}
}

func TestRun_InvalidFlowTouchesNothing(t *testing.T) {
	d := &fakeDriver{}
	flow := DefaultFlow()
	flow.URL = "ftp://example.com"

	result, err := flow.run(context.Background(), d, nil)
	require.ErrorIs(t, err, ErrInvalidFlow)
	assert.Equal(t, models.StatusFailed, result.Status)
	assert.Empty(t, d.calls)
	assert.Empty(t, result.Steps)
}

func TestRun_EmptyCredentialsAreFilled(t *testing.T) {
	d := &fakeDriver{}
	flow := DefaultFlow()
	flow.Credentials = Credentials{}

	_, err := flow.run(context.Background(), d, nil)
	require.NoError(t, err)
	assert.Contains(t, d.calls, "fill input[name=username]=")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Flow)
		wantErr bool
	}{
		{"default", func(f *Flow) {}, false},
		{"http url", func(f *Flow) { f.URL = "http://localhost:8080/register" }, false},
		{"relative url", func(f *Flow) { f.URL = "/signup" }, true},
		{"no host", func(f *Flow) { f.URL = "https:///signup" }, true},
		{"javascript url", func(f *Flow) { f.URL = "javascript:alert(1)" }, true},
		{"empty submit selector", func(f *Flow) { f.Selectors.Submit = "" }, true},
		{"empty success selector", func(f *Flow) { f.Selectors.Success = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := DefaultFlow()
			tt.mutate(&f)
			err := f.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFlow)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFromInput(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		f := FromInput(models.SignupInput{
			URL:      "https://shop.test/join",
			Username: "alice",
			Email:    "alice@shop.test",
			Password: "hunter2",
		})
		assert.Equal(t, DefaultSelectors(), f.Selectors)
		assert.Equal(t, DefaultTimeout, f.Timeout)
		assert.Equal(t, "alice", f.Credentials.Username)
		assert.Equal(t, "hunter2", f.Credentials.Password)
	})

	t.Run("overrides", func(t *testing.T) {
		f := FromInput(models.SignupInput{
			URL:             "https://shop.test/join",
			SubmitSelector:  "#create-account",
			SuccessSelector: "[data-testid=welcome]",
			TimeoutSeconds:  5,
		})
		assert.Equal(t, "#create-account", f.Selectors.Submit)
		assert.Equal(t, "[data-testid=welcome]", f.Selectors.Success)
		assert.Equal(t, "input[name=email]", f.Selectors.Email)
		assert.Equal(t, 5*time.Second, f.Timeout)
	})
}

func TestElementTextLogsReadFailure(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	got := elementText(".success-message", func() (string, error) {
		return "", errors.New("node detached")
	})
	assert.Empty(t, got)
	assert.Contains(t, buf.String(), "Could not read success text")
	assert.Contains(t, buf.String(), "node detached")

	got = elementText(".success-message", func() (string, error) { return "Welcome!", nil })
	assert.Equal(t, "Welcome!", got)
}
