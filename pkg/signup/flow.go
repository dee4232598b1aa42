// Package signup drives a website sign-up form: open the page, fill the
// username, email and password fields, submit while waiting for the resulting
// navigation, then confirm that the success message is present.
package signup

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-rod/rod"

	"dev/bravebird/signup-automation-go/pkg/models"
)

var (
	ErrInvalidFlow     = errors.New("invalid sign-up flow")
	ErrNavigation      = errors.New("navigation failed")
	ErrElementNotFound = errors.New("element not found")
	ErrSubmit          = errors.New("form submission did not navigate")
	ErrSuccessMissing  = errors.New("success message not found")
)

// Step names, in execution order
const (
	StepNavigate      = "navigate"
	StepFillUsername  = "fill_username"
	StepFillEmail     = "fill_email"
	StepFillPassword  = "fill_password"
	StepSubmit        = "submit"
	StepAssertSuccess = "assert_success"
)

// DefaultTimeout bounds every individual step
const DefaultTimeout = 30 * time.Second

// Credentials are the values typed into the sign-up form
type Credentials struct {
	Username string
	Email    string
	Password string
}

// Selectors locate the form controls and the success indicator
type Selectors struct {
	Username string
	Email    string
	Password string
	Submit   string
	Success  string
}

// DefaultSelectors returns the selectors of a conventional sign-up form
func DefaultSelectors() Selectors {
	return Selectors{
		Username: "input[name=username]",
		Email:    "input[name=email]",
		Password: "input[name=password]",
		Submit:   "button[type=submit]",
		Success:  ".success-message",
	}
}

// Flow is a complete sign-up scenario
type Flow struct {
	URL         string
	Credentials Credentials
	Selectors   Selectors
	Timeout     time.Duration
}

// DefaultFlow returns the canonical scenario: a test user signing up on example.com
func DefaultFlow() Flow {
	return Flow{
		URL: "https://example.com/signup",
		Credentials: Credentials{
			Username: "testuser",
			Email:    "testuser@example.com",
			Password: "P@ssw0rd",
		},
		Selectors: DefaultSelectors(),
		Timeout:   DefaultTimeout,
	}
}

// FromInput builds a flow from its serialized form, filling unset selectors
// and the timeout with defaults
func FromInput(in models.SignupInput) Flow {
	sel := DefaultSelectors()
	if in.UsernameSelector != "" {
		sel.Username = in.UsernameSelector
	}
	if in.EmailSelector != "" {
		sel.Email = in.EmailSelector
	}
	if in.PasswordSelector != "" {
		sel.Password = in.PasswordSelector
	}
	if in.SubmitSelector != "" {
		sel.Submit = in.SubmitSelector
	}
	if in.SuccessSelector != "" {
		sel.Success = in.SuccessSelector
	}

	timeout := DefaultTimeout
	if in.TimeoutSeconds > 0 {
		timeout = time.Duration(in.TimeoutSeconds) * time.Second
	}

	return Flow{
		URL: in.URL,
		Credentials: Credentials{
			Username: in.Username,
			Email:    in.Email,
			Password: in.Password,
		},
		Selectors: sel,
		Timeout:   timeout,
	}
}

// Validate checks that the flow can be executed.
// Empty credential values are allowed; an empty field is filled with "".
func (f Flow) Validate() error {
	u, err := url.Parse(f.URL)
	if err != nil {
		return fmt.Errorf("%w: bad url %q: %v", ErrInvalidFlow, f.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: url must be http or https, got %q", ErrInvalidFlow, f.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: url has no host: %q", ErrInvalidFlow, f.URL)
	}

	for _, c := range []struct{ name, sel string }{
		{"username", f.Selectors.Username},
		{"email", f.Selectors.Email},
		{"password", f.Selectors.Password},
		{"submit", f.Selectors.Submit},
		{"success", f.Selectors.Success},
	} {
		if c.sel == "" {
			return fmt.Errorf("%w: %s selector is empty", ErrInvalidFlow, c.name)
		}
	}
	return nil
}

// Result is the outcome of one flow execution
type Result struct {
	Status      models.RunStatus
	Steps       []models.StepResult
	SuccessText string
	Duration    time.Duration
}

// StepObserver is called after every executed step, in order
type StepObserver func(models.StepResult)

// Run executes the flow on the given page
func (f Flow) Run(ctx context.Context, page *rod.Page) (Result, error) {
	return f.run(ctx, &rodDriver{page: page}, nil)
}

// RunObserved is Run with a callback per finished step
func (f Flow) RunObserved(ctx context.Context, page *rod.Page, observe StepObserver) (Result, error) {
	return f.run(ctx, &rodDriver{page: page}, observe)
}

// driver is the browser surface the flow needs
type driver interface {
	Navigate(ctx context.Context, url string) error
	Fill(ctx context.Context, selector, value string) error
	// SubmitAndWaitNavigation must arm the navigation wait before clicking
	SubmitAndWaitNavigation(ctx context.Context, selector string) error
	WaitText(ctx context.Context, selector string) (string, error)
}

func (f Flow) run(ctx context.Context, d driver, observe StepObserver) (Result, error) {
	result := Result{Status: models.StatusRunning}
	start := time.Now()

	if err := f.Validate(); err != nil {
		result.Status = models.StatusFailed
		result.Duration = time.Since(start)
		return result, err
	}

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	steps := []struct {
		name     string
		selector string
		exec     func(ctx context.Context) error
	}{
		{StepNavigate, "", func(ctx context.Context) error {
			return d.Navigate(ctx, f.URL)
		}},
		{StepFillUsername, f.Selectors.Username, func(ctx context.Context) error {
			return d.Fill(ctx, f.Selectors.Username, f.Credentials.Username)
		}},
		{StepFillEmail, f.Selectors.Email, func(ctx context.Context) error {
			return d.Fill(ctx, f.Selectors.Email, f.Credentials.Email)
		}},
		{StepFillPassword, f.Selectors.Password, func(ctx context.Context) error {
			return d.Fill(ctx, f.Selectors.Password, f.Credentials.Password)
		}},
		{StepSubmit, f.Selectors.Submit, func(ctx context.Context) error {
			return d.SubmitAndWaitNavigation(ctx, f.Selectors.Submit)
		}},
		{StepAssertSuccess, f.Selectors.Success, func(ctx context.Context) error {
			text, err := d.WaitText(ctx, f.Selectors.Success)
			result.SuccessText = text
			return err
		}},
	}

	for i, step := range steps {
		stepStart := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, timeout)
		err := step.exec(stepCtx)
		cancel()

		sr := models.StepResult{
			Sequence: i + 1,
			Name:     step.name,
			Selector: step.selector,
			Status:   models.StatusSuccess,
			Duration: time.Since(stepStart).Milliseconds(),
		}
		if err != nil {
			sr.Status = models.StatusFailed
			sr.ErrorMessage = err.Error()
			result.Steps = append(result.Steps, sr)
			if observe != nil {
				observe(sr)
			}
			result.Status = models.StatusFailed
			result.Duration = time.Since(start)
			return result, fmt.Errorf("step %s: %w", step.name, err)
		}
		result.Steps = append(result.Steps, sr)
		if observe != nil {
			observe(sr)
		}
	}

	result.Status = models.StatusSuccess
	result.Duration = time.Since(start)
	return result, nil
}
