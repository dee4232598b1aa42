package models

import (
	"time"
)

// ==================== Framework Types ====================

// Framework describes a target test framework the generator can emit code for
type Framework struct {
	Choice    string `json:"choice" yaml:"choice"`       // Menu choice, e.g. "4"
	Key       string `json:"key" yaml:"key"`             // Stable key, e.g. "playwright-js"
	Name      string `json:"name" yaml:"name"`           // Display name
	Language  string `json:"language" yaml:"language"`   // python, javascript, go
	Extension string `json:"extension" yaml:"extension"` // File extension including the dot
	Prompt    string `json:"prompt,omitempty" yaml:"prompt"`
}

// ==================== Generated Script Types ====================

// ScriptSource tells where the content of a generated script came from
type ScriptSource string

const (
	SourceLLM      ScriptSource = "llm"      // Fresh provider response
	SourceCache    ScriptSource = "cache"    // Cached provider response
	SourceTemplate ScriptSource = "template" // Built-in template, no provider involved
)

// GeneratedScript represents a stored test script produced by the generator
type GeneratedScript struct {
	ID           string       `json:"id" db:"id"`
	Requirement  string       `json:"requirement" db:"requirement"`
	FrameworkKey string       `json:"framework_key" db:"framework_key"`
	Language     string       `json:"language" db:"language"`
	Provider     string       `json:"provider" db:"provider"`
	Model        string       `json:"model,omitempty" db:"model"`
	Source       ScriptSource `json:"source" db:"source"`
	Content      string       `json:"content" db:"content"` // Raw provider response
	Code         string       `json:"code" db:"code"`       // Extracted code block
	FilePath     string       `json:"file_path" db:"file_path"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}

// GenerateRequest represents a request to generate a test script
type GenerateRequest struct {
	Requirement  string `json:"requirement"`
	FrameworkKey string `json:"framework_key,omitempty"`
	Choice       string `json:"choice,omitempty"`
	LLMProvider  string `json:"llm_provider,omitempty"`
	SkipCache    bool   `json:"skip_cache,omitempty"`

	// Signup parameterises the built-in sign-up templates
	Signup *SignupInput `json:"signup,omitempty"`
}

// ProviderInfo describes a configured LLM provider
type ProviderInfo struct {
	Name      string `json:"name"`
	Model     string `json:"model"`
	Available bool   `json:"available"`
	Default   bool   `json:"default"`
}

// ==================== Sign-up Flow Types ====================

// SignupInput is the serializable description of a sign-up flow run
type SignupInput struct {
	URL              string `json:"url"`
	Username         string `json:"username"`
	Email            string `json:"email"`
	Password         string `json:"password,omitempty"`
	UsernameSelector string `json:"username_selector,omitempty"`
	EmailSelector    string `json:"email_selector,omitempty"`
	PasswordSelector string `json:"password_selector,omitempty"`
	SubmitSelector   string `json:"submit_selector,omitempty"`
	SuccessSelector  string `json:"success_selector,omitempty"`
	TimeoutSeconds   int    `json:"timeout_seconds,omitempty"`
}

// ==================== Run Types ====================

// SignupRun represents a single execution of the sign-up flow
type SignupRun struct {
	ID                 string     `json:"id" db:"id"`
	URL                string     `json:"url" db:"url"`
	Username           string     `json:"username" db:"username"`
	Email              string     `json:"email" db:"email"`
	TemporalRunID      string     `json:"temporal_run_id" db:"temporal_run_id"`
	TemporalWorkflowID string     `json:"temporal_workflow_id" db:"temporal_workflow_id"`
	Status             RunStatus  `json:"status" db:"status"`
	StartedAt          *time.Time `json:"started_at" db:"started_at"`
	CompletedAt        *time.Time `json:"completed_at" db:"completed_at"`
	ErrorMessage       string     `json:"error_message,omitempty" db:"error_message"`
	ScreenshotPath     string     `json:"screenshot_path,omitempty" db:"screenshot_path"`

	// Computed fields
	Steps []StepResult `json:"steps,omitempty"`
}

// RunStatus represents the status of a run or a step
type RunStatus string

const (
	StatusPending  RunStatus = "pending"
	StatusRunning  RunStatus = "running"
	StatusSuccess  RunStatus = "success"
	StatusFailed   RunStatus = "failed"
	StatusCanceled RunStatus = "canceled"
)

// IsTerminal reports whether no further transitions are expected
func (s RunStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusCanceled
}

// StepResult represents the result of a single sign-up step
type StepResult struct {
	RunID        string    `json:"run_id,omitempty" db:"run_id"`
	Sequence     int       `json:"sequence" db:"sequence"`
	Name         string    `json:"name" db:"name"`
	Selector     string    `json:"selector,omitempty" db:"selector"`
	Status       RunStatus `json:"status" db:"status"`
	ErrorMessage string    `json:"error_message,omitempty" db:"error_message"`
	Duration     int64     `json:"duration_ms" db:"duration_ms"`
}

// SignupResult represents the outcome of a sign-up flow execution
type SignupResult struct {
	RunID          string       `json:"run_id"`
	Status         RunStatus    `json:"status"`
	Steps          []StepResult `json:"steps"`
	SuccessText    string       `json:"success_text,omitempty"`
	ScreenshotPath string       `json:"screenshot_path,omitempty"`
	TotalDuration  int64        `json:"total_duration_ms"`
	ErrorMessage   string       `json:"error_message,omitempty"`
}

// ==================== API Request/Response Types ====================

// StartRunRequest represents a request to start sign-up runs
type StartRunRequest struct {
	SignupInput
	Headless bool `json:"headless"`
	// Accounts runs the same flow once per entry, in parallel
	Accounts []AccountInput `json:"accounts,omitempty"`
}

// AccountInput is one credential set for a parallel run
type AccountInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ==================== WebSocket Message Types ====================

// WSMessage represents a WebSocket message for real-time updates
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
