// Package api exposes script generation and sign-up runs over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"

	"dev/bravebird/signup-automation-go/pkg/database"
	"dev/bravebird/signup-automation-go/pkg/frameworks"
	"dev/bravebird/signup-automation-go/pkg/generator"
	"dev/bravebird/signup-automation-go/pkg/logger"
	"dev/bravebird/signup-automation-go/pkg/models"
	"dev/bravebird/signup-automation-go/pkg/signup"
	"dev/bravebird/signup-automation-go/pkg/temporal/workflows"
)

// DefaultTaskQueue is used when Options.TaskQueue is empty
const DefaultTaskQueue = "signup-automation"

// WorkflowClient is the part of the Temporal client the API uses
type WorkflowClient interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
	CancelWorkflow(ctx context.Context, workflowID string, runID string) error
	QueryWorkflow(ctx context.Context, workflowID string, runID string, queryType string, args ...interface{}) (converter.EncodedValue, error)
}

// Options wires the handler dependencies. Temporal may be nil, in which
// case run endpoints answer 503 and scripts are generated inline.
type Options struct {
	Store         database.Store
	Generator     *generator.Service
	Temporal      WorkflowClient
	TaskQueue     string
	ScreenshotDir string
	Logger        *slog.Logger
	PollInterval  time.Duration
}

// Handlers contains API handlers
type Handlers struct {
	store         database.Store
	generator     *generator.Service
	temporal      WorkflowClient
	taskQueue     string
	screenshotDir string
	log           *slog.Logger
	pollInterval  time.Duration
	upgrader      websocket.Upgrader
}

// NewHandlers creates new API handlers
func NewHandlers(opts Options) *Handlers {
	if opts.Store == nil {
		opts.Store = database.NewMemory()
	}
	if opts.Generator == nil {
		opts.Generator = generator.New(generator.Options{Store: opts.Store})
	}
	if opts.TaskQueue == "" {
		opts.TaskQueue = DefaultTaskQueue
	}
	if opts.ScreenshotDir == "" {
		opts.ScreenshotDir = "/tmp/screenshots"
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}
	return &Handlers{
		store:         opts.Store,
		generator:     opts.Generator,
		temporal:      opts.Temporal,
		taskQueue:     opts.TaskQueue,
		screenshotDir: opts.ScreenshotDir,
		log:           opts.Logger,
		pollInterval:  opts.PollInterval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ==================== Health ====================

// HealthResponse represents the response for the health endpoint.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Health reports the service and the reachability of its store
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    map[string]string{"database": "ok", "temporal": "ok"},
	}
	status := http.StatusOK

	if err := h.store.Ping(r.Context()); err != nil {
		resp.Checks["database"] = "fail"
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	if h.temporal == nil {
		resp.Checks["temporal"] = "disabled"
	}

	writeJSON(w, status, resp)
}

// ==================== Catalogue Handlers ====================

// ListFrameworks lists the frameworks scripts can be generated for
func (h *Handlers) ListFrameworks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.generator.Catalog().All())
}

// ListLLMProviders lists configured LLM providers and their availability
func (h *Handlers) ListLLMProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.generator.Providers(r.Context()))
}

// ==================== Script Handlers ====================

// GenerateScript generates a script. With ?async=true and Temporal
// configured it starts ScriptGenerationWorkflow and answers 202.
func (h *Handlers) GenerateScript(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if r.URL.Query().Get("async") == "true" && h.temporal != nil {
		if _, err := h.generator.ResolveFramework(req.FrameworkKey, req.Choice); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		workflowID := "generate-" + uuid.New().String()
		we, err := h.temporal.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			ID:        workflowID,
			TaskQueue: h.taskQueue,
		}, "ScriptGenerationWorkflow", req)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to start workflow: "+err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{
			"temporal_workflow_id": we.GetID(),
			"temporal_run_id":      we.GetRunID(),
			"status":               string(models.StatusRunning),
			"status_url":           "/api/scripts/generations/" + we.GetID(),
		})
		return
	}

	script, err := h.generator.Generate(ctx, req)
	if err != nil {
		writeError(w, generationStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, script)
}

func generationStatus(err error) int {
	switch {
	case errors.Is(err, generator.ErrEmptyRequirement),
		errors.Is(err, generator.ErrUnknownProvider),
		errors.Is(err, frameworks.ErrUnknownFramework),
		errors.Is(err, signup.ErrInvalidFlow):
		return http.StatusBadRequest
	case errors.Is(err, generator.ErrNoProvider):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// GetGeneration reports an asynchronous generation. A finished script is
// copied into this service's store, since the worker may persist elsewhere.
func (h *Handlers) GetGeneration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.temporal == nil {
		writeError(w, http.StatusServiceUnavailable, "Temporal not available")
		return
	}

	workflowID := mux.Vars(r)["id"]
	value, err := h.temporal.QueryWorkflow(ctx, workflowID, "", workflows.GenerationQuery)
	if err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			writeError(w, http.StatusNotFound, "Generation not found")
			return
		}
		writeError(w, http.StatusBadGateway, "Failed to query workflow: "+err.Error())
		return
	}

	var state workflows.GenerationState
	if err := value.Get(&state); err != nil {
		writeError(w, http.StatusBadGateway, "Failed to decode generation state: "+err.Error())
		return
	}

	if state.Script != nil {
		existing, err := h.store.GetScript(ctx, state.Script.ID)
		switch {
		case err != nil:
			h.log.Warn("failed to look up generated script", "id", state.Script.ID, "error", err)
		case existing == nil:
			if err := h.store.CreateScript(ctx, state.Script); err != nil {
				h.log.Warn("failed to store generated script", "id", state.Script.ID, "error", err)
			}
		}
	}

	writeJSON(w, http.StatusOK, state)
}

// ListScripts lists generated scripts, newest first
func (h *Handlers) ListScripts(w http.ResponseWriter, r *http.Request) {
	scripts, err := h.store.ListScripts(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, scripts)
}

// GetScript retrieves a generated script
func (h *Handlers) GetScript(w http.ResponseWriter, r *http.Request) {
	script, ok := h.loadScript(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, script)
}

// DeleteScript deletes a generated script record; the saved file stays
func (h *Handlers) DeleteScript(w http.ResponseWriter, r *http.Request) {
	script, ok := h.loadScript(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteScript(r.Context(), script.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DownloadScript serves the saved script file as an attachment. The stored
// code is served when the file cannot be read.
func (h *Handlers) DownloadScript(w http.ResponseWriter, r *http.Request) {
	script, ok := h.loadScript(w, r)
	if !ok {
		return
	}

	body := []byte(script.Code)
	name := "script_" + script.ID + ".txt"
	if script.FilePath != "" {
		name = filepath.Base(script.FilePath)
		data, err := h.generator.ReadSaved(script.FilePath)
		if err != nil {
			h.log.Warn("serving stored code", "id", script.ID, "error", err)
		} else {
			body = data
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handlers) loadScript(w http.ResponseWriter, r *http.Request) (*models.GeneratedScript, bool) {
	id := mux.Vars(r)["id"]
	script, err := h.store.GetScript(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if script == nil {
		writeError(w, http.StatusNotFound, "Script not found")
		return nil, false
	}
	return script, true
}

// ==================== Run Handlers ====================

// StartRunResponse is returned when runs are started
type StartRunResponse struct {
	RunIDs             []string `json:"run_ids"`
	BatchID            string   `json:"batch_id,omitempty"`
	TemporalWorkflowID string   `json:"temporal_workflow_id"`
	TemporalRunID      string   `json:"temporal_run_id"`
	Status             string   `json:"status"`
}

// StartRun starts a sign-up run, or one run per account in parallel
func (h *Handlers) StartRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := signup.FromInput(req.SignupInput).Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.temporal == nil {
		writeError(w, http.StatusServiceUnavailable, "Temporal not available")
		return
	}

	if len(req.Accounts) > 0 {
		h.startParallelRuns(w, r, req)
		return
	}

	run := newRun(uuid.New().String(), req.SignupInput)
	if err := h.store.CreateRun(ctx, run); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create run: "+err.Error())
		return
	}

	we, err := h.temporal.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        run.TemporalWorkflowID,
		TaskQueue: h.taskQueue,
	}, "SignupFlowWorkflow", workflows.SignupWorkflowInput{
		RunID:         run.ID,
		Signup:        req.SignupInput,
		Headless:      req.Headless,
		Timeout:       workflows.DefaultRunTimeout,
		RetryAttempts: workflows.DefaultRetryAttempts,
	})
	if err != nil {
		h.failRuns(ctx, err, run.ID)
		writeError(w, http.StatusInternalServerError, "Failed to start workflow: "+err.Error())
		return
	}

	h.log.Info("sign-up run started", "run_id", run.ID, "workflow_id", we.GetID(), "request_id", GetRequestID(ctx))
	writeJSON(w, http.StatusAccepted, StartRunResponse{
		RunIDs:             []string{run.ID},
		TemporalWorkflowID: we.GetID(),
		TemporalRunID:      we.GetRunID(),
		Status:             string(models.StatusRunning),
	})
}

func (h *Handlers) startParallelRuns(w http.ResponseWriter, r *http.Request, req models.StartRunRequest) {
	ctx := r.Context()
	batchID := uuid.New().String()

	runIDs := make([]string, 0, len(req.Accounts))
	for _, account := range req.Accounts {
		in := req.SignupInput
		in.Username = account.Username
		in.Email = account.Email
		in.Password = account.Password

		run := newRun(uuid.New().String(), in)
		if err := h.store.CreateRun(ctx, run); err != nil {
			h.failRuns(ctx, err, runIDs...)
			writeError(w, http.StatusInternalServerError, "Failed to create run: "+err.Error())
			return
		}
		runIDs = append(runIDs, run.ID)
	}

	we, err := h.temporal.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "signup-batch-" + batchID,
		TaskQueue: h.taskQueue,
	}, "ParallelSignupWorkflow", workflows.ParallelSignupInput{
		BatchID:  batchID,
		Signup:   req.SignupInput,
		Accounts: req.Accounts,
		RunIDs:   runIDs,
		Headless: req.Headless,
	})
	if err != nil {
		h.failRuns(ctx, err, runIDs...)
		writeError(w, http.StatusInternalServerError, "Failed to start workflow: "+err.Error())
		return
	}

	h.log.Info("parallel sign-up started", "batch_id", batchID, "runs", len(runIDs), "request_id", GetRequestID(ctx))
	writeJSON(w, http.StatusAccepted, StartRunResponse{
		RunIDs:             runIDs,
		BatchID:            batchID,
		TemporalWorkflowID: we.GetID(),
		TemporalRunID:      we.GetRunID(),
		Status:             string(models.StatusRunning),
	})
}

// newRun builds a pending run; its workflow ID matches the one the
// workflows use, so single and batch runs can be queried the same way
func newRun(id string, in models.SignupInput) *models.SignupRun {
	return &models.SignupRun{
		ID:                 id,
		URL:                in.URL,
		Username:           in.Username,
		Email:              in.Email,
		TemporalWorkflowID: "signup-" + id,
		Status:             models.StatusPending,
	}
}

func (h *Handlers) failRuns(ctx context.Context, cause error, ids ...string) {
	for _, id := range ids {
		if err := h.store.UpdateRunStatus(ctx, id, models.StatusFailed, cause.Error(), ""); err != nil {
			h.log.Warn("failed to mark run as failed", "run_id", id, "error", err)
		}
	}
}

// ListRuns lists sign-up runs, newest first
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runs, err := h.store.ListRuns(ctx, queryLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for i := range runs {
		h.syncRun(ctx, &runs[i])
		runs[i].Steps = nil
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun retrieves a sign-up run with its steps
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}

	h.syncRun(ctx, run)
	if run.Steps == nil {
		steps, err := h.store.GetStepResults(ctx, run.ID)
		if err != nil {
			h.log.Warn("failed to load steps", "run_id", run.ID, "error", err)
		}
		run.Steps = steps
	}

	writeJSON(w, http.StatusOK, run)
}

// syncRun overlays workflow progress on a run the store still shows as
// active, and writes a finished result back. The worker may record results
// in a different store, e.g. when both fall back to memory.
func (h *Handlers) syncRun(ctx context.Context, run *models.SignupRun) {
	if run.Status.IsTerminal() || run.TemporalWorkflowID == "" {
		return
	}
	result, ok := h.queryProgress(ctx, run.TemporalWorkflowID)
	if !ok {
		return
	}

	run.Status = result.Status
	run.Steps = result.Steps
	if result.ErrorMessage != "" {
		run.ErrorMessage = result.ErrorMessage
	}
	if result.ScreenshotPath != "" {
		run.ScreenshotPath = result.ScreenshotPath
	}
	if !result.Status.IsTerminal() {
		return
	}

	if err := h.store.UpdateRunStatus(ctx, run.ID, result.Status, result.ErrorMessage, result.ScreenshotPath); err != nil {
		h.log.Warn("failed to sync run status", "run_id", run.ID, "error", err)
		return
	}
	if len(result.Steps) == 0 {
		return
	}
	existing, err := h.store.GetStepResults(ctx, run.ID)
	if err == nil && len(existing) == 0 {
		if err := h.store.SaveStepResults(ctx, run.ID, result.Steps); err != nil {
			h.log.Warn("failed to sync run steps", "run_id", run.ID, "error", err)
		}
	}
}

// queryProgress asks the sign-up workflow for its current result
func (h *Handlers) queryProgress(ctx context.Context, workflowID string) (models.SignupResult, bool) {
	if h.temporal == nil {
		return models.SignupResult{}, false
	}
	value, err := h.temporal.QueryWorkflow(ctx, workflowID, "", workflows.ProgressQuery)
	if err != nil {
		return models.SignupResult{}, false
	}
	var result models.SignupResult
	if value.Get(&result) != nil || result.Status == "" {
		return models.SignupResult{}, false
	}
	return result, true
}

// CancelRun cancels a running sign-up workflow
func (h *Handlers) CancelRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	h.syncRun(ctx, run)
	if run.Status.IsTerminal() {
		writeError(w, http.StatusConflict, "Run already "+string(run.Status))
		return
	}

	if run.TemporalWorkflowID != "" && h.temporal != nil {
		if err := h.temporal.CancelWorkflow(ctx, run.TemporalWorkflowID, run.TemporalRunID); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to cancel workflow: "+err.Error())
			return
		}
	}

	if err := h.store.UpdateRunStatus(ctx, run.ID, models.StatusCanceled, "Canceled by user", ""); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(models.StatusCanceled)})
}

// StreamRunUpdates streams run updates via WebSocket until the run ends
func (h *Handlers) StreamRunUpdates(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx := r.Context()

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	var lastStatus models.RunStatus
	lastStepCount := -1

	for {
		status, steps, ok := h.runProgress(ctx, runID)
		if ok && (status != lastStatus || len(steps) != lastStepCount) {
			msg := models.WSMessage{
				Type: "run_update",
				Payload: map[string]interface{}{
					"run_id": runID,
					"status": status,
					"steps":  steps,
				},
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
			lastStatus = status
			lastStepCount = len(steps)

			if status.IsTerminal() {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runProgress asks the workflow first and falls back to the store
func (h *Handlers) runProgress(ctx context.Context, runID string) (models.RunStatus, []models.StepResult, bool) {
	run, err := h.store.GetRun(ctx, runID)
	if err != nil || run == nil {
		return "", nil, false
	}

	// The store wins once it holds a terminal status, e.g. after a cancel
	if run.TemporalWorkflowID != "" && !run.Status.IsTerminal() {
		if result, ok := h.queryProgress(ctx, run.TemporalWorkflowID); ok {
			return result.Status, result.Steps, true
		}
	}

	steps, _ := h.store.GetStepResults(ctx, runID)
	return run.Status, steps, true
}

func (h *Handlers) loadRun(w http.ResponseWriter, r *http.Request) (*models.SignupRun, bool) {
	id := mux.Vars(r)["id"]
	run, err := h.store.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "Run not found")
		return nil, false
	}
	return run, true
}

// ==================== Screenshot Handlers ====================

// ServeScreenshot serves a screenshot file
func (h *Handlers) ServeScreenshot(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]

	// Only files directly inside the screenshot directory
	filePath := filepath.Join(h.screenshotDir, filepath.Base(filename))

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		writeError(w, http.StatusNotFound, "Screenshot not found")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeFile(w, r, filePath)
}

// ==================== Helpers ====================

func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
