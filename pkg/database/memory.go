package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"dev/bravebird/signup-automation-go/pkg/models"
)

// Memory is an in-process Store used when no database is configured.
// Contents are lost on restart.
type Memory struct {
	mu      sync.RWMutex
	scripts map[string]models.GeneratedScript
	runs    map[string]models.SignupRun
	steps   map[string][]models.StepResult
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		scripts: make(map[string]models.GeneratedScript),
		runs:    make(map[string]models.SignupRun),
		steps:   make(map[string][]models.StepResult),
	}
}

func (m *Memory) Migrate(ctx context.Context) error { return nil }
func (m *Memory) Ping(ctx context.Context) error    { return nil }
func (m *Memory) Close() error                      { return nil }

func (m *Memory) CreateScript(ctx context.Context, s *models.GeneratedScript) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[s.ID] = *s
	return nil
}

func (m *Memory) GetScript(ctx context.Context, id string) (*models.GeneratedScript, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.scripts[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Memory) ListScripts(ctx context.Context, limit int) ([]models.GeneratedScript, error) {
	m.mu.RLock()
	out := make([]models.GeneratedScript, 0, len(m.scripts))
	for _, s := range m.scripts {
		s.Content = ""
		s.Code = ""
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if n := listLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (m *Memory) DeleteScript(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scripts, id)
	return nil
}

func (m *Memory) CreateRun(ctx context.Context, run *models.SignupRun) error {
	if run.StartedAt == nil {
		now := time.Now().UTC()
		run.StartedAt = &now
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *run
	stored.Steps = nil
	m.runs[run.ID] = stored
	return nil
}

func (m *Memory) GetRun(ctx context.Context, id string) (*models.SignupRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	return &run, nil
}

func (m *Memory) ListRuns(ctx context.Context, limit int) ([]models.SignupRun, error) {
	m.mu.RLock()
	out := make([]models.SignupRun, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt != nil && out[j].StartedAt != nil && out[i].StartedAt.After(*out[j].StartedAt)
	})
	if n := listLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (m *Memory) UpdateRunStatus(ctx context.Context, id string, status models.RunStatus, errorMsg, screenshotPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil
	}
	run.Status = status
	run.ErrorMessage = errorMsg
	if screenshotPath != "" {
		run.ScreenshotPath = screenshotPath
	}
	if status.IsTerminal() {
		now := time.Now().UTC()
		run.CompletedAt = &now
	}
	m.runs[id] = run
	return nil
}

func (m *Memory) SaveStepResults(ctx context.Context, runID string, steps []models.StepResult) error {
	cp := make([]models.StepResult, len(steps))
	for i, s := range steps {
		s.RunID = runID
		cp[i] = s
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps[runID] = cp
	return nil
}

func (m *Memory) GetStepResults(ctx context.Context, runID string) ([]models.StepResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	steps := m.steps[runID]
	out := make([]models.StepResult, len(steps))
	copy(out, steps)
	return out, nil
}
