package browser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"

	"dev/bravebird/signup-automation-go/pkg/metrics"
)

// ErrSessionNotFound is returned when a session ID is unknown to the pool
var ErrSessionNotFound = errors.New("browser session not found")

// LaunchOptions configures how Chrome is started
type LaunchOptions struct {
	Headless bool
	// Bin overrides the browser binary; empty falls back to CHROME_BIN, then rod's download
	Bin string
}

// Session holds a launched browser and its working page
type Session struct {
	ID        string
	Browser   *rod.Browser
	Page      *rod.Page
	CreatedAt time.Time
}

// Launch starts a browser and opens a blank page
func Launch(opts LaunchOptions) (*Session, error) {
	l := launcher.New()

	bin := opts.Bin
	if bin == "" {
		bin = os.Getenv("CHROME_BIN")
	}
	if bin != "" {
		l = l.Bin(bin)
	}

	l = l.Headless(opts.Headless)

	// Flags needed inside containers
	l = l.Set("no-sandbox")
	l = l.Set("disable-gpu")
	l = l.Set("disable-dev-shm-usage")

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := connectOrKill(browser.Connect, l.Kill); err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		browser.Close()
		l.Kill()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &Session{
		ID:        uuid.New().String(),
		Browser:   browser,
		Page:      page,
		CreatedAt: time.Now(),
	}, nil
}

// connectOrKill kills the launched process when the connection fails
func connectOrKill(connect func() error, kill func()) error {
	if err := connect(); err != nil {
		kill()
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	return nil
}

// Close shuts the browser down
func (s *Session) Close() error {
	if s.Browser == nil {
		return nil
	}
	return s.Browser.Close()
}

// Screenshot captures the current page as PNG into dir/filename
func (s *Session) Screenshot(dir, filename string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create screenshot dir: %w", err)
	}

	data, err := s.Page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return "", fmt.Errorf("failed to take screenshot: %w", err)
	}

	path := filepath.Join(dir, filepath.Base(filename))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save screenshot: %w", err)
	}
	return path, nil
}

// Pool manages live browser sessions by ID
type Pool struct {
	sessions map[string]*Session
	launch   func(LaunchOptions) (*Session, error)
	mu       sync.RWMutex
}

// NewPool creates an empty pool
func NewPool() *Pool {
	return &Pool{
		sessions: make(map[string]*Session),
		launch:   Launch,
	}
}

// Open launches a browser and registers its session
func (p *Pool) Open(opts LaunchOptions) (*Session, error) {
	session, err := p.launch(opts)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.sessions[session.ID] = session
	p.mu.Unlock()
	metrics.ActiveBrowsers.Inc()

	return session, nil
}

// Get looks up a session
func (p *Pool) Get(id string) (*Session, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	session, ok := p.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return session, nil
}

// Close closes and forgets a session. Closing an unknown session is a no-op.
func (p *Pool) Close(id string) error {
	p.mu.Lock()
	session, ok := p.sessions[id]
	delete(p.sessions, id)
	p.mu.Unlock()

	if !ok {
		return nil
	}
	metrics.ActiveBrowsers.Dec()
	return session.Close()
}

// CloseAll closes every session, returning the first error
func (p *Pool) CloseAll() error {
	p.mu.Lock()
	sessions := p.sessions
	p.sessions = make(map[string]*Session)
	p.mu.Unlock()

	var firstErr error
	for _, s := range sessions {
		metrics.ActiveBrowsers.Dec()
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Len returns the number of open sessions
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.sessions)
}
