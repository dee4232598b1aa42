// Package scripts writes generated test scripts to disk.
package scripts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

const (
	// DefaultDir is where scripts are written when no directory is configured
	DefaultDir = "generated_scripts"

	nameLimit    = 30
	timeLayout   = "20060102_150405"
	goTestSuffix = "_test.go"
)

// FileName builds test_<safe>_<YYYYMMDD_HHMMSS><ext>, where <safe> is the
// first 30 characters of the requirement with every character that is not a
// letter or digit replaced by '_'. Go scripts get a _test.go suffix so that
// go test compiles them.
func FileName(requirement, ext string, now time.Time) string {
	if ext == ".go" {
		ext = goTestSuffix
	}

	runes := []rune(requirement)
	if len(runes) > nameLimit {
		runes = runes[:nameLimit]
	}

	var sb strings.Builder
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}

	return fmt.Sprintf("test_%s_%s%s", sb.String(), now.Format(timeLayout), ext)
}

// Writer saves scripts under Dir
type Writer struct {
	Dir string
	Now func() time.Time
}

// NewWriter creates a writer for dir
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = DefaultDir
	}
	return &Writer{Dir: dir, Now: time.Now}
}

// Save writes content to a new file named after the requirement and returns its path
func (w *Writer) Save(content, requirement, ext string) (string, error) {
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create scripts directory: %w", err)
	}

	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	path := filepath.Join(w.Dir, FileName(requirement, ext, now()))

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write script: %w", err)
	}
	return path, nil
}

// Read returns the content of a previously saved script.
// Paths outside Dir are rejected.
func (w *Writer) Read(path string) ([]byte, error) {
	rel, err := filepath.Rel(w.Dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("script path %q is outside %q", path, w.Dir)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return data, nil
}
