package scripts

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 7, 24, 22, 32, 14, 0, time.UTC)

func TestFileName(t *testing.T) {
	tests := []struct {
		name        string
		requirement string
		ext         string
		want        string
	}{
		{
			name:        "sign up",
			requirement: "successful sign up",
			ext:         ".js",
			want:        "test_successful_sign_up_20250724_223214.js",
		},
		{
			name:        "truncated to thirty characters",
			requirement: "user registration with email verification and captcha",
			ext:         ".py",
			want:        "test_user_registration_with_email_v_20250724_223214.py",
		},
		{
			name:        "punctuation replaced",
			requirement: "login: a/b?",
			ext:         ".go",
			want:        "test_login__a_b__20250724_223214_test.go",
		},
		{
			name:        "go scripts are test files",
			requirement: "successful sign up",
			ext:         ".go",
			want:        "test_successful_sign_up_20250724_223214_test.go",
		},
		{
			name:        "unicode letters kept",
			requirement: "inscription réussie",
			ext:         ".js",
			want:        "test_inscription_réussie_20250724_223214.js",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.requirement, tt.ext, fixedNow))
		})
	}
}

func TestWriterSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	w := NewWriter(dir)
	w.Now = func() time.Time { return fixedNow }

	path, err := w.Save("console.log('hi')\n", "successful sign up", ".js")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "test_successful_sign_up_20250724_223214.js"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "console.log('hi')\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm()&0644)

	got, err := w.Read(path)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestWriterReadOutsideDir(t *testing.T) {
	w := NewWriter(t.TempDir())
	_, err := w.Read("/etc/passwd")
	assert.Error(t, err)
}

func TestNewWriterDefaultDir(t *testing.T) {
	assert.Equal(t, DefaultDir, NewWriter("").Dir)
}
