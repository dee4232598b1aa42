package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"PORT", "DB_DRIVER", "DB_DSN", "MYSQL_DSN", "REDIS_ADDR", "CACHE_TTL",
		"BROWSER_HEADLESS", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "OLLAMA_HOST",
		"SCRIPTS_DIR", "LLM_PROVIDER",
	} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.False(t, cfg.Database.Enabled())
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTL)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "generated_scripts", cfg.Output.ScriptsDir)
	assert.Equal(t, "localhost:7233", cfg.Temporal.HostPort)
	assert.Equal(t, "openai", cfg.LLM.Default)
	assert.Empty(t, cfg.LLM.Providers)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://localhost/signup")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("CACHE_TTL", "1h")
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OLLAMA_HOST", "http://ollama:11434")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
	assert.False(t, cfg.Browser.Headless)

	require.Contains(t, cfg.LLM.Providers, "openai")
	assert.Equal(t, "sk-test", cfg.LLM.Providers["openai"].APIKey)
	assert.Equal(t, "gpt-3.5-turbo", cfg.LLM.Providers["openai"].Model)
	assert.Equal(t, "http://ollama:11434", cfg.LLM.Providers["ollama"].BaseURL)
}

func TestLoadLegacyMySQLDSN(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("MYSQL_DSN", "root:pw@tcp(localhost:3306)/signup")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "root:pw@tcp(localhost:3306)/signup", cfg.Database.DSN)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"DB_DRIVER", "sqlite"},
		{"REDIS_DB", "zero"},
		{"CACHE_TTL", "forever"},
		{"BROWSER_HEADLESS", "maybe"},
		{"SERVER_SHUTDOWN_TIMEOUT", "10"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signup.env")
	require.NoError(t, os.WriteFile(path, []byte("OPENAI_API_KEY=sk-from-file\nOPENAI_MODEL=gpt-from-file\n"), 0600))
	t.Setenv("ENV_FILE", path)

	// Unset, with t.Setenv restoring the previous values afterwards
	t.Setenv("OPENAI_API_KEY", "")
	require.NoError(t, os.Unsetenv("OPENAI_API_KEY"))
	t.Setenv("OPENAI_MODEL", "gpt-4o")

	cfg, err := Load()
	require.NoError(t, err)

	require.Contains(t, cfg.LLM.Providers, "openai")
	assert.Equal(t, "sk-from-file", cfg.LLM.Providers["openai"].APIKey)
	// The process environment wins over the file
	assert.Equal(t, "gpt-4o", cfg.LLM.Providers["openai"].Model)
}

func TestLoadMissingEnvFile(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	_, err := Load()
	assert.NoError(t, err)
}
