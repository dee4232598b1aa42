// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"dev/bravebird/signup-automation-go/pkg/llm"
)

// Config holds all configuration for the services and CLIs
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Temporal TemporalConfig
	Browser  BrowserConfig
	Output   OutputConfig
	LLM      LLMConfig
}

// AppConfig holds application-level configuration
type AppConfig struct {
	Env       string
	LogLevel  string
	LogFormat string
}

// ServerConfig holds the HTTP API configuration
type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

// DatabaseConfig selects and configures the persistence backend
type DatabaseConfig struct {
	Driver string // "mysql", "postgres" or "" for none
	DSN    string
}

// Enabled returns true if a database is configured
func (d DatabaseConfig) Enabled() bool {
	return d.Driver != "" && d.DSN != ""
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Enabled returns true if a Redis address is configured
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// TemporalConfig holds the Temporal client configuration
type TemporalConfig struct {
	HostPort  string
	Namespace string
	TaskQueue string
}

// BrowserConfig holds browser launch configuration
type BrowserConfig struct {
	Headless bool
	Bin      string
}

// OutputConfig holds the artifact directories
type OutputConfig struct {
	ScriptsDir     string
	ScreenshotsDir string
	CatalogPath    string
}

// LLMConfig holds the provider configurations keyed by provider name
type LLMConfig struct {
	Default   string
	Providers map[string]llm.Config
}

// Load reads configuration from environment variables. Variables in the
// file named by ENV_FILE (default .env) fill in what the environment does
// not set; a missing file is ignored.
func Load() (*Config, error) {
	if err := loadEnvFile(getEnvOrDefault("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{}

	cfg.App.Env = getEnvOrDefault("APP_ENV", "development")
	cfg.App.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	cfg.App.LogFormat = getEnvOrDefault("LOG_FORMAT", "text")

	cfg.Server.Port = getEnvOrDefault("PORT", "8080")
	shutdown, err := getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT: %w", err)
	}
	cfg.Server.ShutdownTimeout = shutdown

	cfg.Database.Driver = os.Getenv("DB_DRIVER")
	cfg.Database.DSN = os.Getenv("DB_DSN")
	if cfg.Database.Driver == "" && os.Getenv("MYSQL_DSN") != "" {
		cfg.Database.Driver = "mysql"
		cfg.Database.DSN = os.Getenv("MYSQL_DSN")
	}
	switch cfg.Database.Driver {
	case "", "mysql", "postgres":
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER %q: want mysql or postgres", cfg.Database.Driver)
	}

	cfg.Redis.Addr = os.Getenv("REDIS_ADDR")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	redisDB, err := getEnvAsInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.Redis.DB = redisDB
	ttl, err := getEnvAsDuration("CACHE_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	cfg.Redis.TTL = ttl

	cfg.Temporal.HostPort = getEnvOrDefault("TEMPORAL_HOST", "localhost:7233")
	cfg.Temporal.Namespace = getEnvOrDefault("TEMPORAL_NAMESPACE", "default")
	cfg.Temporal.TaskQueue = getEnvOrDefault("TEMPORAL_TASK_QUEUE", "signup-automation")

	headless, err := getEnvAsBool("BROWSER_HEADLESS", true)
	if err != nil {
		return nil, fmt.Errorf("invalid BROWSER_HEADLESS: %w", err)
	}
	cfg.Browser.Headless = headless
	cfg.Browser.Bin = os.Getenv("CHROME_BIN")

	cfg.Output.ScriptsDir = getEnvOrDefault("SCRIPTS_DIR", "generated_scripts")
	cfg.Output.ScreenshotsDir = getEnvOrDefault("SCREENSHOTS_DIR", "screenshots")
	cfg.Output.CatalogPath = os.Getenv("FRAMEWORKS_FILE")

	cfg.LLM = loadLLM()

	return cfg, nil
}

// loadLLM configures every provider that has credentials or an explicit endpoint
func loadLLM() LLMConfig {
	defaults := llm.DefaultConfigs()
	out := LLMConfig{
		Default:   getEnvOrDefault("LLM_PROVIDER", string(llm.ProviderOpenAI)),
		Providers: make(map[string]llm.Config),
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg := defaults[llm.ProviderOpenAI]
		cfg.APIKey = key
		cfg.Model = getEnvOrDefault("OPENAI_MODEL", cfg.Model)
		cfg.BaseURL = getEnvOrDefault("OPENAI_BASE_URL", cfg.BaseURL)
		out.Providers[string(llm.ProviderOpenAI)] = cfg
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		cfg := defaults[llm.ProviderAnthropic]
		cfg.APIKey = key
		cfg.Model = getEnvOrDefault("ANTHROPIC_MODEL", cfg.Model)
		out.Providers[string(llm.ProviderAnthropic)] = cfg
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg := defaults[llm.ProviderGemini]
		cfg.APIKey = key
		cfg.Model = getEnvOrDefault("GEMINI_MODEL", cfg.Model)
		out.Providers[string(llm.ProviderGemini)] = cfg
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		cfg := defaults[llm.ProviderOllama]
		cfg.BaseURL = host
		cfg.Model = getEnvOrDefault("OLLAMA_MODEL", cfg.Model)
		out.Providers[string(llm.ProviderOllama)] = cfg
	}

	return out
}

func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// IsProduction returns true if the app is running in production mode
func (a AppConfig) IsProduction() bool {
	return a.Env == "production" || a.Env == "prod"
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt returns the environment variable as an integer
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(valueStr)
}

// getEnvAsBool returns the environment variable as a boolean
func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	return strconv.ParseBool(valueStr)
}

// getEnvAsDuration returns the environment variable as a duration
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	return time.ParseDuration(valueStr)
}
