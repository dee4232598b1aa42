package llm

import (
	"context"
	"sort"
)

// Provider is the interface for LLM providers
type Provider interface {
	// GenerateTestScript sends a system and a user prompt and returns the raw completion
	GenerateTestScript(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Name returns the provider name
	Name() string

	// Model returns the model the provider talks to
	Model() string

	// IsAvailable checks if the provider is configured and available
	IsAvailable(ctx context.Context) bool
}

// Config holds LLM provider configuration
type Config struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model,omitempty"`
	APIKey      string  `json:"-"` // Don't serialize
	BaseURL     string  `json:"base_url,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Timeout     int     `json:"timeout_seconds,omitempty"`
}

// ProviderName represents supported LLM providers
type ProviderName string

const (
	ProviderOllama    ProviderName = "ollama"
	ProviderOpenAI    ProviderName = "openai"
	ProviderAnthropic ProviderName = "anthropic"
	ProviderGemini    ProviderName = "gemini"
)

// DefaultTemperature keeps some variety in generated scripts
const DefaultTemperature float32 = 0.7

// DefaultConfigs returns default configurations for each provider
func DefaultConfigs() map[ProviderName]Config {
	return map[ProviderName]Config{
		ProviderOllama: {
			Provider:    string(ProviderOllama),
			Model:       "codellama:13b",
			BaseURL:     "http://localhost:11434",
			Temperature: DefaultTemperature,
			MaxTokens:   4096,
			Timeout:     120,
		},
		ProviderOpenAI: {
			Provider:    string(ProviderOpenAI),
			Model:       "gpt-3.5-turbo",
			BaseURL:     "https://api.openai.com/v1",
			Temperature: DefaultTemperature,
			MaxTokens:   4096,
			Timeout:     60,
		},
		ProviderAnthropic: {
			Provider:    string(ProviderAnthropic),
			Model:       "claude-3-sonnet-20240229",
			BaseURL:     "https://api.anthropic.com",
			Temperature: DefaultTemperature,
			MaxTokens:   4096,
			Timeout:     60,
		},
		ProviderGemini: {
			Provider:    string(ProviderGemini),
			Model:       "gemini-2.0-flash",
			BaseURL:     "https://generativelanguage.googleapis.com",
			Temperature: DefaultTemperature,
			MaxTokens:   4096,
			Timeout:     60,
		},
	}
}

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	switch ProviderName(config.Provider) {
	case ProviderOllama:
		return NewOllamaProvider(config), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(config), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(config), nil
	case ProviderGemini:
		return NewGeminiProvider(config), nil
	default:
		// Default to Ollama for local development
		return NewOllamaProvider(config), nil
	}
}

// Resolve picks the configuration for the named provider.
// When the name is empty or unknown it falls back to preferred, then to the
// first configured provider in name order. ok is false when nothing is configured.
func Resolve(configs map[string]Config, name, preferred string) (Config, bool) {
	if cfg, ok := configs[name]; ok && name != "" {
		return cfg, true
	}
	if cfg, ok := configs[preferred]; ok && preferred != "" {
		return cfg, true
	}
	names := ProviderNames(configs)
	if len(names) == 0 {
		return Config{}, false
	}
	return configs[names[0]], true
}

// ProviderNames returns the configured provider names, sorted
func ProviderNames(configs map[string]Config) []string {
	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
