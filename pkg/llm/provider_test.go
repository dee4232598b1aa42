package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIGenerateTestScript(t *testing.T) {
	var got OpenAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(OpenAIResponse{
			Choices: []OpenAIChoice{{Message: OpenAIMessage{Role: "assistant", Content: "```js\nok()\n```"}}},
		})
	}))
	defer srv.Close()

	p := NewOpenAIProvider(Config{APIKey: "sk-test", BaseURL: srv.URL})
	out, err := p.GenerateTestScript(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "```js\nok()\n```", out)

	assert.Equal(t, "gpt-3.5-turbo", got.Model)
	assert.InDelta(t, 0.7, got.Temperature, 0.0001)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, OpenAIMessage{Role: "system", Content: "sys"}, got.Messages[0])
	assert.Equal(t, OpenAIMessage{Role: "user", Content: "user"}, got.Messages[1])
}

func TestOpenAIErrors(t *testing.T) {
	p := NewOpenAIProvider(Config{})
	assert.False(t, p.IsAvailable(context.Background()))
	_, err := p.GenerateTestScript(context.Background(), "s", "u")
	assert.ErrorIs(t, err, ErrNotConfigured)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	p = NewOpenAIProvider(Config{APIKey: "k", BaseURL: srv.URL})
	_, err = p.GenerateTestScript(context.Background(), "s", "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer empty.Close()

	p = NewOpenAIProvider(Config{APIKey: "k", BaseURL: empty.URL})
	_, err = p.GenerateTestScript(context.Background(), "s", "u")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestAnthropicGenerateTestScript(t *testing.T) {
	var got AnthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.NotEmpty(t, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"content":[{"type":"text","text":"part one "},{"type":"text","text":"part two"}]}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider(Config{APIKey: "key", BaseURL: srv.URL})
	out, err := p.GenerateTestScript(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "part one part two", out)
	assert.Equal(t, "sys", got.System)
	assert.Equal(t, 4096, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Content[0].Text)
}

func TestGeminiGenerateTestScript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "gk", r.Header.Get("x-goog-api-key"))
		var req GeminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "sys", req.SystemInstruction.Parts[0].Text)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"print(1)"}]}}]}`))
	}))
	defer srv.Close()

	p := NewGeminiProvider(Config{APIKey: "gk", BaseURL: srv.URL})
	out, err := p.GenerateTestScript(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "print(1)", out)

	noCandidates := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer noCandidates.Close()

	p = NewGeminiProvider(Config{APIKey: "gk", BaseURL: noCandidates.URL})
	_, err = p.GenerateTestScript(context.Background(), "sys", "user")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOllamaProvider(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[]}`))
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req OllamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		assert.Equal(t, "codellama:13b", req.Model)
		json.NewEncoder(w).Encode(OllamaResponse{Message: OllamaMessage{Role: "assistant", Content: "code"}, Done: true})
	})
	mux.HandleFunc("/api/pull", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewOllamaProvider(Config{BaseURL: srv.URL})
	assert.True(t, p.IsAvailable(context.Background()))

	out, err := p.GenerateTestScript(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "code", out)

	assert.NoError(t, p.PullModel(context.Background(), ""))
}

func TestOllamaUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	p := NewOllamaProvider(Config{BaseURL: srv.URL})
	assert.False(t, p.IsAvailable(context.Background()))
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		wantName string
	}{
		{"openai", "openai"},
		{"anthropic", "anthropic"},
		{"gemini", "gemini"},
		{"ollama", "ollama"},
		{"unknown", "ollama"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := NewProvider(Config{Provider: tt.provider})
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
			assert.NotEmpty(t, p.Model())
		})
	}
}

func TestResolve(t *testing.T) {
	configs := map[string]Config{
		"openai": {Provider: "openai"},
		"ollama": {Provider: "ollama"},
	}

	cfg, ok := Resolve(configs, "openai", "ollama")
	require.True(t, ok)
	assert.Equal(t, "openai", cfg.Provider)

	cfg, ok = Resolve(configs, "gemini", "ollama")
	require.True(t, ok)
	assert.Equal(t, "ollama", cfg.Provider)

	cfg, ok = Resolve(configs, "", "")
	require.True(t, ok)
	assert.Equal(t, "ollama", cfg.Provider)

	_, ok = Resolve(nil, "openai", "")
	assert.False(t, ok)
}
