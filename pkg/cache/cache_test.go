package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dev/bravebird/signup-automation-go/pkg/models"
)

func skipIfNoRedis(t *testing.T) {
	t.Helper()
	if os.Getenv("TEST_REDIS") != "true" {
		t.Skip("Skipping: TEST_REDIS not set")
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func TestKey(t *testing.T) {
	k := Key("openai", "gpt-3.5-turbo", "cypress", "Successful sign up")
	assert.Equal(t, k, Key("openai", "gpt-3.5-turbo", "cypress", "  successful SIGN UP "))
	assert.NotEqual(t, k, Key("openai", "gpt-3.5-turbo", "selenium", "Successful sign up"))
	assert.NotEqual(t, k, Key("anthropic", "gpt-3.5-turbo", "cypress", "Successful sign up"))
	// Field boundaries are part of the key
	assert.NotEqual(t, Key("ab", "c", "", ""), Key("a", "bc", "", ""))
	assert.Regexp(t, `^script:[0-9a-f]{64}$`, k)
}

func TestNewRedisCache_InvalidHost(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisCache(ctx, Options{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	skipIfNoRedis(t)
	ctx := context.Background()

	c, err := NewRedisCache(ctx, Options{Addr: getEnvOrDefault("REDIS_ADDR", "localhost:6379"), TTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	key := Key("test", "model", "cypress", t.Name())
	defer c.Client().Del(ctx, key)

	_, err = c.Get(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)

	script := &models.GeneratedScript{ID: "abc", FrameworkKey: "cypress", Code: "cy.visit('/')"}
	require.NoError(t, c.Set(ctx, key, script))

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "cy.visit('/')", got.Code)

	ttl, err := c.Client().TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute)
}
