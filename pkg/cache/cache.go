// Package cache stores generated scripts in Redis so that identical
// requests do not hit an LLM twice.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"dev/bravebird/signup-automation-go/pkg/models"
)

// ErrCacheMiss is returned when a key is not cached
var ErrCacheMiss = errors.New("cache miss")

// DefaultTTL is used when a zero TTL is configured
const DefaultTTL = 24 * time.Hour

// Cache defines the interface for script caching
type Cache interface {
	// Get returns the cached script for key or ErrCacheMiss
	Get(ctx context.Context, key string) (*models.GeneratedScript, error)

	// Set stores a script under key
	Set(ctx context.Context, key string, script *models.GeneratedScript) error

	// Ping checks if the cache is healthy
	Ping(ctx context.Context) error

	// Close closes the cache connection
	Close() error
}

// Key derives the cache key for a generation request.
// The requirement is normalised for case and surrounding whitespace.
func Key(provider, model, framework, requirement string) string {
	h := sha256.New()
	for _, part := range []string{provider, model, framework, strings.ToLower(strings.TrimSpace(requirement))} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return "script:" + hex.EncodeToString(h.Sum(nil))
}

// RedisCache implements Cache using Redis
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// Options configures the Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisCache connects to Redis and verifies connectivity
func NewRedisCache(ctx context.Context, opts Options) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

// Get returns the cached script for key
func (c *RedisCache) Get(ctx context.Context, key string) (*models.GeneratedScript, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("cache get failed: %w", err)
	}

	var script models.GeneratedScript
	if err := json.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached script: %w", err)
	}
	return &script, nil
}

// Set stores a script with the configured TTL
func (c *RedisCache) Set(ctx context.Context, key string, script *models.GeneratedScript) error {
	data, err := json.Marshal(script)
	if err != nil {
		return fmt.Errorf("failed to marshal script: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// Ping checks if the cache is healthy
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the cache connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client
func (c *RedisCache) Client() *redis.Client {
	return c.client
}
