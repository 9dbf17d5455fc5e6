package resolverapi

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheClient wraps a Redis client as the warm cache tier for resolved
// candidate lists. Candidate lists are small and immutable for the lifetime
// of a resolver data release, so they cache well across loader runs.
type CacheClient struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// NewCacheClient creates a new cache client
func NewCacheClient(redisURL string, ttl time.Duration) (*CacheClient, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if ttl == 0 {
		ttl = 24 * time.Hour
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &CacheClient{
		redis:      client,
		defaultTTL: ttl,
	}, nil
}

// cachedCandidates represents one cached candidate list with metadata
type cachedCandidates struct {
	Candidates []string  `json:"candidates"`
	CachedAt   time.Time `json:"cached_at"`
}

// GetCandidates retrieves a cached candidate list
func (c *CacheClient) GetCandidates(ctx context.Context, key string) ([]string, bool, error) {
	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil // Cache miss
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get candidate cache: %w", err)
	}

	var cached cachedCandidates
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// Remove corrupted cache entry
		c.redis.Del(ctx, key)
		return nil, false, nil
	}
	if cached.Candidates == nil {
		cached.Candidates = []string{}
	}
	return cached.Candidates, true, nil
}

// SetCandidates caches a candidate list
func (c *CacheClient) SetCandidates(ctx context.Context, key string, candidates []string) error {
	cached := cachedCandidates{
		Candidates: candidates,
		CachedAt:   time.Now(),
	}
	jsonData, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal candidate cache data: %w", err)
	}
	return c.redis.Set(ctx, key, jsonData, c.defaultTTL).Err()
}

// Ping checks if the Redis connection is alive
func (c *CacheClient) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *CacheClient) Close() error {
	return c.redis.Close()
}
