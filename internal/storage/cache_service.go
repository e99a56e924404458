package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CacheKeyType represents different types of cache keys
type CacheKeyType string

const (
	// CacheKeySnapshot is for wallet snapshots
	CacheKeySnapshot CacheKeyType = "snapshot"
	// CacheKeyLeaderboard is for leaderboard pages
	CacheKeyLeaderboard CacheKeyType = "leaderboard"
)

// leaderboardIndexKey is the set of all live leaderboard keys
const leaderboardIndexKey = "leaderboard:index"

// CacheService provides JSON caching on top of Redis
type CacheService struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewCacheService creates a new cache service
func NewCacheService(redis *RedisCache, ttl time.Duration) *CacheService {
	return &CacheService{
		redis: redis,
		ttl:   ttl,
	}
}

// GenerateCacheKey generates a cache key for a given type and parameters
// Format: <type>:<param1>:<param2>:...
func (c *CacheService) GenerateCacheKey(keyType CacheKeyType, params ...string) string {
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, string(keyType))
	for _, p := range params {
		parts = append(parts, strings.ToLower(p))
	}
	return strings.Join(parts, ":")
}

// SnapshotKey returns the key for an address snapshot
func (c *CacheService) SnapshotKey(address string) string {
	return c.GenerateCacheKey(CacheKeySnapshot, address)
}

// LeaderboardKey returns the key for one leaderboard page
func (c *CacheService) LeaderboardKey(sortBy, order string, limit int) string {
	return c.GenerateCacheKey(CacheKeyLeaderboard, sortBy, order, fmt.Sprintf("%d", limit))
}

// Set stores a value in cache with the configured TTL
func (c *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return c.redis.Set(ctx, key, data, c.ttl)
}

// Get loads a cached value into dest. found is false on a miss.
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) (found bool, err error) {
	data, err := c.redis.Get(ctx, key)
	if errors.Is(err, ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get from cache: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return true, nil
}

// SetLeaderboard caches a leaderboard page and registers its key for invalidation
func (c *CacheService) SetLeaderboard(ctx context.Context, key string, value interface{}) error {
	if err := c.Set(ctx, key, value); err != nil {
		return err
	}
	return c.redis.AddToSet(ctx, leaderboardIndexKey, c.ttl, key)
}

// Invalidate removes one or more keys from cache
func (c *CacheService) Invalidate(ctx context.Context, keys ...string) error {
	return c.redis.Del(ctx, keys...)
}

// InvalidateLeaderboards removes every cached leaderboard page
func (c *CacheService) InvalidateLeaderboards(ctx context.Context) error {
	return c.redis.DrainSet(ctx, leaderboardIndexKey)
}
