// Package ratelimit paces outbound calls to paid upstream APIs with a request
// budget shared across service instances through Redis.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default budget configuration values.
const (
	DefaultWindowSize = time.Second
	KeyPrefix         = "quota:"
)

// consumeScript increments the window counter only while it stays within
// the budget. Returns {allowed, used}.
var consumeScript = redis.NewScript(`
	local key = KEYS[1]
	local cost = tonumber(ARGV[1])
	local budget = tonumber(ARGV[2])
	local ttl = tonumber(ARGV[3])

	local used = tonumber(redis.call('GET', key) or '0')
	if used + cost > budget then
		return {0, used}
	end

	used = redis.call('INCRBY', key, cost)
	redis.call('PEXPIRE', key, ttl)
	return {1, used}
`)

// BudgetTracker counts requests per provider in fixed windows stored in Redis
type BudgetTracker struct {
	redis      redis.Cmdable
	budgets    map[string]int
	windowSize time.Duration
	keyTTL     time.Duration
	now        func() time.Time
}

// BudgetTrackerConfig holds configuration for the budget tracker.
type BudgetTrackerConfig struct {
	// Redis is required.
	Redis redis.Cmdable

	// Budgets maps a provider name to the requests allowed per window.
	// Providers without an entry are not limited.
	Budgets map[string]int

	// WindowSize defaults to one second.
	WindowSize time.Duration
}

// UsageStats is the consumption of one provider in the current window
type UsageStats struct {
	Provider    string
	Used        int
	Budget      int
	WindowStart time.Time
}

// Validate checks if the configuration is valid.
func (c *BudgetTrackerConfig) Validate() error {
	if c.Redis == nil {
		return errors.New("redis client is required")
	}
	if c.WindowSize < 0 {
		return errors.New("window size cannot be negative")
	}
	for provider, budget := range c.Budgets {
		if budget <= 0 {
			return fmt.Errorf("budget for %s must be positive, got %d", provider, budget)
		}
	}
	return nil
}

// NewBudgetTracker creates a new tracker with the given configuration.
func NewBudgetTracker(cfg *BudgetTrackerConfig) (*BudgetTracker, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	windowSize := cfg.WindowSize
	if windowSize == 0 {
		windowSize = DefaultWindowSize
	}

	budgets := make(map[string]int, len(cfg.Budgets))
	for provider, budget := range cfg.Budgets {
		budgets[provider] = budget
	}

	return &BudgetTracker{
		redis:      cfg.Redis,
		budgets:    budgets,
		windowSize: windowSize,
		keyTTL:     2 * windowSize,
		now:        time.Now,
	}, nil
}

func (t *BudgetTracker) windowStart() time.Time {
	return t.now().Truncate(t.windowSize)
}

func (t *BudgetTracker) key(provider string, windowStart time.Time) string {
	return KeyPrefix + provider + ":" + strconv.FormatInt(windowStart.UnixMilli(), 10)
}

// Budget returns the per-window budget of provider, or 0 when unlimited
func (t *BudgetTracker) Budget(provider string) int {
	return t.budgets[provider]
}

// TryConsume takes cost units from the provider's current window. When the
// budget is exhausted it returns false and the time until the next window.
// Redis failures are returned as errors and consume nothing.
func (t *BudgetTracker) TryConsume(ctx context.Context, provider string, cost int) (bool, time.Duration, error) {
	budget, limited := t.budgets[provider]
	if !limited || cost <= 0 {
		return true, 0, nil
	}

	start := t.windowStart()
	result, err := consumeScript.Run(ctx, t.redis, []string{t.key(provider, start)},
		cost, budget, t.keyTTL.Milliseconds()).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("failed to consume %s budget: %w", provider, err)
	}

	if result[0] == 1 {
		return true, 0, nil
	}
	return false, t.untilNextWindow(start), nil
}

func (t *BudgetTracker) untilNextWindow(start time.Time) time.Duration {
	wait := start.Add(t.windowSize).Sub(t.now())
	if wait < 0 {
		wait = 0
	}
	return wait + time.Millisecond
}

// Usage returns the current window consumption of provider
func (t *BudgetTracker) Usage(ctx context.Context, provider string) (*UsageStats, error) {
	start := t.windowStart()
	used, err := t.redis.Get(ctx, t.key(provider, start)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read %s usage: %w", provider, err)
	}

	return &UsageStats{
		Provider:    provider,
		Used:        used,
		Budget:      t.budgets[provider],
		WindowStart: start,
	}, nil
}
