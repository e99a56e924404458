package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wallet-insights/internal/logging"
)

// Default pacer configuration values.
const (
	DefaultBaseDelay = 50 * time.Millisecond
	DefaultMaxDelay  = 2 * time.Second
	DefaultMaxWait   = 15 * time.Second
)

// ErrMaxWaitExceeded is returned when budget did not free up within MaxWait
var ErrMaxWaitExceeded = errors.New("maximum wait time exceeded waiting for upstream budget")

// Pacer blocks outbound calls of one provider until the shared budget admits
// them, backing off exponentially while the budget stays exhausted.
type Pacer struct {
	tracker          *BudgetTracker
	provider         string
	baseDelay        time.Duration
	maxDelay         time.Duration
	maxWait          time.Duration
	currentDelay     time.Duration
	consecutiveFails int
	mu               sync.Mutex
}

// PacerConfig holds configuration for a pacer.
type PacerConfig struct {
	Tracker   *BudgetTracker
	Provider  string
	BaseDelay time.Duration
	MaxDelay  time.Duration
	MaxWait   time.Duration
}

// Validate checks if the configuration is valid.
func (c *PacerConfig) Validate() error {
	if c.Tracker == nil {
		return errors.New("tracker is required")
	}
	if c.Provider == "" {
		return errors.New("provider is required")
	}
	if c.BaseDelay < 0 || c.MaxDelay < 0 || c.MaxWait < 0 {
		return errors.New("delays cannot be negative")
	}
	if c.MaxDelay > 0 && c.BaseDelay > c.MaxDelay {
		return errors.New("base delay cannot exceed max delay")
	}
	return nil
}

// NewPacer creates a pacer for one provider.
func NewPacer(cfg *PacerConfig) (*Pacer, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pacer{
		tracker:   cfg.Tracker,
		provider:  cfg.Provider,
		baseDelay: cfg.BaseDelay,
		maxDelay:  cfg.MaxDelay,
		maxWait:   cfg.MaxWait,
	}
	if p.baseDelay == 0 {
		p.baseDelay = DefaultBaseDelay
	}
	if p.maxDelay == 0 {
		p.maxDelay = DefaultMaxDelay
	}
	if p.maxWait == 0 {
		p.maxWait = DefaultMaxWait
	}
	p.currentDelay = p.baseDelay
	return p, nil
}

// Wait blocks until one request may be sent. If Redis is unreachable the
// request is let through and the failure logged.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.WaitForBudget(ctx, 1)
}

// WaitForBudget blocks until cost units are available, the context ends or
// MaxWait elapses.
func (p *Pacer) WaitForBudget(ctx context.Context, cost int) error {
	deadline := time.Now().Add(p.maxWait)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		allowed, wait, err := p.tracker.TryConsume(ctx, p.provider, cost)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.FromContext(ctx).WithError(err).WithField("provider", p.provider).
				Warn("Upstream budget unavailable, sending without pacing")
			return nil
		}
		if allowed {
			p.RecordSuccess()
			return nil
		}

		delay := p.RecordFailure()
		if wait > delay {
			delay = wait
		}
		if time.Now().Add(delay).After(deadline) {
			return fmt.Errorf("%s: %w", p.provider, ErrMaxWaitExceeded)
		}

		logging.FromContext(ctx).WithFields(map[string]interface{}{
			"provider": p.provider,
			"delay":    delay.String(),
		}).Debug("Upstream budget exhausted, waiting")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RecordSuccess resets the backoff
func (p *Pacer) RecordSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.consecutiveFails = 0
	p.currentDelay = p.baseDelay
}

// RecordFailure doubles the backoff up to MaxDelay and returns the delay to
// wait before the next attempt.
func (p *Pacer) RecordFailure() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	delay := p.currentDelay
	p.consecutiveFails++
	p.currentDelay *= 2
	if p.currentDelay > p.maxDelay {
		p.currentDelay = p.maxDelay
	}
	return delay
}

// CurrentDelay returns the delay the next failed attempt will wait
func (p *Pacer) CurrentDelay() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentDelay
}

// ConsecutiveFailures returns how many attempts in a row found no budget
func (p *Pacer) ConsecutiveFailures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.consecutiveFails
}

// NewProviderPacer builds a tracker and pacer for a single provider allowed
// budget requests per window.
func NewProviderPacer(client redis.Cmdable, provider string, budget int, window, maxWait time.Duration) (*Pacer, error) {
	tracker, err := NewBudgetTracker(&BudgetTrackerConfig{
		Redis:      client,
		Budgets:    map[string]int{provider: budget},
		WindowSize: window,
	})
	if err != nil {
		return nil, err
	}
	return NewPacer(&PacerConfig{Tracker: tracker, Provider: provider, MaxWait: maxWait})
}
