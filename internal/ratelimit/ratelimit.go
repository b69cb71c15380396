// Package ratelimit implements the fixed-window request limiter applied to the
// /api/ prefix.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultLimit  = 100
	DefaultWindow = 15 * time.Minute
	DefaultPrefix = "schoolhub:ratelimit:"
)

var ErrInvalidConfig = errors.New("rate limit needs a positive limit and window")

// Config describes a fixed window.
type Config struct {
	Limit  int
	Window time.Duration
	// Prefix namespaces keys in shared stores.
	Prefix string
}

func (c Config) withDefaults() (Config, error) {
	if c.Limit == 0 {
		c.Limit = DefaultLimit
	}
	if c.Window == 0 {
		c.Window = DefaultWindow
	}
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.Limit < 0 || c.Window < 0 {
		return c, ErrInvalidConfig
	}
	return c, nil
}

// Decision is the outcome of counting one request against a key.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAfter is the time left in the current window.
	ResetAfter time.Duration
	Window     time.Duration
}

// Limiter counts a hit for key and decides whether it is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	Close() error
}

func decide(cfg Config, count int64, resetAfter time.Duration) Decision {
	limit := cfg.Limit
	remaining := int64(limit) - count
	if remaining < 0 {
		remaining = 0
	}
	if resetAfter < 0 {
		resetAfter = 0
	}
	return Decision{
		Allowed:    count <= int64(limit),
		Limit:      limit,
		Remaining:  int(remaining),
		ResetAfter: resetAfter,
		Window:     cfg.Window,
	}
}

// NoOpLimiter always allows requests (for testing or disabled rate limiting)
type NoOpLimiter struct{}

func (NoOpLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	return Decision{Allowed: true}, nil
}

func (NoOpLimiter) Close() error { return nil }
