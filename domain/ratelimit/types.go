// Package ratelimit provides domain types and interfaces for rate limiting.
package ratelimit

import (
	"context"
	"time"
)

// Config holds rate limiting configuration.
type Config struct {
	// RequestsPerWindow is the maximum number of requests allowed in the window.
	RequestsPerWindow int
	// WindowSize is the duration of the sliding window.
	WindowSize time.Duration
}

// Result represents the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	// RetryAfter is only set when the request was rejected.
	RetryAfter time.Duration
}

// Limiter is the interface for rate limiting implementations.
type Limiter interface {
	// Allow records a hit for key and reports whether it fits in the window.
	Allow(ctx context.Context, key string) (*Result, error)
	Limit() int
}

// MiddlewareConfig configures the rate limiting middleware.
type MiddlewareConfig struct {
	// IPConfig applies to unauthenticated routes, keyed by client IP.
	IPConfig Config
	// UserConfig applies to authenticated routes, keyed by user ID.
	UserConfig Config
	// KeyPrefix is the prefix for all rate limit keys in Redis.
	KeyPrefix string
}

// DefaultIPConfig returns the default IP-based rate limit configuration.
func DefaultIPConfig() Config {
	return Config{
		RequestsPerWindow: 60,
		WindowSize:        time.Minute,
	}
}

// DefaultUserConfig returns the default per-user rate limit configuration.
func DefaultUserConfig() Config {
	return Config{
		RequestsPerWindow: 60,
		WindowSize:        time.Minute,
	}
}

// DefaultMiddlewareConfig returns the default middleware configuration.
func DefaultMiddlewareConfig() MiddlewareConfig {
	return MiddlewareConfig{
		IPConfig:   DefaultIPConfig(),
		UserConfig: DefaultUserConfig(),
		KeyPrefix:  "task-api:ratelimit:",
	}
}

// PerMinute returns a middleware configuration allowing n requests per
// minute both per IP and per user.
func PerMinute(n int) MiddlewareConfig {
	cfg := DefaultMiddlewareConfig()
	if n > 0 {
		cfg.IPConfig.RequestsPerWindow = n
		cfg.UserConfig.RequestsPerWindow = n
	}
	return cfg
}
