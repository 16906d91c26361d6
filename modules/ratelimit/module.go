package ratelimit

import (
	"context"
	"fmt"
	"log"

	"github.com/example/task-api/domain/ratelimit"
	"github.com/go-monolith/mono"
	"github.com/redis/go-redis/v9"
)

// RateLimitModule owns the Redis connection backing the limiters and hands
// out the Fiber middleware built on them.
type RateLimitModule struct {
	redisAddr  string
	config     ratelimit.MiddlewareConfig
	client     *redis.Client
	middleware *Middleware
}

var _ mono.Module = (*RateLimitModule)(nil)
var _ mono.HealthCheckableModule = (*RateLimitModule)(nil)

// NewModule creates a new rate limiting module.
func NewModule(redisAddr string, config ratelimit.MiddlewareConfig) *RateLimitModule {
	return &RateLimitModule{
		redisAddr: redisAddr,
		config:    config,
	}
}

// Name returns the module name.
func (m *RateLimitModule) Name() string {
	return "ratelimit"
}

// Start connects to Redis and builds the middleware.
func (m *RateLimitModule) Start(ctx context.Context) error {
	m.client = redis.NewClient(&redis.Options{
		Addr: m.redisAddr,
	})
	if err := m.client.Ping(ctx).Err(); err != nil {
		_ = m.client.Close()
		m.client = nil
		return fmt.Errorf("failed to connect to Redis at %s: %w", m.redisAddr, err)
	}

	m.middleware = NewMiddleware(
		NewSlidingWindowLimiter(m.client, m.config.IPConfig, m.config.KeyPrefix),
		NewSlidingWindowLimiter(m.client, m.config.UserConfig, m.config.KeyPrefix),
		nil,
	)
	log.Printf("[ratelimit] Connected to Redis at %s (%d req/%s per user)",
		m.redisAddr, m.config.UserConfig.RequestsPerWindow, m.config.UserConfig.WindowSize)
	return nil
}

// Stop closes the Redis connection.
func (m *RateLimitModule) Stop(_ context.Context) error {
	if m.client != nil {
		if err := m.client.Close(); err != nil {
			log.Printf("[ratelimit] Error closing Redis connection: %v", err)
		}
	}
	log.Println("[ratelimit] Module stopped")
	return nil
}

// Middleware returns the rate limiting middleware, or nil before Start.
func (m *RateLimitModule) Middleware() *Middleware {
	return m.middleware
}

// Health verifies the Redis connection is healthy.
func (m *RateLimitModule) Health(ctx context.Context) mono.HealthStatus {
	if m.client == nil {
		return mono.HealthStatus{Healthy: false, Message: "redis client not initialized"}
	}
	if err := m.client.Ping(ctx).Err(); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("redis ping failed: %v", err)}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"redis":          m.redisAddr,
			"ip_limit":       m.config.IPConfig.RequestsPerWindow,
			"user_limit":     m.config.UserConfig.RequestsPerWindow,
			"window_seconds": m.config.UserConfig.WindowSize.Seconds(),
		},
	}
}
