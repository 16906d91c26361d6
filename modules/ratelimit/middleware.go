package ratelimit

import (
	"log/slog"
	"strconv"

	"github.com/example/task-api/domain/ratelimit"
	"github.com/gofiber/fiber/v2"
)

// UserIDKey is the Fiber local the authentication middleware stores the
// principal's ID under.
const UserIDKey = "user_id"

// Middleware provides rate limiting middleware for Fiber.
//
// Rejected requests end with fiber.ErrTooManyRequests so the application's
// error handler renders them. Limiter failures let the request through.
type Middleware struct {
	ipLimiter   ratelimit.Limiter
	userLimiter ratelimit.Limiter
	logger      *slog.Logger
}

// NewMiddleware creates a new rate limiting middleware.
func NewMiddleware(ipLimiter, userLimiter ratelimit.Limiter, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{
		ipLimiter:   ipLimiter,
		userLimiter: userLimiter,
		logger:      logger,
	}
}

// IPRateLimit returns middleware that limits requests by client IP.
func (m *Middleware) IPRateLimit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := c.IP()
		if ip == "" {
			return fiber.ErrForbidden
		}
		return m.limit(c, m.ipLimiter, "ip:"+ip)
	}
}

// UserRateLimit returns middleware that limits requests by user ID.
// It must run after authentication; without a user ID it falls back to the
// client IP.
func (m *Middleware) UserRateLimit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals(UserIDKey).(string)
		if !ok || userID == "" {
			return m.IPRateLimit()(c)
		}
		return m.limit(c, m.userLimiter, "user:"+userID)
	}
}

func (m *Middleware) limit(c *fiber.Ctx, limiter ratelimit.Limiter, key string) error {
	result, err := limiter.Allow(c.UserContext(), key)
	if err != nil {
		m.logger.Warn("rate limiter unavailable, allowing request",
			"key", key,
			"path", c.Path(),
			"error", err)
		return c.Next()
	}

	setRateLimitHeaders(c, result, limiter.Limit())
	if !result.Allowed {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfterSeconds(result)))
		return fiber.ErrTooManyRequests
	}
	return c.Next()
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(c *fiber.Ctx, result *ratelimit.Result, limit int) {
	c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

// retryAfterSeconds rounds the wait up to at least one second.
func retryAfterSeconds(result *ratelimit.Result) int {
	seconds := int(result.RetryAfter.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}
