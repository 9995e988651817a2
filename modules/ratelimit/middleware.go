package ratelimit

import (
	"fmt"
	"strconv"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces limiter keys in Redis.
const DefaultKeyPrefix = "ratelimit:"

// MiddlewareConfig holds the budgets per limiting strategy.
type MiddlewareConfig struct {
	IPConfig   Config
	UserConfig Config
	KeyPrefix  string
}

type limit struct {
	limiter Limiter
	quota   int
}

// Middleware is Fiber middleware that applies the limiters. Limiter failures
// let the request through.
type Middleware struct {
	ip     limit
	user   limit
	logger types.Logger
}

// NewMiddleware creates Redis-backed rate limiting middleware.
func NewMiddleware(client *redis.Client, config MiddlewareConfig, logger types.Logger) *Middleware {
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultKeyPrefix
	}
	return NewMiddlewareWithLimiters(
		NewSlidingWindowLimiter(client, config.IPConfig, config.KeyPrefix+"ip:"),
		config.IPConfig.RequestsPerWindow,
		NewSlidingWindowLimiter(client, config.UserConfig, config.KeyPrefix+"user:"),
		config.UserConfig.RequestsPerWindow,
		logger,
	)
}

// NewMiddlewareWithLimiters creates middleware over arbitrary limiters.
func NewMiddlewareWithLimiters(ipLimiter Limiter, ipMax int, userLimiter Limiter, userMax int, logger types.Logger) *Middleware {
	return &Middleware{
		ip:     limit{limiter: ipLimiter, quota: ipMax},
		user:   limit{limiter: userLimiter, quota: userMax},
		logger: logger,
	}
}

// IPRateLimit limits requests by client IP.
func (m *Middleware) IPRateLimit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := c.IP()
		if ip == "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":   "Forbidden",
				"message": "Unable to determine client IP address",
			})
		}
		return m.apply(c, m.ip, ip)
	}
}

// UserRateLimit limits requests by the authenticated user id stored in
// c.Locals("user_id"), falling back to the client IP.
func (m *Middleware) UserRateLimit() fiber.Handler {
	ipLimit := m.IPRateLimit()
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("user_id").(string)
		if !ok || userID == "" {
			return ipLimit(c)
		}
		return m.apply(c, m.user, userID)
	}
}

func (m *Middleware) apply(c *fiber.Ctx, l limit, key string) error {
	result, err := l.limiter.Allow(c.UserContext(), key)
	if err != nil {
		m.logger.Warn("Rate limiter unavailable, allowing request", "key", key, "error", err)
		return c.Next()
	}

	setRateLimitHeaders(c, result, l.quota)
	if !result.Allowed {
		return sendRateLimitExceeded(c, result)
	}
	return c.Next()
}

func setRateLimitHeaders(c *fiber.Ctx, result *Result, quota int) {
	c.Set("X-RateLimit-Limit", strconv.Itoa(quota))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func sendRateLimitExceeded(c *fiber.Ctx, result *Result) error {
	retryAfter := int(result.RetryAfter.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}

	c.Set("Retry-After", strconv.Itoa(retryAfter))
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error":       "Too Many Requests",
		"message":     fmt.Sprintf("Rate limit exceeded. Please retry after %d seconds.", retryAfter),
		"retry_after": retryAfter,
	})
}
