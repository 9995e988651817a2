package api

import (
	"strings"

	"github.com/example/task-tracker/modules/auth"
	"github.com/gofiber/fiber/v2"
)

const (
	// UserContextKey is the key used to store user claims in the Fiber context.
	UserContextKey = "user"
	// UserIDContextKey holds the caller's user id; the rate limiter keys on it.
	UserIDContextKey = "user_id"
	// TokenContextKey holds the raw bearer token forwarded to the task module.
	TokenContextKey = "token"
)

// AuthMiddleware creates a middleware that validates JWT tokens.
func AuthMiddleware(authAdapter auth.AuthPort) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return respondError(c, fiber.StatusUnauthorized, "unauthorized", "Authorization header is required")
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return respondError(c, fiber.StatusUnauthorized, "unauthorized", "Invalid authorization header format. Use: Bearer <token>")
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			return respondError(c, fiber.StatusUnauthorized, "unauthorized", "Token is required")
		}

		return authenticate(c, authAdapter, token)
	}
}

// WebSocketAuthMiddleware authenticates the upgrade request from the token
// query parameter, since browsers cannot set headers on WebSocket requests.
func WebSocketAuthMiddleware(authAdapter auth.AuthPort) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Query("token")
		if token == "" {
			return respondError(c, fiber.StatusUnauthorized, "unauthorized", "Token is required")
		}
		return authenticate(c, authAdapter, token)
	}
}

func authenticate(c *fiber.Ctx, authAdapter auth.AuthPort, token string) error {
	claims, err := authAdapter.ValidateToken(c.UserContext(), token)
	if err != nil {
		return respondError(c, fiber.StatusUnauthorized, "unauthorized", "Invalid or expired token")
	}

	c.Locals(UserContextKey, claims)
	c.Locals(UserIDContextKey, claims.UserID)
	c.Locals(TokenContextKey, token)

	return c.Next()
}
