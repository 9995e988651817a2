package api

import (
	"errors"
	"strings"

	domain "github.com/example/task-tracker/domain/task"
	"github.com/example/task-tracker/modules/auth"
	"github.com/gofiber/fiber/v2"
)

func respondError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(ErrorResponse{
		Error:   code,
		Message: message,
	})
}

// taskStatus maps a task error kind onto an HTTP status and error code.
func taskStatus(kind error) (int, string) {
	switch kind {
	case domain.ErrValidation:
		return fiber.StatusBadRequest, "bad_request"
	case domain.ErrUnauthenticated:
		return fiber.StatusUnauthorized, "unauthorized"
	case domain.ErrForbidden:
		return fiber.StatusForbidden, "forbidden"
	case domain.ErrNotFound:
		return fiber.StatusNotFound, "not_found"
	case domain.ErrInvalidState, domain.ErrConflict:
		return fiber.StatusConflict, "conflict"
	default:
		return fiber.StatusInternalServerError, "internal_error"
	}
}

// handleTaskError writes the response for an error returned by the task module.
// Store failures and unclassified errors are logged and hidden from the client.
func (h *Handlers) handleTaskError(c *fiber.Ctx, err error) error {
	status, code := taskStatus(domain.KindOf(err))
	if status == fiber.StatusInternalServerError {
		h.logger.Error("Task request failed", "path", c.Path(), "error", err)
		return respondError(c, status, code, "An internal error occurred")
	}
	return respondError(c, status, code, domain.Reason(err))
}

// authErrors pairs auth sentinels with their HTTP response. Errors arrive as
// text across the service boundary, so they are matched by message.
var authErrors = []struct {
	err    error
	status int
	code   string
}{
	{auth.ErrInvalidCredentials, fiber.StatusUnauthorized, "unauthorized"},
	{auth.ErrExpiredToken, fiber.StatusUnauthorized, "unauthorized"},
	{auth.ErrInvalidToken, fiber.StatusUnauthorized, "unauthorized"},
	{auth.ErrUserExists, fiber.StatusConflict, "conflict"},
	{auth.ErrInvalidEmail, fiber.StatusBadRequest, "bad_request"},
	{auth.ErrNameRequired, fiber.StatusBadRequest, "bad_request"},
	{auth.ErrWeakPassword, fiber.StatusBadRequest, "bad_request"},
	{auth.ErrPasswordTooLong, fiber.StatusBadRequest, "bad_request"},
	{auth.ErrUserNotFound, fiber.StatusNotFound, "not_found"},
}

// handleAuthError handles authentication errors and returns appropriate responses.
func (h *Handlers) handleAuthError(c *fiber.Ctx, err error) error {
	errStr := err.Error()
	for _, e := range authErrors {
		if errors.Is(err, e.err) || strings.Contains(errStr, e.err.Error()) {
			return respondError(c, e.status, e.code, e.err.Error())
		}
	}

	h.logger.Error("Auth request failed", "path", c.Path(), "error", err)
	return respondError(c, fiber.StatusInternalServerError, "internal_error", "An internal error occurred")
}
