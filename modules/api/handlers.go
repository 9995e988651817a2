package api

import (
	"fmt"
	"strings"
	"time"

	taskdomain "github.com/example/task-tracker/domain/task"
	userdomain "github.com/example/task-tracker/domain/user"
	"github.com/example/task-tracker/modules/activity"
	"github.com/example/task-tracker/modules/auth"
	"github.com/example/task-tracker/modules/task"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
)

const defaultActivityLimit = 20

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	authAdapter     auth.AuthPort
	taskAdapter     task.TaskPort
	activityAdapter activity.ActivityPort
	logger          types.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(authAdapter auth.AuthPort, taskAdapter task.TaskPort, activityAdapter activity.ActivityPort, logger types.Logger) *Handlers {
	return &Handlers{
		authAdapter:     authAdapter,
		taskAdapter:     taskAdapter,
		activityAdapter: activityAdapter,
		logger:          logger,
	}
}

// HealthCheck reports that the HTTP layer is up.
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"module": "api",
	})
}

// Register handles user registration.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	if req.Email == "" || req.Password == "" {
		return respondError(c, fiber.StatusBadRequest, "bad_request", "Email and password are required")
	}

	resp, err := h.authAdapter.Register(c.UserContext(), auth.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return h.handleAuthError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Login handles user login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	if req.Email == "" || req.Password == "" {
		return respondError(c, fiber.StatusBadRequest, "bad_request", "Email and password are required")
	}

	resp, err := h.authAdapter.Login(c.UserContext(), auth.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return h.handleAuthError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

// Refresh handles token refresh.
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	if req.RefreshToken == "" {
		return respondError(c, fiber.StatusBadRequest, "bad_request", "Refresh token is required")
	}

	tokens, err := h.authAdapter.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return h.handleAuthError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(tokens)
}

// Profile returns the caller's account.
func (h *Handlers) Profile(c *fiber.Ctx) error {
	claims, ok := c.Locals(UserContextKey).(*userdomain.Claims)
	if !ok {
		return respondError(c, fiber.StatusUnauthorized, "unauthorized", "User not authenticated")
	}

	user, err := h.authAdapter.GetUser(c.UserContext(), claims.UserID)
	if err != nil {
		return h.handleAuthError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(ProfileResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	})
}

// ListTasks returns the caller's filtered, sorted tasks with stats.
func (h *Handlers) ListTasks(c *fiber.Ctx) error {
	resp, err := h.taskAdapter.ListTasks(c.UserContext(), task.ListTasksRequest{
		Credential: credential(c),
		Filter:     c.Query("filter"),
		SortBy:     c.Query("sort"),
		Search:     c.Query("search"),
	})
	if err != nil {
		return h.handleTaskError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// CreateTask creates a task for the caller.
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	var body CreateTaskBody
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	var due *time.Time
	if body.DueDate != "" {
		parsed, err := parseDueDate(body.DueDate)
		if err != nil {
			return respondError(c, fiber.StatusBadRequest, "bad_request", err.Error())
		}
		due = &parsed
	}

	t, err := h.taskAdapter.CreateTask(c.UserContext(), task.CreateTaskRequest{
		Credential:    credential(c),
		Title:         body.Title,
		Description:   body.Description,
		DueDate:       due,
		EstimatedTime: body.EstimatedTime,
	})
	if err != nil {
		return h.handleTaskError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(TaskResponse{
		Message: "Task created successfully!",
		Task:    *t,
	})
}

// GetTask returns one of the caller's tasks.
func (h *Handlers) GetTask(c *fiber.Ctx) error {
	t, err := h.taskAdapter.GetTask(c.UserContext(), task.GetTaskRequest{
		Credential: credential(c),
		TaskID:     c.Params("id"),
	})
	if err != nil {
		return h.handleTaskError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(t)
}

// UpdateTask applies a partial edit.
func (h *Handlers) UpdateTask(c *fiber.Ctx) error {
	var body UpdateTaskBody
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	req := task.UpdateTaskRequest{
		Credential:      credential(c),
		TaskID:          c.Params("id"),
		Title:           body.Title,
		Description:     body.Description,
		Status:          body.Status,
		EstimatedTime:   body.EstimatedTime,
		ExpectedVersion: body.ExpectedVersion,
	}
	if body.DueDate != nil {
		if *body.DueDate == "" {
			req.ClearDueDate = true
		} else {
			parsed, err := parseDueDate(*body.DueDate)
			if err != nil {
				return respondError(c, fiber.StatusBadRequest, "bad_request", err.Error())
			}
			req.DueDate = &parsed
		}
	}

	t, err := h.taskAdapter.UpdateTask(c.UserContext(), req)
	if err != nil {
		return h.handleTaskError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(TaskResponse{
		Message: "Task updated successfully!",
		Task:    *t,
	})
}

// DeleteTask removes one of the caller's tasks.
func (h *Handlers) DeleteTask(c *fiber.Ctx) error {
	resp, err := h.taskAdapter.DeleteTask(c.UserContext(), task.DeleteTaskRequest{
		Credential: credential(c),
		TaskID:     c.Params("id"),
	})
	if err != nil {
		return h.handleTaskError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(DeleteResponse{
		Message: "Task deleted successfully!",
		TaskID:  resp.TaskID,
	})
}

// StartTimer starts the task timer.
func (h *Handlers) StartTimer(c *fiber.Ctx) error {
	req, err := timerRequest(c)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	resp, err := h.taskAdapter.StartTimer(c.UserContext(), req)
	if err != nil {
		return h.handleTaskError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(TaskResponse{
		Message: "Timer started!",
		Task:    resp.Task,
	})
}

// StopTimer stops the task timer and reports the minutes it added.
func (h *Handlers) StopTimer(c *fiber.Ctx) error {
	req, err := timerRequest(c)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	resp, err := h.taskAdapter.StopTimer(c.UserContext(), req)
	if err != nil {
		return h.handleTaskError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(TaskResponse{
		Message:        fmt.Sprintf("Timer stopped! Added %d minutes.", resp.ElapsedMinutes),
		Task:           resp.Task,
		ElapsedMinutes: resp.ElapsedMinutes,
	})
}

// ToggleComplete completes or reopens a task.
func (h *Handlers) ToggleComplete(c *fiber.Ctx) error {
	req, err := timerRequest(c)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	resp, err := h.taskAdapter.ToggleComplete(c.UserContext(), req)
	if err != nil {
		return h.handleTaskError(c, err)
	}

	message := "Task reopened successfully!"
	if resp.Task.Status == taskdomain.StatusCompleted {
		message = "Task completed successfully!"
	}
	return c.Status(fiber.StatusOK).JSON(TaskResponse{
		Message:        message,
		Task:           resp.Task,
		ElapsedMinutes: resp.ElapsedMinutes,
	})
}

// ListActivity returns the caller's newest feed entries.
func (h *Handlers) ListActivity(c *fiber.Ctx) error {
	userID, _ := c.Locals(UserIDContextKey).(string)
	limit := c.QueryInt("limit", defaultActivityLimit)
	if limit <= 0 {
		return respondError(c, fiber.StatusBadRequest, "bad_request", "limit must be a positive number")
	}

	entries, err := h.activityAdapter.ListActivity(c.UserContext(), userID, limit)
	if err != nil {
		h.logger.Error("Activity request failed", "userID", userID, "error", err)
		return respondError(c, fiber.StatusInternalServerError, "internal_error", "An internal error occurred")
	}
	if entries == nil {
		entries = []activity.Entry{}
	}

	return c.Status(fiber.StatusOK).JSON(ActivityResponse{Entries: entries})
}

func credential(c *fiber.Ctx) string {
	token, _ := c.Locals(TokenContextKey).(string)
	return token
}

func timerRequest(c *fiber.Ctx) (task.TimerRequest, error) {
	req := task.TimerRequest{
		Credential: credential(c),
		TaskID:     c.Params("id"),
	}
	if len(c.Body()) == 0 {
		return req, nil
	}
	var body VersionBody
	if err := c.BodyParser(&body); err != nil {
		return req, err
	}
	req.ExpectedVersion = body.ExpectedVersion
	return req, nil
}

// parseDueDate accepts a calendar day in the server's location or a full
// RFC 3339 timestamp.
func parseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(time.DateOnly, s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date %q: use YYYY-MM-DD", s)
	}
	return t, nil
}
