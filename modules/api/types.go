package api

import (
	"time"

	domain "github.com/example/task-tracker/domain/task"
	"github.com/example/task-tracker/modules/activity"
)

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ProfileResponse represents a user profile response.
type ProfileResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateTaskBody is the body of POST /tasks. DueDate accepts YYYY-MM-DD or RFC 3339.
type CreateTaskBody struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	DueDate       string `json:"due_date"`
	EstimatedTime int    `json:"estimated_time"`
}

// UpdateTaskBody is the body of PUT /tasks/:id. Absent fields are untouched;
// an empty due_date clears it.
type UpdateTaskBody struct {
	Title           *string `json:"title"`
	Description     *string `json:"description"`
	Status          *string `json:"status"`
	DueDate         *string `json:"due_date"`
	EstimatedTime   *int    `json:"estimated_time"`
	ExpectedVersion *int    `json:"expected_version"`
}

// VersionBody optionally pins the version a timer or toggle request applies to.
type VersionBody struct {
	ExpectedVersion *int `json:"expected_version"`
}

// TaskResponse carries a task with a user-facing message.
type TaskResponse struct {
	Message        string      `json:"message"`
	Task           domain.Task `json:"task"`
	ElapsedMinutes int         `json:"elapsed_minutes,omitempty"`
}

// DeleteResponse confirms a deletion.
type DeleteResponse struct {
	Message string `json:"message"`
	TaskID  string `json:"task_id"`
}

// ActivityResponse lists feed entries, newest first.
type ActivityResponse struct {
	Entries []activity.Entry `json:"entries"`
}

// SnapshotMessage is the first frame a WebSocket client receives.
type SnapshotMessage struct {
	Type    string           `json:"type"`
	Entries []activity.Entry `json:"entries"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
