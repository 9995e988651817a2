package task

import (
	"time"

	domain "github.com/example/task-tracker/domain/task"
)

// Every request carries the caller's bearer credential. The module never
// reads identity from anywhere else.

// CreateTaskRequest represents a request to create a task.
type CreateTaskRequest struct {
	Credential    string     `json:"credential"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	EstimatedTime int        `json:"estimated_time"`
}

// GetTaskRequest represents a request to read one task.
type GetTaskRequest struct {
	Credential string `json:"credential"`
	TaskID     string `json:"task_id"`
}

// ListTasksRequest represents a request for the caller's task view.
type ListTasksRequest struct {
	Credential string `json:"credential"`
	Filter     string `json:"filter,omitempty"`
	SortBy     string `json:"sort_by,omitempty"`
	Search     string `json:"search,omitempty"`
}

// ListTasksResponse is the filtered, sorted view with owner-wide stats.
type ListTasksResponse struct {
	Tasks []domain.Task `json:"tasks"`
	Stats domain.Stats  `json:"stats"`
}

// UpdateTaskRequest is an allow-listed patch. Absent fields are untouched.
type UpdateTaskRequest struct {
	Credential      string     `json:"credential"`
	TaskID          string     `json:"task_id"`
	Title           *string    `json:"title,omitempty"`
	Description     *string    `json:"description,omitempty"`
	Status          *string    `json:"status,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	ClearDueDate    bool       `json:"clear_due_date,omitempty"`
	EstimatedTime   *int       `json:"estimated_time,omitempty"`
	ExpectedVersion *int       `json:"expected_version,omitempty"`
}

// DeleteTaskRequest represents a request to delete a task.
type DeleteTaskRequest struct {
	Credential string `json:"credential"`
	TaskID     string `json:"task_id"`
}

// DeleteTaskResponse confirms a deletion.
type DeleteTaskResponse struct {
	TaskID  string `json:"task_id"`
	Deleted bool   `json:"deleted"`
}

// TimerRequest targets the timer or completion state of one task.
type TimerRequest struct {
	Credential      string `json:"credential"`
	TaskID          string `json:"task_id"`
	ExpectedVersion *int   `json:"expected_version,omitempty"`
}

// TimerResponse is the task after a timer or completion change. ElapsedMinutes
// is what the change added to actual_time.
type TimerResponse struct {
	Task           domain.Task `json:"task"`
	ElapsedMinutes int         `json:"elapsed_minutes"`
}

func (r UpdateTaskRequest) patch() domain.Patch {
	p := domain.Patch{
		Title:         r.Title,
		Description:   r.Description,
		DueDate:       r.DueDate,
		ClearDueDate:  r.ClearDueDate,
		EstimatedTime: r.EstimatedTime,
	}
	if r.Status != nil {
		s := domain.Status(*r.Status)
		p.Status = &s
	}
	return p
}
