// Package events declares the typed events the task module publishes.
package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// TaskCreatedEvent is emitted when a new task is created.
type TaskCreatedEvent struct {
	TaskID    string    `json:"task_id"`
	Owner     string    `json:"owner"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskCreatedV1 is the typed event definition for task creation.
// Subject: events.task.v1.task-created
var TaskCreatedV1 = helper.EventDefinition[TaskCreatedEvent](
	"task", "TaskCreated", "v1",
)

// TaskUpdatedEvent is emitted when task fields are edited.
type TaskUpdatedEvent struct {
	TaskID    string    `json:"task_id"`
	Owner     string    `json:"owner"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskUpdatedV1 is the typed event definition for task edits.
// Subject: events.task.v1.task-updated
var TaskUpdatedV1 = helper.EventDefinition[TaskUpdatedEvent](
	"task", "TaskUpdated", "v1",
)

// TimerStartedEvent is emitted when a task timer starts.
type TimerStartedEvent struct {
	TaskID    string    `json:"task_id"`
	Owner     string    `json:"owner"`
	Title     string    `json:"title"`
	StartedAt time.Time `json:"started_at"`
}

// TimerStartedV1 is the typed event definition for timer starts.
// Subject: events.task.v1.timer-started
var TimerStartedV1 = helper.EventDefinition[TimerStartedEvent](
	"task", "TimerStarted", "v1",
)

// TimerStoppedEvent is emitted when a timer stops, explicitly or because the
// task was completed.
type TimerStoppedEvent struct {
	TaskID         string    `json:"task_id"`
	Owner          string    `json:"owner"`
	Title          string    `json:"title"`
	ElapsedMinutes int       `json:"elapsed_minutes"`
	ActualTime     int       `json:"actual_time"`
	StoppedAt      time.Time `json:"stopped_at"`
}

// TimerStoppedV1 is the typed event definition for timer stops.
// Subject: events.task.v1.timer-stopped
var TimerStoppedV1 = helper.EventDefinition[TimerStoppedEvent](
	"task", "TimerStopped", "v1",
)

// TaskCompletedEvent is emitted when a task is marked complete.
type TaskCompletedEvent struct {
	TaskID      string    `json:"task_id"`
	Owner       string    `json:"owner"`
	Title       string    `json:"title"`
	ActualTime  int       `json:"actual_time"`
	CompletedAt time.Time `json:"completed_at"`
}

// TaskCompletedV1 is the typed event definition for task completion.
// Subject: events.task.v1.task-completed
var TaskCompletedV1 = helper.EventDefinition[TaskCompletedEvent](
	"task", "TaskCompleted", "v1",
)

// TaskReopenedEvent is emitted when a completed task returns to pending.
type TaskReopenedEvent struct {
	TaskID     string    `json:"task_id"`
	Owner      string    `json:"owner"`
	Title      string    `json:"title"`
	ReopenedAt time.Time `json:"reopened_at"`
}

// TaskReopenedV1 is the typed event definition for reopening.
// Subject: events.task.v1.task-reopened
var TaskReopenedV1 = helper.EventDefinition[TaskReopenedEvent](
	"task", "TaskReopened", "v1",
)

// TaskDeletedEvent is emitted when a task is deleted.
type TaskDeletedEvent struct {
	TaskID    string    `json:"task_id"`
	Owner     string    `json:"owner"`
	Title     string    `json:"title"`
	DeletedAt time.Time `json:"deleted_at"`
}

// TaskDeletedV1 is the typed event definition for task deletion.
// Subject: events.task.v1.task-deleted
var TaskDeletedV1 = helper.EventDefinition[TaskDeletedEvent](
	"task", "TaskDeleted", "v1",
)
