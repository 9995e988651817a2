package task

import (
	"time"

	domain "github.com/example/task-tracker/domain/task"
	"github.com/example/task-tracker/events"
)

// Event publishing is best-effort: a failure is logged and the write that
// triggered it still succeeds.

func (m *TaskModule) publishCreated(t *domain.Task) {
	if m.eventBus == nil {
		return
	}
	event := events.TaskCreatedEvent{
		TaskID:    t.ID,
		Owner:     t.Owner,
		Title:     t.Title,
		CreatedAt: t.CreatedAt,
	}
	if err := events.TaskCreatedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish TaskCreated event", "taskID", t.ID, "error", err)
	}
}

func (m *TaskModule) publishUpdated(t domain.Task) {
	if m.eventBus == nil {
		return
	}
	event := events.TaskUpdatedEvent{
		TaskID:    t.ID,
		Owner:     t.Owner,
		Title:     t.Title,
		Status:    string(t.Status),
		Version:   t.Version,
		UpdatedAt: t.UpdatedAt,
	}
	if err := events.TaskUpdatedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish TaskUpdated event", "taskID", t.ID, "error", err)
	}
}

func (m *TaskModule) publishTimerStarted(t domain.Task) {
	if m.eventBus == nil {
		return
	}
	event := events.TimerStartedEvent{
		TaskID:    t.ID,
		Owner:     t.Owner,
		Title:     t.Title,
		StartedAt: *t.TimeStarted,
	}
	if err := events.TimerStartedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish TimerStarted event", "taskID", t.ID, "error", err)
	}
}

func (m *TaskModule) publishTimerStopped(out *Outcome) {
	if m.eventBus == nil {
		return
	}
	t := out.After
	event := events.TimerStoppedEvent{
		TaskID:         t.ID,
		Owner:          t.Owner,
		Title:          t.Title,
		ElapsedMinutes: out.Elapsed,
		ActualTime:     t.ActualTime,
		StoppedAt:      t.UpdatedAt,
	}
	if err := events.TimerStoppedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish TimerStopped event", "taskID", t.ID, "error", err)
	}
}

func (m *TaskModule) publishCompleted(t domain.Task) {
	if m.eventBus == nil {
		return
	}
	event := events.TaskCompletedEvent{
		TaskID:      t.ID,
		Owner:       t.Owner,
		Title:       t.Title,
		ActualTime:  t.ActualTime,
		CompletedAt: t.UpdatedAt,
	}
	if err := events.TaskCompletedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish TaskCompleted event", "taskID", t.ID, "error", err)
	}
}

func (m *TaskModule) publishReopened(t domain.Task) {
	if m.eventBus == nil {
		return
	}
	event := events.TaskReopenedEvent{
		TaskID:     t.ID,
		Owner:      t.Owner,
		Title:      t.Title,
		ReopenedAt: t.UpdatedAt,
	}
	if err := events.TaskReopenedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish TaskReopened event", "taskID", t.ID, "error", err)
	}
}

func (m *TaskModule) publishDeleted(t *domain.Task) {
	if m.eventBus == nil {
		return
	}
	event := events.TaskDeletedEvent{
		TaskID:    t.ID,
		Owner:     t.Owner,
		Title:     t.Title,
		DeletedAt: time.Now(),
	}
	if err := events.TaskDeletedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish TaskDeleted event", "taskID", t.ID, "error", err)
	}
}
