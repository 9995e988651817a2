package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/task-tracker/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	nanoid "github.com/jaevor/go-nanoid"
)

// Config configures the activity module.
type Config struct {
	FeedSize int
}

// ListActivityRequest asks for an owner's newest entries.
type ListActivityRequest struct {
	UserID string `json:"user_id"`
	Limit  int    `json:"limit,omitempty"`
}

// ListActivityResponse carries feed entries, newest first.
type ListActivityResponse struct {
	Entries []Entry `json:"entries"`
}

// StreamMessage is what a WebSocket client receives for each new entry.
type StreamMessage struct {
	Type  string `json:"type"`
	Entry Entry  `json:"entry"`
}

// ActivityModule consumes task events into owner feeds and pushes them to the hub.
type ActivityModule struct {
	feed      *Feed
	hub       *Hub
	newID     func() string
	cancelHub context.CancelFunc
	logger    types.Logger
}

var _ mono.Module = (*ActivityModule)(nil)
var _ mono.EventConsumerModule = (*ActivityModule)(nil)
var _ mono.ServiceProviderModule = (*ActivityModule)(nil)
var _ mono.HealthCheckableModule = (*ActivityModule)(nil)

// NewModule creates a new ActivityModule.
func NewModule(config Config, logger types.Logger) (*ActivityModule, error) {
	newID, err := nanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("failed to create id generator: %w", err)
	}

	return &ActivityModule{
		feed:   NewFeed(config.FeedSize, newID),
		hub:    NewHub(logger),
		newID:  newID,
		logger: logger,
	}, nil
}

// Name returns the module name.
func (m *ActivityModule) Name() string {
	return "activity"
}

// Start runs the hub.
func (m *ActivityModule) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	m.logger.Info("Activity module started", "feedSize", m.feed.size)
	return nil
}

// Stop closes every WebSocket connection and stops the hub.
func (m *ActivityModule) Stop(_ context.Context) error {
	clients := m.hub.ClientCount()
	if m.cancelHub != nil {
		m.cancelHub()
		m.hub.Wait()
	}
	m.logger.Info("Activity module stopped", "connectedClients", clients)
	return nil
}

// Health returns the health status.
func (m *ActivityModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
			"owners_with_feed":  m.feed.Owners(),
		},
	}
}

// RegisterServices registers the list-activity service.
func (m *ActivityModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "list-activity", json.Unmarshal, json.Marshal, m.handleListActivity,
	); err != nil {
		return fmt.Errorf("failed to register list-activity service: %w", err)
	}
	m.logger.Info("Registered activity services", "services", []string{"list-activity"})
	return nil
}

// RegisterEventConsumers subscribes to every task event.
func (m *ActivityModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskCreatedV1, m.handleTaskCreated, m); err != nil {
		return fmt.Errorf("failed to register TaskCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskUpdatedV1, m.handleTaskUpdated, m); err != nil {
		return fmt.Errorf("failed to register TaskUpdated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TimerStartedV1, m.handleTimerStarted, m); err != nil {
		return fmt.Errorf("failed to register TimerStarted consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TimerStoppedV1, m.handleTimerStopped, m); err != nil {
		return fmt.Errorf("failed to register TimerStopped consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskCompletedV1, m.handleTaskCompleted, m); err != nil {
		return fmt.Errorf("failed to register TaskCompleted consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskReopenedV1, m.handleTaskReopened, m); err != nil {
		return fmt.Errorf("failed to register TaskReopened consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskDeletedV1, m.handleTaskDeleted, m); err != nil {
		return fmt.Errorf("failed to register TaskDeleted consumer: %w", err)
	}

	m.logger.Info("Registered event consumers",
		"events", []string{"TaskCreated", "TaskUpdated", "TimerStarted", "TimerStopped", "TaskCompleted", "TaskReopened", "TaskDeleted"})
	return nil
}

func (m *ActivityModule) handleListActivity(_ context.Context, req ListActivityRequest, _ *mono.Msg) (ListActivityResponse, error) {
	if req.UserID == "" {
		return ListActivityResponse{}, fmt.Errorf("user_id is required")
	}
	return ListActivityResponse{Entries: m.feed.List(req.UserID, req.Limit)}, nil
}

func (m *ActivityModule) handleTaskCreated(_ context.Context, e events.TaskCreatedEvent, _ *mono.Msg) error {
	m.record(Entry{Owner: e.Owner, TaskID: e.TaskID, Title: e.Title, Kind: KindCreated, Message: "Task created successfully!", At: e.CreatedAt})
	return nil
}

func (m *ActivityModule) handleTaskUpdated(_ context.Context, e events.TaskUpdatedEvent, _ *mono.Msg) error {
	m.record(Entry{Owner: e.Owner, TaskID: e.TaskID, Title: e.Title, Kind: KindUpdated, Message: "Task updated successfully!", At: e.UpdatedAt})
	return nil
}

func (m *ActivityModule) handleTimerStarted(_ context.Context, e events.TimerStartedEvent, _ *mono.Msg) error {
	m.record(Entry{Owner: e.Owner, TaskID: e.TaskID, Title: e.Title, Kind: KindTimerStarted, Message: "Timer started!", At: e.StartedAt})
	return nil
}

func (m *ActivityModule) handleTimerStopped(_ context.Context, e events.TimerStoppedEvent, _ *mono.Msg) error {
	m.record(Entry{
		Owner:   e.Owner,
		TaskID:  e.TaskID,
		Title:   e.Title,
		Kind:    KindTimerStopped,
		Message: fmt.Sprintf("Timer stopped! Added %d minutes.", e.ElapsedMinutes),
		At:      e.StoppedAt,
	})
	return nil
}

func (m *ActivityModule) handleTaskCompleted(_ context.Context, e events.TaskCompletedEvent, _ *mono.Msg) error {
	m.record(Entry{Owner: e.Owner, TaskID: e.TaskID, Title: e.Title, Kind: KindCompleted, Message: "Task completed successfully!", At: e.CompletedAt})
	return nil
}

func (m *ActivityModule) handleTaskReopened(_ context.Context, e events.TaskReopenedEvent, _ *mono.Msg) error {
	m.record(Entry{Owner: e.Owner, TaskID: e.TaskID, Title: e.Title, Kind: KindReopened, Message: "Task reopened successfully!", At: e.ReopenedAt})
	return nil
}

func (m *ActivityModule) handleTaskDeleted(_ context.Context, e events.TaskDeletedEvent, _ *mono.Msg) error {
	m.record(Entry{Owner: e.Owner, TaskID: e.TaskID, Title: e.Title, Kind: KindDeleted, Message: "Task deleted successfully!", At: e.DeletedAt})
	return nil
}

func (m *ActivityModule) record(e Entry) {
	if e.Owner == "" {
		m.logger.Warn("Dropping task event without owner", "taskID", e.TaskID, "kind", e.Kind)
		return
	}
	entry := m.feed.Record(e)
	m.hub.Broadcast(entry.Owner, StreamMessage{Type: "activity", Entry: entry})
}

// Hub returns the WebSocket hub for the HTTP layer.
func (m *ActivityModule) Hub() *Hub {
	return m.hub
}

// Feed returns the activity feed.
func (m *ActivityModule) Feed() *Feed {
	return m.feed
}

// NewClientID returns a fresh WebSocket client id.
func (m *ActivityModule) NewClientID() string {
	return m.newID()
}
