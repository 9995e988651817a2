package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/task-tracker/database"
	domain "github.com/example/task-tracker/domain/task"
	"github.com/example/task-tracker/events"
	"github.com/example/task-tracker/modules/auth"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/gorm"
)

// Config configures the task module.
type Config struct {
	DBPath  string
	DBDebug bool
}

// TaskModule owns task storage and the task lifecycle.
type TaskModule struct {
	config   Config
	db       *gorm.DB
	cache    ListCache
	guard    *Guard
	service  *Service
	eventBus mono.EventBus
	logger   types.Logger
}

var _ mono.Module = (*TaskModule)(nil)
var _ mono.ServiceProviderModule = (*TaskModule)(nil)
var _ mono.DependentModule = (*TaskModule)(nil)
var _ mono.EventEmitterModule = (*TaskModule)(nil)
var _ mono.EventBusAwareModule = (*TaskModule)(nil)
var _ mono.HealthCheckableModule = (*TaskModule)(nil)

// NewModule creates a new TaskModule. cache may be nil.
func NewModule(config Config, cache ListCache, logger types.Logger) *TaskModule {
	return &TaskModule{
		config: config,
		cache:  cache,
		logger: logger,
	}
}

// Name returns the module name.
func (m *TaskModule) Name() string {
	return "task"
}

// Dependencies declares that credentials are verified by the auth module.
func (m *TaskModule) Dependencies() []string {
	return []string{"auth"}
}

// SetDependencyServiceContainer wires the auth services into the guard.
func (m *TaskModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "auth" {
		m.guard = NewGuard(auth.NewAuthAdapter(container))
	}
}

// SetEventBus receives the EventBus from the framework.
func (m *TaskModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module publishes.
func (m *TaskModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TaskCreatedV1.ToBase(),
		events.TaskUpdatedV1.ToBase(),
		events.TimerStartedV1.ToBase(),
		events.TimerStoppedV1.ToBase(),
		events.TaskCompletedV1.ToBase(),
		events.TaskReopenedV1.ToBase(),
		events.TaskDeletedV1.ToBase(),
	}
}

// Start opens the task store.
func (m *TaskModule) Start(_ context.Context) error {
	if m.guard == nil {
		return fmt.Errorf("auth dependency not set")
	}

	db, err := database.Open(m.config.DBPath, m.config.DBDebug)
	if err != nil {
		return err
	}
	m.db = db

	if err := Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	m.service = NewService(NewRepository(db), m.guard, domain.NewLifecycle(nil, nil), m.cache, m.logger)

	if m.eventBus == nil {
		m.logger.Warn("EventBus not set, task events will not be published")
	}
	m.logger.Info("Task module started", "database", m.config.DBPath, "listCache", m.cache != nil)
	return nil
}

// Stop closes the task store.
func (m *TaskModule) Stop(_ context.Context) error {
	if err := database.Close(m.db); err != nil {
		m.logger.Error("Failed to close database", "error", err)
		return err
	}
	m.logger.Info("Task module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *TaskModule) Health(ctx context.Context) mono.HealthStatus {
	return database.Health(ctx, m.db, m.config.DBPath)
}

// RegisterServices registers request-reply services in the service container.
func (m *TaskModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "create-task", json.Unmarshal, json.Marshal, m.handleCreate,
	); err != nil {
		return fmt.Errorf("failed to register create-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-task", json.Unmarshal, json.Marshal, m.handleGet,
	); err != nil {
		return fmt.Errorf("failed to register get-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list-tasks", json.Unmarshal, json.Marshal, m.handleList,
	); err != nil {
		return fmt.Errorf("failed to register list-tasks service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "update-task", json.Unmarshal, json.Marshal, m.handleUpdate,
	); err != nil {
		return fmt.Errorf("failed to register update-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "delete-task", json.Unmarshal, json.Marshal, m.handleDelete,
	); err != nil {
		return fmt.Errorf("failed to register delete-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "start-timer", json.Unmarshal, json.Marshal, m.handleStartTimer,
	); err != nil {
		return fmt.Errorf("failed to register start-timer service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "stop-timer", json.Unmarshal, json.Marshal, m.handleStopTimer,
	); err != nil {
		return fmt.Errorf("failed to register stop-timer service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "toggle-complete", json.Unmarshal, json.Marshal, m.handleToggleComplete,
	); err != nil {
		return fmt.Errorf("failed to register toggle-complete service: %w", err)
	}

	m.logger.Info("Registered task services",
		"services", []string{"create-task", "get-task", "list-tasks", "update-task", "delete-task",
			"start-timer", "stop-timer", "toggle-complete"})
	return nil
}

func (m *TaskModule) handleCreate(ctx context.Context, req CreateTaskRequest, _ *mono.Msg) (domain.Task, error) {
	t, err := m.service.Create(ctx, req.Credential, domain.Draft{
		Title:         req.Title,
		Description:   req.Description,
		DueDate:       req.DueDate,
		EstimatedTime: req.EstimatedTime,
	})
	if err != nil {
		return domain.Task{}, err
	}

	m.publishCreated(t)
	m.logger.Info("Task created", "taskID", t.ID, "owner", t.Owner)
	return *t, nil
}

func (m *TaskModule) handleGet(ctx context.Context, req GetTaskRequest, _ *mono.Msg) (domain.Task, error) {
	t, err := m.service.Get(ctx, req.Credential, req.TaskID)
	if err != nil {
		return domain.Task{}, err
	}
	return *t, nil
}

func (m *TaskModule) handleList(ctx context.Context, req ListTasksRequest, _ *mono.Msg) (ListTasksResponse, error) {
	filter, err := domain.ParseFilter(req.Filter)
	if err != nil {
		return ListTasksResponse{}, err
	}
	sortBy, err := domain.ParseSortBy(req.SortBy)
	if err != nil {
		return ListTasksResponse{}, err
	}

	view, err := m.service.List(ctx, req.Credential, domain.Query{
		Filter: filter,
		SortBy: sortBy,
		Search: req.Search,
	})
	if err != nil {
		return ListTasksResponse{}, err
	}
	return ListTasksResponse{Tasks: view.Tasks, Stats: view.Stats}, nil
}

func (m *TaskModule) handleUpdate(ctx context.Context, req UpdateTaskRequest, _ *mono.Msg) (domain.Task, error) {
	out, err := m.service.Update(ctx, req.Credential, req.TaskID, req.patch(), req.ExpectedVersion)
	if err != nil {
		return domain.Task{}, err
	}
	if out.Unchanged() {
		return out.After, nil
	}

	if out.Before.IsTimerRunning && !out.After.IsTimerRunning {
		m.publishTimerStopped(out)
	}
	m.publishUpdated(out.After)
	return out.After, nil
}

func (m *TaskModule) handleDelete(ctx context.Context, req DeleteTaskRequest, _ *mono.Msg) (DeleteTaskResponse, error) {
	t, err := m.service.Delete(ctx, req.Credential, req.TaskID)
	if err != nil {
		return DeleteTaskResponse{}, err
	}

	m.publishDeleted(t)
	m.logger.Info("Task deleted", "taskID", t.ID, "owner", t.Owner)
	return DeleteTaskResponse{TaskID: t.ID, Deleted: true}, nil
}

func (m *TaskModule) handleStartTimer(ctx context.Context, req TimerRequest, _ *mono.Msg) (TimerResponse, error) {
	out, err := m.service.StartTimer(ctx, req.Credential, req.TaskID, req.ExpectedVersion)
	if err != nil {
		return TimerResponse{}, err
	}

	m.publishTimerStarted(out.After)
	return TimerResponse{Task: out.After}, nil
}

func (m *TaskModule) handleStopTimer(ctx context.Context, req TimerRequest, _ *mono.Msg) (TimerResponse, error) {
	out, err := m.service.StopTimer(ctx, req.Credential, req.TaskID, req.ExpectedVersion)
	if err != nil {
		return TimerResponse{}, err
	}

	m.publishTimerStopped(out)
	return TimerResponse{Task: out.After, ElapsedMinutes: out.Elapsed}, nil
}

func (m *TaskModule) handleToggleComplete(ctx context.Context, req TimerRequest, _ *mono.Msg) (TimerResponse, error) {
	out, err := m.service.ToggleComplete(ctx, req.Credential, req.TaskID, req.ExpectedVersion)
	if err != nil {
		return TimerResponse{}, err
	}

	if out.After.Status == domain.StatusCompleted {
		if out.Before.IsTimerRunning {
			m.publishTimerStopped(out)
		}
		m.publishCompleted(out.After)
	} else {
		m.publishReopened(out.After)
	}
	return TimerResponse{Task: out.After, ElapsedMinutes: out.Elapsed}, nil
}
