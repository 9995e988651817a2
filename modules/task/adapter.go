package task

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/task-tracker/domain/task"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// TaskPort is the port the HTTP layer uses to reach task services.
type TaskPort interface {
	CreateTask(ctx context.Context, req CreateTaskRequest) (*domain.Task, error)
	GetTask(ctx context.Context, req GetTaskRequest) (*domain.Task, error)
	ListTasks(ctx context.Context, req ListTasksRequest) (*ListTasksResponse, error)
	UpdateTask(ctx context.Context, req UpdateTaskRequest) (*domain.Task, error)
	DeleteTask(ctx context.Context, req DeleteTaskRequest) (*DeleteTaskResponse, error)
	StartTimer(ctx context.Context, req TimerRequest) (*TimerResponse, error)
	StopTimer(ctx context.Context, req TimerRequest) (*TimerResponse, error)
	ToggleComplete(ctx context.Context, req TimerRequest) (*TimerResponse, error)
}

// TaskAdapter implements TaskPort using the service container.
type TaskAdapter struct {
	container mono.ServiceContainer
}

var _ TaskPort = (*TaskAdapter)(nil)

// NewTaskAdapter creates a new TaskAdapter.
func NewTaskAdapter(container mono.ServiceContainer) *TaskAdapter {
	return &TaskAdapter{container: container}
}

// callService performs one typed request-reply call.
func callService[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req *Req) (*Resp, error) {
	var resp Resp
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s request failed: %w", service, err)
	}
	return &resp, nil
}

// CreateTask calls the create-task service.
func (a *TaskAdapter) CreateTask(ctx context.Context, req CreateTaskRequest) (*domain.Task, error) {
	return callService[CreateTaskRequest, domain.Task](ctx, a.container, "create-task", &req)
}

// GetTask calls the get-task service.
func (a *TaskAdapter) GetTask(ctx context.Context, req GetTaskRequest) (*domain.Task, error) {
	return callService[GetTaskRequest, domain.Task](ctx, a.container, "get-task", &req)
}

// ListTasks calls the list-tasks service.
func (a *TaskAdapter) ListTasks(ctx context.Context, req ListTasksRequest) (*ListTasksResponse, error) {
	return callService[ListTasksRequest, ListTasksResponse](ctx, a.container, "list-tasks", &req)
}

// UpdateTask calls the update-task service.
func (a *TaskAdapter) UpdateTask(ctx context.Context, req UpdateTaskRequest) (*domain.Task, error) {
	return callService[UpdateTaskRequest, domain.Task](ctx, a.container, "update-task", &req)
}

// DeleteTask calls the delete-task service.
func (a *TaskAdapter) DeleteTask(ctx context.Context, req DeleteTaskRequest) (*DeleteTaskResponse, error) {
	return callService[DeleteTaskRequest, DeleteTaskResponse](ctx, a.container, "delete-task", &req)
}

// StartTimer calls the start-timer service.
func (a *TaskAdapter) StartTimer(ctx context.Context, req TimerRequest) (*TimerResponse, error) {
	return callService[TimerRequest, TimerResponse](ctx, a.container, "start-timer", &req)
}

// StopTimer calls the stop-timer service.
func (a *TaskAdapter) StopTimer(ctx context.Context, req TimerRequest) (*TimerResponse, error) {
	return callService[TimerRequest, TimerResponse](ctx, a.container, "stop-timer", &req)
}

// ToggleComplete calls the toggle-complete service.
func (a *TaskAdapter) ToggleComplete(ctx context.Context, req TimerRequest) (*TimerResponse, error) {
	return callService[TimerRequest, TimerResponse](ctx, a.container, "toggle-complete", &req)
}
