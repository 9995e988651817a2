package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	taskdomain "github.com/example/task-tracker/domain/task"
	userdomain "github.com/example/task-tracker/domain/user"
	"github.com/example/task-tracker/modules/activity"
	"github.com/example/task-tracker/modules/auth"
	"github.com/example/task-tracker/modules/ratelimit"
	"github.com/example/task-tracker/modules/task"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTaskID = "0b6f3c1e-8f0a-4d39-9d2b-2d1c5e7f9a10"

// fakeTaskPort records the last request and answers with preset values.
type fakeTaskPort struct {
	task    *taskdomain.Task
	list    *task.ListTasksResponse
	timer   *task.TimerResponse
	err     error
	create  task.CreateTaskRequest
	update  task.UpdateTaskRequest
	listReq task.ListTasksRequest
	timerRq task.TimerRequest
}

func (f *fakeTaskPort) CreateTask(_ context.Context, req task.CreateTaskRequest) (*taskdomain.Task, error) {
	f.create = req
	return f.task, f.err
}

func (f *fakeTaskPort) GetTask(_ context.Context, _ task.GetTaskRequest) (*taskdomain.Task, error) {
	return f.task, f.err
}

func (f *fakeTaskPort) ListTasks(_ context.Context, req task.ListTasksRequest) (*task.ListTasksResponse, error) {
	f.listReq = req
	return f.list, f.err
}

func (f *fakeTaskPort) UpdateTask(_ context.Context, req task.UpdateTaskRequest) (*taskdomain.Task, error) {
	f.update = req
	return f.task, f.err
}

func (f *fakeTaskPort) DeleteTask(_ context.Context, req task.DeleteTaskRequest) (*task.DeleteTaskResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &task.DeleteTaskResponse{TaskID: req.TaskID, Deleted: true}, nil
}

func (f *fakeTaskPort) StartTimer(_ context.Context, req task.TimerRequest) (*task.TimerResponse, error) {
	f.timerRq = req
	return f.timer, f.err
}

func (f *fakeTaskPort) StopTimer(_ context.Context, req task.TimerRequest) (*task.TimerResponse, error) {
	f.timerRq = req
	return f.timer, f.err
}

func (f *fakeTaskPort) ToggleComplete(_ context.Context, req task.TimerRequest) (*task.TimerResponse, error) {
	f.timerRq = req
	return f.timer, f.err
}

type fakeActivityPort struct {
	entries   []activity.Entry
	err       error
	lastUser  string
	lastLimit int
}

func (f *fakeActivityPort) ListActivity(_ context.Context, userID string, limit int) ([]activity.Entry, error) {
	f.lastUser = userID
	f.lastLimit = limit
	return f.entries, f.err
}

func validAuth() *mockAuthPort {
	return &mockAuthPort{
		validateTokenFunc: func(_ context.Context, token string) (*userdomain.Claims, error) {
			if token != "token-alice" {
				return nil, auth.ErrInvalidToken
			}
			return &userdomain.Claims{UserID: "alice", Email: "alice@example.com"}, nil
		},
	}
}

func newTestApp(authPort auth.AuthPort, tasks task.TaskPort, feed activity.ActivityPort, limiter *ratelimit.Middleware) *fiber.App {
	m := NewModule(Config{Addr: ":0"}, nil, limiter, &mockLogger{})
	m.authAdapter = authPort
	m.taskAdapter = tasks
	m.activityAdapter = feed
	return m.buildApp()
}

func doRequest(t *testing.T, app *fiber.App, method, target, body string) (int, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Authorization", "Bearer token-alice")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestHandlers_TaskErrorMapping(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{name: "validation", err: fmt.Errorf("%w: invalid task id", taskdomain.ErrValidation), expectedStatus: http.StatusBadRequest, expectedBody: `"message":"invalid task id"`},
		{name: "unauthenticated", err: errors.New("get-task request failed: authentication required: token has expired"), expectedStatus: http.StatusUnauthorized, expectedBody: `"message":"token has expired"`},
		{name: "forbidden", err: errors.New("get-task request failed: not allowed to access this task"), expectedStatus: http.StatusForbidden, expectedBody: `"error":"forbidden"`},
		{name: "not found", err: errors.New("get-task request failed: task not found"), expectedStatus: http.StatusNotFound, expectedBody: `"error":"not_found"`},
		{name: "invalid state", err: fmt.Errorf("%w: timer is not running", taskdomain.ErrInvalidState), expectedStatus: http.StatusConflict, expectedBody: `"message":"timer is not running"`},
		{name: "conflict", err: fmt.Errorf("%w: expected version 2, found 3", taskdomain.ErrConflict), expectedStatus: http.StatusConflict, expectedBody: `expected version 2`},
		{name: "validation detail naming another sentinel", err: errors.New("get-task request failed: validation failed: title task not found is too long"), expectedStatus: http.StatusBadRequest, expectedBody: `"error":"bad_request"`},
		{name: "store failure hidden", err: fmt.Errorf("%w: database is locked", taskdomain.ErrStore), expectedStatus: http.StatusInternalServerError, expectedBody: `"message":"An internal error occurred"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(validAuth(), &fakeTaskPort{err: tt.err}, &fakeActivityPort{}, nil)

			status, body := doRequest(t, app, "GET", "/api/v1/tasks/"+testTaskID, "")
			if status != tt.expectedStatus {
				t.Errorf("Status = %d, want %d", status, tt.expectedStatus)
			}
			if !strings.Contains(body, tt.expectedBody) {
				t.Errorf("Body = %s, want to contain %s", body, tt.expectedBody)
			}
			if strings.Contains(body, "database is locked") {
				t.Errorf("Body leaks internal error: %s", body)
			}
		})
	}
}

func TestHandlers_CreateTask(t *testing.T) {
	created := &taskdomain.Task{ID: testTaskID, Owner: "alice", Title: "Write report", Status: taskdomain.StatusPending, Version: 1}
	tasks := &fakeTaskPort{task: created}
	app := newTestApp(validAuth(), tasks, &fakeActivityPort{}, nil)

	status, body := doRequest(t, app, "POST", "/api/v1/tasks",
		`{"title":"Write report","description":"Q3","due_date":"2030-01-15","estimated_time":90}`)

	assert.Equal(t, http.StatusCreated, status)
	assert.Contains(t, body, `"message":"Task created successfully!"`)
	assert.Equal(t, "token-alice", tasks.create.Credential)
	assert.Equal(t, 90, tasks.create.EstimatedTime)
	require.NotNil(t, tasks.create.DueDate)
	assert.Equal(t, "2030-01-15", tasks.create.DueDate.Format(time.DateOnly))
}

func TestHandlers_CreateTaskRejectsBadDueDate(t *testing.T) {
	tasks := &fakeTaskPort{}
	app := newTestApp(validAuth(), tasks, &fakeActivityPort{}, nil)

	status, body := doRequest(t, app, "POST", "/api/v1/tasks", `{"title":"Write report","due_date":"next week"}`)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "invalid due date")
	assert.Empty(t, tasks.create.Credential, "task module must not be called")
}

func TestHandlers_UpdateTask(t *testing.T) {
	tasks := &fakeTaskPort{task: &taskdomain.Task{ID: testTaskID, Title: "Renamed"}}
	app := newTestApp(validAuth(), tasks, &fakeActivityPort{}, nil)

	status, body := doRequest(t, app, "PUT", "/api/v1/tasks/"+testTaskID,
		`{"title":"Renamed","due_date":"","expected_version":4}`)

	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"message":"Task updated successfully!"`)
	assert.Equal(t, testTaskID, tasks.update.TaskID)
	require.NotNil(t, tasks.update.Title)
	assert.Equal(t, "Renamed", *tasks.update.Title)
	assert.True(t, tasks.update.ClearDueDate)
	assert.Nil(t, tasks.update.Description)
	require.NotNil(t, tasks.update.ExpectedVersion)
	assert.Equal(t, 4, *tasks.update.ExpectedVersion)
}

func TestHandlers_UpdateTaskWithOnlyImmutableFields(t *testing.T) {
	current := &taskdomain.Task{ID: testTaskID, Owner: "alice", Title: "Write report", Version: 2}
	tasks := &fakeTaskPort{task: current}
	app := newTestApp(validAuth(), tasks, &fakeActivityPort{}, nil)

	status, body := doRequest(t, app, "PUT", "/api/v1/tasks/"+testTaskID,
		`{"owner":"mallory","id":"other","created_at":"2020-01-01T00:00:00Z"}`)

	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"owner":"alice"`)
	assert.Equal(t, testTaskID, tasks.update.TaskID)
	assert.Nil(t, tasks.update.Title)
	assert.Nil(t, tasks.update.Description)
	assert.Nil(t, tasks.update.Status)
	assert.Nil(t, tasks.update.DueDate)
	assert.False(t, tasks.update.ClearDueDate)
	assert.Nil(t, tasks.update.EstimatedTime)
}

func TestHandlers_UpdateTaskStatusNamingSentinel(t *testing.T) {
	tasks := &fakeTaskPort{err: errors.New("update-task request failed: validation failed: status must be one of pending, in-progress, completed")}
	app := newTestApp(validAuth(), tasks, &fakeActivityPort{}, nil)

	status, body := doRequest(t, app, "PUT", "/api/v1/tasks/"+testTaskID, `{"status":"task not found"}`)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, `"error":"bad_request"`)
}

func TestHandlers_ListTasksForwardsQuery(t *testing.T) {
	tasks := &fakeTaskPort{list: &task.ListTasksResponse{Tasks: []taskdomain.Task{}, Stats: taskdomain.Stats{Total: 2}}}
	app := newTestApp(validAuth(), tasks, &fakeActivityPort{}, nil)

	status, body := doRequest(t, app, "GET", "/api/v1/tasks?filter=completed&sort=title&search=report", "")

	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"total":2`)
	assert.Equal(t, task.ListTasksRequest{
		Credential: "token-alice",
		Filter:     "completed",
		SortBy:     "title",
		Search:     "report",
	}, tasks.listReq)
}

func TestHandlers_TimerAndToggleMessages(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     string
		timer    *task.TimerResponse
		expected string
	}{
		{
			name:     "start",
			path:     "/timer/start",
			timer:    &task.TimerResponse{Task: taskdomain.Task{Status: taskdomain.StatusInProgress}},
			expected: `"message":"Timer started!"`,
		},
		{
			name:     "stop",
			path:     "/timer/stop",
			body:     `{"expected_version":3}`,
			timer:    &task.TimerResponse{Task: taskdomain.Task{Status: taskdomain.StatusInProgress, ActualTime: 25}, ElapsedMinutes: 25},
			expected: `"message":"Timer stopped! Added 25 minutes."`,
		},
		{
			name:     "complete",
			path:     "/toggle",
			timer:    &task.TimerResponse{Task: taskdomain.Task{Status: taskdomain.StatusCompleted}},
			expected: `"message":"Task completed successfully!"`,
		},
		{
			name:     "reopen",
			path:     "/toggle",
			timer:    &task.TimerResponse{Task: taskdomain.Task{Status: taskdomain.StatusPending}},
			expected: `"message":"Task reopened successfully!"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := &fakeTaskPort{timer: tt.timer}
			app := newTestApp(validAuth(), tasks, &fakeActivityPort{}, nil)

			status, body := doRequest(t, app, "POST", "/api/v1/tasks/"+testTaskID+tt.path, tt.body)
			assert.Equal(t, http.StatusOK, status)
			assert.Contains(t, body, tt.expected)
			assert.Equal(t, "token-alice", tasks.timerRq.Credential)
			if tt.body != "" {
				require.NotNil(t, tasks.timerRq.ExpectedVersion)
				assert.Equal(t, 3, *tasks.timerRq.ExpectedVersion)
			}
		})
	}
}

func TestHandlers_DeleteTask(t *testing.T) {
	app := newTestApp(validAuth(), &fakeTaskPort{}, &fakeActivityPort{}, nil)

	status, body := doRequest(t, app, "DELETE", "/api/v1/tasks/"+testTaskID, "")

	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"message":"Task deleted successfully!"`)
	assert.Contains(t, body, testTaskID)
}

func TestHandlers_ListActivity(t *testing.T) {
	feed := &fakeActivityPort{entries: []activity.Entry{{ID: "e1", Owner: "alice", Kind: activity.KindCreated}}}
	app := newTestApp(validAuth(), &fakeTaskPort{}, feed, nil)

	status, body := doRequest(t, app, "GET", "/api/v1/activity?limit=5", "")
	assert.Equal(t, http.StatusOK, status)

	var resp ActivityResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "e1", resp.Entries[0].ID)
	assert.Equal(t, "alice", feed.lastUser)
	assert.Equal(t, 5, feed.lastLimit)

	status, _ = doRequest(t, app, "GET", "/api/v1/activity?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHandlers_AuthErrors(t *testing.T) {
	authPort := validAuth()
	authPort.registerFunc = func(_ context.Context, req auth.RegisterRequest) (*auth.RegisterResponse, error) {
		if req.Email == "taken@example.com" {
			return nil, errors.New("register request failed: user with this email already exists")
		}
		return nil, errors.New("register request failed: password must be at least 8 characters")
	}
	authPort.loginFunc = func(_ context.Context, _ auth.LoginRequest) (*auth.LoginResponse, error) {
		return nil, errors.New("login request failed: invalid email or password")
	}
	authPort.refreshFunc = func(_ context.Context, _ string) (*auth.TokenInfo, error) {
		return nil, errors.New("refresh-token request failed: invalid refresh token: token has expired")
	}
	app := newTestApp(authPort, &fakeTaskPort{}, &fakeActivityPort{}, nil)

	tests := []struct {
		name           string
		path           string
		body           string
		expectedStatus int
	}{
		{name: "duplicate email", path: "/register", body: `{"name":"A","email":"taken@example.com","password":"password123"}`, expectedStatus: http.StatusConflict},
		{name: "weak password", path: "/register", body: `{"name":"A","email":"a@example.com","password":"short"}`, expectedStatus: http.StatusBadRequest},
		{name: "missing fields", path: "/register", body: `{"name":"A"}`, expectedStatus: http.StatusBadRequest},
		{name: "bad login", path: "/login", body: `{"email":"a@example.com","password":"wrong-password"}`, expectedStatus: http.StatusUnauthorized},
		{name: "expired refresh", path: "/refresh", body: `{"refresh_token":"old"}`, expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := doRequest(t, app, "POST", "/api/v1/auth"+tt.path, tt.body)
			if status != tt.expectedStatus {
				t.Errorf("Status = %d, want %d", status, tt.expectedStatus)
			}
		})
	}
}

func TestHandlers_RegisterReturnsUserAndTokens(t *testing.T) {
	authPort := validAuth()
	authPort.registerFunc = func(_ context.Context, req auth.RegisterRequest) (*auth.RegisterResponse, error) {
		return &auth.RegisterResponse{
			User:   auth.UserInfo{ID: "u1", Name: req.Name, Email: req.Email},
			Tokens: auth.TokenInfo{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"},
		}, nil
	}
	app := newTestApp(authPort, &fakeTaskPort{}, &fakeActivityPort{}, nil)

	status, body := doRequest(t, app, "POST", "/api/v1/auth/register", `{"name":"Alice","email":"alice@example.com","password":"password123"}`)

	assert.Equal(t, http.StatusCreated, status)
	assert.Contains(t, body, `"name":"Alice"`)
	assert.Contains(t, body, `"access_token":"access"`)
}

func TestHandlers_Profile(t *testing.T) {
	authPort := validAuth()
	authPort.getUserFunc = func(_ context.Context, userID string) (*userdomain.User, error) {
		return &userdomain.User{ID: userID, Name: "Alice", Email: "alice@example.com"}, nil
	}
	app := newTestApp(authPort, &fakeTaskPort{}, &fakeActivityPort{}, nil)

	status, body := doRequest(t, app, "GET", "/api/v1/profile", "")

	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"id":"alice"`)
	assert.NotContains(t, body, "password")
}

// denyLimiter refuses every request.
type denyLimiter struct {
	calls int
}

func (d *denyLimiter) Allow(_ context.Context, _ string) (*ratelimit.Result, error) {
	d.calls++
	return &ratelimit.Result{Allowed: false, ResetAt: time.Now().Add(time.Minute), RetryAfter: 10 * time.Second}, nil
}

func TestHandlers_RateLimitedRoutes(t *testing.T) {
	ipLimiter, userLimiter := &denyLimiter{}, &denyLimiter{}
	limiter := ratelimit.NewMiddlewareWithLimiters(ipLimiter, 20, userLimiter, 300, &mockLogger{})
	app := newTestApp(validAuth(), &fakeTaskPort{}, &fakeActivityPort{}, limiter)

	status, _ := doRequest(t, app, "POST", "/api/v1/auth/login", `{"email":"a@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, 1, ipLimiter.calls)

	status, _ = doRequest(t, app, "GET", "/api/v1/tasks", "")
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, 1, userLimiter.calls)

	status, _ = doRequest(t, app, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestHandlers_RequiresBearerToken(t *testing.T) {
	tasks := &fakeTaskPort{}
	app := newTestApp(validAuth(), tasks, &fakeActivityPort{}, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/tasks", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, tasks.listReq.Credential)
}

func TestParseDueDate(t *testing.T) {
	day, err := parseDueDate("2030-06-01")
	require.NoError(t, err)
	assert.Equal(t, time.Local, day.Location())
	assert.Equal(t, 1, day.Day())

	stamp, err := parseDueDate("2030-06-01T15:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, 15, stamp.UTC().Hour())

	_, err = parseDueDate("06/01/2030")
	assert.Error(t, err)
}
