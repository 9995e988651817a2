package task

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MinTitleLength is the minimum number of characters in a trimmed title.
const MinTitleLength = 3

// Draft holds the caller-supplied fields of a new task.
type Draft struct {
	Title         string
	Description   string
	DueDate       *time.Time
	EstimatedTime int
}

// Patch is the allow-list of fields an edit may change. A nil field is left
// untouched. Owner, ID, CreatedAt, ActualTime and the timer fields are not
// editable and have no place here.
type Patch struct {
	Title         *string
	Description   *string
	Status        *Status
	DueDate       *time.Time
	ClearDueDate  bool
	EstimatedTime *int
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.DueDate == nil && !p.ClearDueDate && p.EstimatedTime == nil
}

// Lifecycle owns the task state machine and elapsed-time accounting.
//
// Every operation works on a copy and returns the next canonical task; the
// input is never modified, so a failed operation leaves nothing half-applied.
type Lifecycle struct {
	now   func() time.Time
	newID func() string
}

// NewLifecycle creates a Lifecycle using the given clock and id generator.
// Nil arguments default to time.Now and random UUIDs.
func NewLifecycle(now func() time.Time, newID func() string) *Lifecycle {
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = func() string { return uuid.New().String() }
	}
	return &Lifecycle{now: now, newID: newID}
}

// Now returns the lifecycle clock's current time.
func (l *Lifecycle) Now() time.Time {
	return l.now()
}

// Create validates d and produces a new pending task owned by owner.
func (l *Lifecycle) Create(owner string, d Draft) (Task, error) {
	if owner == "" {
		return Task{}, fmt.Errorf("%w: owner is required", ErrValidation)
	}

	now := l.now()
	title, err := validateTitle(d.Title)
	if err != nil {
		return Task{}, err
	}
	if d.DueDate != nil {
		if err := validateDueDate(*d.DueDate, now); err != nil {
			return Task{}, err
		}
	}
	if err := validateEstimate(d.EstimatedTime); err != nil {
		return Task{}, err
	}

	return Task{
		ID:            l.newID(),
		Owner:         owner,
		Title:         title,
		Description:   strings.TrimSpace(d.Description),
		Status:        StatusPending,
		DueDate:       cloneTime(d.DueDate),
		EstimatedTime: d.EstimatedTime,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Edit applies p to t. Only supplied fields are validated.
//
// Moving the status away from in-progress while the timer runs stops the
// timer first, so the running interval is added to ActualTime.
func (l *Lifecycle) Edit(t Task, p Patch) (Task, error) {
	next := t.Clone()
	now := l.now()

	if p.Title != nil {
		title, err := validateTitle(*p.Title)
		if err != nil {
			return Task{}, err
		}
		next.Title = title
	}
	if p.Description != nil {
		next.Description = strings.TrimSpace(*p.Description)
	}
	switch {
	case p.ClearDueDate:
		next.DueDate = nil
	case p.DueDate != nil:
		if err := validateDueDate(*p.DueDate, now); err != nil {
			return Task{}, err
		}
		next.DueDate = cloneTime(p.DueDate)
	}
	if p.EstimatedTime != nil {
		if err := validateEstimate(*p.EstimatedTime); err != nil {
			return Task{}, err
		}
		next.EstimatedTime = *p.EstimatedTime
	}
	if p.Status != nil {
		if !p.Status.IsValid() {
			return Task{}, fmt.Errorf("%w: status must be one of pending, in-progress, completed", ErrValidation)
		}
		if *p.Status != StatusInProgress && next.IsTimerRunning {
			stopTimer(&next, now)
		}
		next.Status = *p.Status
	}

	next.UpdatedAt = now
	return next, nil
}

// StartTimer opens a timer interval and moves the task to in-progress.
func (l *Lifecycle) StartTimer(t Task) (Task, error) {
	if t.Status == StatusCompleted {
		return Task{}, fmt.Errorf("%w: cannot start the timer of a completed task", ErrInvalidState)
	}
	if t.IsTimerRunning {
		return Task{}, fmt.Errorf("%w: timer is already running", ErrInvalidState)
	}

	next := t.Clone()
	now := l.now()
	next.IsTimerRunning = true
	next.TimeStarted = &now
	next.Status = StatusInProgress
	next.UpdatedAt = now
	return next, nil
}

// StopTimer closes the running interval and adds its whole minutes to
// ActualTime. It returns the minutes added.
func (l *Lifecycle) StopTimer(t Task) (Task, int, error) {
	if !t.IsTimerRunning {
		return Task{}, 0, fmt.Errorf("%w: timer is not running", ErrInvalidState)
	}

	next := t.Clone()
	now := l.now()
	elapsed := stopTimer(&next, now)
	next.UpdatedAt = now
	return next, elapsed, nil
}

// ToggleComplete reopens a completed task, or completes any other task.
// Completing a task with a running timer stops the timer first; the minutes
// it accounted are returned.
func (l *Lifecycle) ToggleComplete(t Task) (Task, int, error) {
	next := t.Clone()
	now := l.now()

	if t.Status == StatusCompleted {
		next.Status = StatusPending
		next.UpdatedAt = now
		return next, 0, nil
	}

	elapsed := 0
	if next.IsTimerRunning {
		elapsed = stopTimer(&next, now)
	}
	next.Status = StatusCompleted
	next.UpdatedAt = now
	return next, elapsed, nil
}

// LiveActualTime returns ActualTime plus the whole minutes of a running
// timer, without changing the task.
func LiveActualTime(t Task, now time.Time) int {
	if !t.IsTimerRunning || t.TimeStarted == nil {
		return t.ActualTime
	}
	return t.ActualTime + ElapsedMinutes(*t.TimeStarted, now)
}

// ElapsedMinutes returns the whole minutes between start and end, never negative.
func ElapsedMinutes(start, end time.Time) int {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}

// CheckInvariants verifies the rules every stored task must satisfy.
func CheckInvariants(t Task) error {
	switch {
	case !t.Status.IsValid():
		return fmt.Errorf("%w: unknown status", ErrInvalidState)
	case t.IsTimerRunning && t.Status != StatusInProgress:
		return fmt.Errorf("%w: timer running while status is %s", ErrInvalidState, t.Status)
	case t.IsTimerRunning && t.TimeStarted == nil:
		return fmt.Errorf("%w: timer running without a start time", ErrInvalidState)
	case t.ActualTime < 0 || t.EstimatedTime < 0:
		return fmt.Errorf("%w: negative time", ErrInvalidState)
	}
	return nil
}

func stopTimer(t *Task, now time.Time) int {
	elapsed := 0
	if t.TimeStarted != nil {
		elapsed = ElapsedMinutes(*t.TimeStarted, now)
	}
	t.ActualTime += elapsed
	t.IsTimerRunning = false
	t.TimeStopped = &now
	return elapsed
}

func validateTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", fmt.Errorf("%w: task title is required", ErrValidation)
	}
	if utf8.RuneCountInString(trimmed) < MinTitleLength {
		return "", fmt.Errorf("%w: task title must be at least %d characters", ErrValidation, MinTitleLength)
	}
	return trimmed, nil
}

// validateDueDate compares calendar days in now's location: today is allowed.
func validateDueDate(due, now time.Time) error {
	if startOfDay(due.In(now.Location())).Before(startOfDay(now)) {
		return fmt.Errorf("%w: due date cannot be in the past", ErrValidation)
	}
	return nil
}

func validateEstimate(minutes int) error {
	if minutes < 0 {
		return fmt.Errorf("%w: estimated time cannot be negative", ErrValidation)
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
