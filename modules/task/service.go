package task

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/example/task-tracker/domain/task"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// maxWriteAttempts bounds the re-read and re-apply loop taken when a write
// loses a race and the caller did not pin a version.
const maxWriteAttempts = 3

// Outcome is the result of a successful mutation.
type Outcome struct {
	Before  domain.Task
	After   domain.Task
	Elapsed int
}

// Service runs every task operation through the guard, the lifecycle engine
// and the store, in that order.
type Service struct {
	store     Store
	guard     *Guard
	lifecycle *domain.Lifecycle
	cache     ListCache
	sfGroup   singleflight.Group
	logger    types.Logger
}

// NewService creates a new Service. A nil cache disables list caching.
func NewService(store Store, guard *Guard, lifecycle *domain.Lifecycle, cache ListCache, logger types.Logger) *Service {
	return &Service{
		store:     store,
		guard:     guard,
		lifecycle: lifecycle,
		cache:     cache,
		logger:    logger,
	}
}

// Create stores a new pending task owned by the caller.
func (s *Service) Create(ctx context.Context, credential string, d domain.Draft) (*domain.Task, error) {
	owner, err := s.guard.Identify(ctx, credential)
	if err != nil {
		return nil, err
	}

	t, err := s.lifecycle.Create(owner, d)
	if err != nil {
		return nil, err
	}
	if err := s.store.Insert(ctx, &t); err != nil {
		return nil, err
	}
	s.invalidate(ctx, owner)
	return &t, nil
}

// Get returns one task of the caller.
func (s *Service) Get(ctx context.Context, credential, taskID string) (*domain.Task, error) {
	owner, err := s.guard.Identify(ctx, credential)
	if err != nil {
		return nil, err
	}
	if err := validateTaskID(taskID); err != nil {
		return nil, err
	}

	t, err := s.store.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(owner, t); err != nil {
		return nil, err
	}
	return t, nil
}

// List returns the caller's tasks filtered, searched and sorted per q, with
// statistics over all of the caller's tasks.
func (s *Service) List(ctx context.Context, credential string, q domain.Query) (domain.View, error) {
	scope, err := s.guard.ScopeQuery(ctx, credential)
	if err != nil {
		return domain.View{}, err
	}

	tasks, err := s.ownerTasks(ctx, scope.Owner)
	if err != nil {
		return domain.View{}, err
	}
	return domain.Apply(tasks, q, s.lifecycle.Now()), nil
}

// Unchanged reports whether the mutation left the stored task as it was.
func (o *Outcome) Unchanged() bool {
	return o.Before.Version == o.After.Version
}

// Update applies an allow-listed patch. A patch that names no editable field
// returns the caller's task as stored, without a write.
func (s *Service) Update(ctx context.Context, credential, taskID string, p domain.Patch, expectedVersion *int) (*Outcome, error) {
	if p.IsEmpty() {
		t, err := s.Get(ctx, credential, taskID)
		if err != nil {
			return nil, err
		}
		if expectedVersion != nil && *expectedVersion != t.Version {
			return nil, fmt.Errorf("%w: expected version %d, found %d", domain.ErrConflict, *expectedVersion, t.Version)
		}
		return &Outcome{Before: *t, After: *t}, nil
	}
	return s.mutate(ctx, credential, taskID, expectedVersion, func(t domain.Task) (domain.Task, int, error) {
		next, err := s.lifecycle.Edit(t, p)
		return next, 0, err
	})
}

// StartTimer starts the task's timer and moves it to in-progress.
func (s *Service) StartTimer(ctx context.Context, credential, taskID string, expectedVersion *int) (*Outcome, error) {
	return s.mutate(ctx, credential, taskID, expectedVersion, func(t domain.Task) (domain.Task, int, error) {
		next, err := s.lifecycle.StartTimer(t)
		return next, 0, err
	})
}

// StopTimer stops the running timer and adds the elapsed minutes.
func (s *Service) StopTimer(ctx context.Context, credential, taskID string, expectedVersion *int) (*Outcome, error) {
	return s.mutate(ctx, credential, taskID, expectedVersion, s.lifecycle.StopTimer)
}

// ToggleComplete completes or reopens the task.
func (s *Service) ToggleComplete(ctx context.Context, credential, taskID string, expectedVersion *int) (*Outcome, error) {
	return s.mutate(ctx, credential, taskID, expectedVersion, s.lifecycle.ToggleComplete)
}

// Delete permanently removes the task and returns it as it was.
func (s *Service) Delete(ctx context.Context, credential, taskID string) (*domain.Task, error) {
	t, err := s.Get(ctx, credential, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, t.ID); err != nil {
		return nil, err
	}
	s.invalidate(ctx, t.Owner)
	return t, nil
}

// mutate reads the task, checks ownership, applies op and writes the result
// conditioned on the version it read. Without an expected version a lost race
// is retried against the fresh row, so no timer interval is dropped.
func (s *Service) mutate(
	ctx context.Context,
	credential, taskID string,
	expectedVersion *int,
	op func(domain.Task) (domain.Task, int, error),
) (*Outcome, error) {
	owner, err := s.guard.Identify(ctx, credential)
	if err != nil {
		return nil, err
	}
	if err := validateTaskID(taskID); err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		current, err := s.store.FindByID(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if err := s.guard.Authorize(owner, current); err != nil {
			return nil, err
		}
		if expectedVersion != nil && *expectedVersion != current.Version {
			return nil, fmt.Errorf("%w: expected version %d, found %d", domain.ErrConflict, *expectedVersion, current.Version)
		}

		next, elapsed, err := op(*current)
		if err != nil {
			return nil, err
		}
		if err := domain.CheckInvariants(next); err != nil {
			return nil, err
		}
		next.Version = current.Version + 1

		err = s.store.Update(ctx, &next, current.Version)
		if err == nil {
			s.invalidate(ctx, owner)
			return &Outcome{Before: *current, After: next, Elapsed: elapsed}, nil
		}
		if !errors.Is(err, domain.ErrConflict) || expectedVersion != nil || attempt >= maxWriteAttempts {
			return nil, err
		}
		s.logger.Debug("Retrying task write after a concurrent update", "taskID", taskID, "attempt", attempt)
	}
}

// validateTaskID accepts only the canonical lowercase form ids are stored in.
func validateTaskID(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.String() != id {
		return fmt.Errorf("%w: invalid task id", domain.ErrValidation)
	}
	return nil
}
