package task

import (
	"context"
	"slices"

	domain "github.com/example/task-tracker/domain/task"
)

// ListCache is the key-value cache owner task lists are kept in.
// cache.Cache satisfies it.
type ListCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

func ownerKey(owner string) string {
	return "owner:" + owner
}

// ownerTasks returns every task of owner, served from the cache when possible.
// Concurrent misses for one owner share a single store read. Cache failures
// fall through to the store.
func (s *Service) ownerTasks(ctx context.Context, owner string) ([]domain.Task, error) {
	if s.cache == nil {
		return s.store.FindByOwner(ctx, owner)
	}

	key := ownerKey(owner)
	var cached []domain.Task
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("Task list cache read failed", "owner", owner, "error", err)
	}
	if found {
		return cached, nil
	}

	val, err, _ := s.sfGroup.Do(key, func() (any, error) {
		// the flight outlives the caller that started it
		fctx := context.WithoutCancel(ctx)
		tasks, err := s.store.FindByOwner(fctx, owner)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(fctx, key, tasks); err != nil {
			s.logger.Warn("Task list cache write failed", "owner", owner, "error", err)
		}
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}

	// the slice is shared with every caller of the same flight
	return slices.Clone(val.([]domain.Task)), nil
}

func (s *Service) invalidate(ctx context.Context, owner string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, ownerKey(owner)); err != nil {
		s.logger.Warn("Task list cache invalidation failed", "owner", owner, "error", err)
	}
}
