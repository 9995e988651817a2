package task

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/example/task-tracker/domain/task"
	"gorm.io/gorm"
)

// Store is the durable task store the service persists through.
type Store interface {
	Insert(ctx context.Context, t *domain.Task) error
	FindByOwner(ctx context.Context, owner string) ([]domain.Task, error)
	FindByID(ctx context.Context, id string) (*domain.Task, error)
	Update(ctx context.Context, t *domain.Task, expectedVersion int) error
	Delete(ctx context.Context, id string) error
}

// Repository is the GORM implementation of Store.
type Repository struct {
	db *gorm.DB
}

var _ Store = (*Repository)(nil)

// NewRepository creates a new Repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates or updates the tasks table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Task{})
}

// Insert stores a new task.
func (r *Repository) Insert(ctx context.Context, t *domain.Task) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("%w: insert task: %v", domain.ErrStore, err)
	}
	return nil
}

// FindByOwner returns every task of owner, newest first.
func (r *Repository) FindByOwner(ctx context.Context, owner string) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("created_at DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list tasks: %v", domain.ErrStore, err)
	}
	return tasks, nil
}

// FindByID returns the task with id or domain.ErrNotFound.
func (r *Repository) FindByID(ctx context.Context, id string) (*domain.Task, error) {
	var t domain.Task
	err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: find task: %v", domain.ErrStore, err)
	}
	return &t, nil
}

// Update writes the mutable fields of t if the stored version still equals
// expectedVersion. Owner, ID and CreatedAt are never written.
func (r *Repository) Update(ctx context.Context, t *domain.Task, expectedVersion int) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("id = ? AND version = ?", t.ID, expectedVersion).
		Updates(mutableColumns(t))
	if result.Error != nil {
		return fmt.Errorf("%w: update task: %v", domain.ErrStore, result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Task{}).Where("id = ?", t.ID).Count(&count).Error; err != nil {
		return fmt.Errorf("%w: update task: %v", domain.ErrStore, err)
	}
	if count == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

// Delete removes the task permanently.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Task{})
	if result.Error != nil {
		return fmt.Errorf("%w: delete task: %v", domain.ErrStore, result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// mutableColumns lists every column an update may write. Nil pointers are
// written as NULL so cleared fields stay cleared.
func mutableColumns(t *domain.Task) map[string]any {
	return map[string]any{
		"title":            t.Title,
		"description":      t.Description,
		"status":           t.Status,
		"due_date":         t.DueDate,
		"estimated_time":   t.EstimatedTime,
		"actual_time":      t.ActualTime,
		"time_started":     t.TimeStarted,
		"time_stopped":     t.TimeStopped,
		"is_timer_running": t.IsTimerRunning,
		"version":          t.Version,
		"updated_at":       t.UpdatedAt,
	}
}
