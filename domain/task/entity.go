package task

import "time"

// Status represents the state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// IsValid reports whether s is one of the fixed task statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task is the core domain entity tracked per owner.
//
// EstimatedTime and ActualTime are whole minutes. TimeStarted and TimeStopped
// mark the current or most recent timer interval.
type Task struct {
	ID             string     `gorm:"primaryKey;type:text" json:"id"`
	Owner          string     `gorm:"index;not null;type:text" json:"owner"`
	Title          string     `gorm:"not null;type:text" json:"title"`
	Description    string     `gorm:"type:text" json:"description"`
	Status         Status     `gorm:"index;not null;type:text" json:"status"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	EstimatedTime  int        `gorm:"not null" json:"estimated_time"`
	ActualTime     int        `gorm:"not null" json:"actual_time"`
	TimeStarted    *time.Time `json:"time_started,omitempty"`
	TimeStopped    *time.Time `json:"time_stopped,omitempty"`
	IsTimerRunning bool       `gorm:"not null" json:"is_timer_running"`
	Version        int        `gorm:"not null" json:"version"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName returns the table name for the Task entity.
func (Task) TableName() string {
	return "tasks"
}

// Clone returns a deep copy of t so lifecycle operations never alias the caller's task.
func (t Task) Clone() Task {
	c := t
	c.DueDate = cloneTime(t.DueDate)
	c.TimeStarted = cloneTime(t.TimeStarted)
	c.TimeStopped = cloneTime(t.TimeStopped)
	return c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
