// Package activity records task events into a per-owner feed and streams new
// entries to the owner's WebSocket connections.
package activity

import (
	"sync"
	"time"
)

// DefaultFeedSize is the number of entries kept per owner when none is configured.
const DefaultFeedSize = 50

// Kind names what happened to a task.
type Kind string

const (
	KindCreated      Kind = "task_created"
	KindUpdated      Kind = "task_updated"
	KindTimerStarted Kind = "timer_started"
	KindTimerStopped Kind = "timer_stopped"
	KindCompleted    Kind = "task_completed"
	KindReopened     Kind = "task_reopened"
	KindDeleted      Kind = "task_deleted"
)

// Entry is one line of an owner's activity feed.
type Entry struct {
	ID      string    `json:"id"`
	Owner   string    `json:"owner"`
	TaskID  string    `json:"task_id"`
	Title   string    `json:"title"`
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Feed keeps the newest entries per owner, bounded by size.
type Feed struct {
	mu      sync.RWMutex
	size    int
	newID   func() string
	entries map[string][]Entry
}

// NewFeed creates a Feed that keeps at most size entries per owner.
func NewFeed(size int, newID func() string) *Feed {
	if size <= 0 {
		size = DefaultFeedSize
	}
	return &Feed{
		size:    size,
		newID:   newID,
		entries: make(map[string][]Entry),
	}
}

// Record assigns e an id and prepends it to its owner's feed, dropping the
// oldest entry when the feed is full.
func (f *Feed) Record(e Entry) Entry {
	f.mu.Lock()
	defer f.mu.Unlock()

	e.ID = f.newID()
	list := f.entries[e.Owner]
	if len(list) >= f.size {
		list = list[:f.size-1]
	}
	next := make([]Entry, 0, len(list)+1)
	next = append(next, e)
	next = append(next, list...)
	f.entries[e.Owner] = next
	return e
}

// List returns up to limit of owner's entries, newest first. A limit of zero
// or less returns the whole feed.
func (f *Feed) List(owner string, limit int) []Entry {
	f.mu.RLock()
	defer f.mu.RUnlock()

	list := f.entries[owner]
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	out := make([]Entry, limit)
	copy(out, list[:limit])
	return out
}

// Owners returns the number of owners with at least one entry.
func (f *Feed) Owners() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}
