package task

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Filter selects tasks by status.
type Filter string

const (
	FilterAll        Filter = "all"
	FilterPending    Filter = "pending"
	FilterInProgress Filter = "in-progress"
	FilterCompleted  Filter = "completed"
)

// SortBy orders a task view.
type SortBy string

const (
	SortNewest  SortBy = "newest"
	SortOldest  SortBy = "oldest"
	SortDueDate SortBy = "dueDate"
	SortTitle   SortBy = "title"
)

// ParseFilter validates a filter value. An empty value means all.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(s); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterPending, FilterInProgress, FilterCompleted:
		return f, nil
	}
	return "", fmt.Errorf("%w: filter must be one of all, pending, in-progress, completed", ErrValidation)
}

// ParseSortBy validates a sort value. An empty value means newest.
func ParseSortBy(s string) (SortBy, error) {
	switch o := SortBy(s); o {
	case "":
		return SortNewest, nil
	case SortNewest, SortOldest, SortDueDate, SortTitle:
		return o, nil
	}
	return "", fmt.Errorf("%w: sortBy must be one of newest, oldest, dueDate, title", ErrValidation)
}

// Query describes the view a caller wants of their tasks.
type Query struct {
	Filter Filter
	SortBy SortBy
	Search string
}

// Stats summarises an owner's full task set.
type Stats struct {
	Total              int `json:"total"`
	Pending            int `json:"pending"`
	InProgress         int `json:"in_progress"`
	Completed          int `json:"completed"`
	TotalEstimatedTime int `json:"total_estimated_time"`
	TotalActualTime    int `json:"total_actual_time"`
}

// View is the ordered, filtered task list plus statistics.
type View struct {
	Tasks []Task `json:"tasks"`
	Stats Stats  `json:"stats"`
}

// Apply filters by status, then by search term, then sorts, in that order.
// Stats cover every task passed in, and running timers contribute their live
// elapsed minutes as of now. The input slice is not reordered.
func Apply(tasks []Task, q Query, now time.Time) View {
	filtered := make([]Task, 0, len(tasks))
	search := strings.ToLower(q.Search)
	for _, t := range tasks {
		if q.Filter != "" && q.Filter != FilterAll && string(t.Status) != string(q.Filter) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Title), search) {
			continue
		}
		filtered = append(filtered, t)
	}

	sortTasks(filtered, q.SortBy)

	return View{
		Tasks: filtered,
		Stats: ComputeStats(tasks, now),
	}
}

// ComputeStats counts tasks per status and sums their times.
func ComputeStats(tasks []Task, now time.Time) Stats {
	s := Stats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case StatusPending:
			s.Pending++
		case StatusInProgress:
			s.InProgress++
		case StatusCompleted:
			s.Completed++
		}
		s.TotalEstimatedTime += t.EstimatedTime
		s.TotalActualTime += LiveActualTime(t, now)
	}
	return s
}

func sortTasks(tasks []Task, by SortBy) {
	switch by {
	case SortOldest:
		slices.SortStableFunc(tasks, func(a, b Task) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		})
	case SortDueDate:
		slices.SortStableFunc(tasks, compareDueDate)
	case SortTitle:
		// Collators are not safe for concurrent use.
		c := collate.New(language.English, collate.Loose)
		slices.SortStableFunc(tasks, func(a, b Task) int {
			if r := c.CompareString(a.Title, b.Title); r != 0 {
				return r
			}
			return cmp.Compare(a.Title, b.Title)
		})
	default:
		slices.SortStableFunc(tasks, func(a, b Task) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	}
}

// compareDueDate puts dated tasks first in ascending order; undated tasks keep
// their relative order after them.
func compareDueDate(a, b Task) int {
	switch {
	case a.DueDate == nil && b.DueDate == nil:
		return 0
	case a.DueDate == nil:
		return 1
	case b.DueDate == nil:
		return -1
	}
	return a.DueDate.Compare(*b.DueDate)
}
