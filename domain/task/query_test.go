package task

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func titles(tasks []Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return out
}

func TestApply_FilterThenSortByTitle(t *testing.T) {
	tasks := []Task{
		{Title: "B", Status: StatusCompleted},
		{Title: "A", Status: StatusCompleted},
		{Title: "C", Status: StatusPending},
	}

	view := Apply(tasks, Query{Filter: FilterCompleted, SortBy: SortTitle}, time.Now())

	assert.Equal(t, []string{"A", "B"}, titles(view.Tasks))
	assert.Equal(t, 3, view.Stats.Total, "stats cover the full set")
	assert.Equal(t, []string{"B", "A", "C"}, titles(tasks), "input order preserved")
}

func TestApply_Search(t *testing.T) {
	tasks := []Task{
		{Title: "Write REPORT", Status: StatusPending},
		{Title: "Review report draft", Status: StatusCompleted},
		{Title: "Buy milk", Status: StatusPending},
	}

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{name: "case insensitive", query: Query{Search: "report", SortBy: SortTitle}, want: []string{"Review report draft", "Write REPORT"}},
		{name: "search after status filter", query: Query{Filter: FilterPending, Search: "Report"}, want: []string{"Write REPORT"}},
		{name: "no match", query: Query{Search: "zzz"}, want: []string{}},
		{name: "empty search keeps all", query: Query{Filter: FilterAll, SortBy: SortTitle}, want: []string{"Buy milk", "Review report draft", "Write REPORT"}},
		{name: "whitespace is part of the term", query: Query{Search: "   "}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := Apply(tasks, tt.query, time.Now())
			assert.Equal(t, tt.want, titles(view.Tasks))
		})
	}
}

func TestApply_SearchKeepsTrailingSpace(t *testing.T) {
	tasks := []Task{{Title: "Task"}, {Title: "My Task list"}}

	view := Apply(tasks, Query{Search: "Task "}, time.Now())
	assert.Equal(t, []string{"My Task list"}, titles(view.Tasks))
}

func TestApply_SortByCreatedAt(t *testing.T) {
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	tasks := []Task{
		{Title: "middle", CreatedAt: base.Add(time.Hour)},
		{Title: "first", CreatedAt: base},
		{Title: "last", CreatedAt: base.Add(2 * time.Hour)},
	}

	newest := Apply(tasks, Query{SortBy: SortNewest}, base)
	assert.Equal(t, []string{"last", "middle", "first"}, titles(newest.Tasks))

	oldest := Apply(tasks, Query{SortBy: SortOldest}, base)
	assert.Equal(t, []string{"first", "middle", "last"}, titles(oldest.Tasks))

	defaulted := Apply(tasks, Query{}, base)
	assert.Equal(t, titles(newest.Tasks), titles(defaulted.Tasks))
}

func TestApply_SortByDueDateKeepsUndatedLast(t *testing.T) {
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	d1 := base.AddDate(0, 0, 1)
	d2 := base.AddDate(0, 0, 2)
	tasks := []Task{
		{Title: "undated-1"},
		{Title: "due-2", DueDate: &d2},
		{Title: "undated-2"},
		{Title: "due-1", DueDate: &d1},
	}

	view := Apply(tasks, Query{SortBy: SortDueDate}, base)
	assert.Equal(t, []string{"due-1", "due-2", "undated-1", "undated-2"}, titles(view.Tasks))
}

func TestApply_SortByTitleIsLocaleAware(t *testing.T) {
	tasks := []Task{
		{Title: "zebra"},
		{Title: "Éclair"},
		{Title: "apple"},
		{Title: "Banana"},
	}

	view := Apply(tasks, Query{SortBy: SortTitle}, time.Now())
	assert.Equal(t, []string{"apple", "Banana", "Éclair", "zebra"}, titles(view.Tasks))
}

func TestComputeStats_IncludesLiveTimer(t *testing.T) {
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	started := now.Add(-150 * time.Second)
	tasks := []Task{
		{Status: StatusPending, EstimatedTime: 30, ActualTime: 0},
		{Status: StatusInProgress, EstimatedTime: 60, ActualTime: 10, IsTimerRunning: true, TimeStarted: &started},
		{Status: StatusCompleted, EstimatedTime: 15, ActualTime: 20},
	}

	got := ComputeStats(tasks, now)
	assert.Equal(t, Stats{
		Total:              3,
		Pending:            1,
		InProgress:         1,
		Completed:          1,
		TotalEstimatedTime: 105,
		TotalActualTime:    32,
	}, got)
	assert.Equal(t, 10, tasks[1].ActualTime, "stats must not write to tasks")
}

func TestParseFilterAndSort(t *testing.T) {
	f, err := ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)

	f, err = ParseFilter("in-progress")
	require.NoError(t, err)
	assert.Equal(t, FilterInProgress, f)

	_, err = ParseFilter("archived")
	assert.ErrorIs(t, err, ErrValidation)

	s, err := ParseSortBy("")
	require.NoError(t, err)
	assert.Equal(t, SortNewest, s)

	s, err = ParseSortBy("dueDate")
	require.NoError(t, err)
	assert.Equal(t, SortDueDate, s)

	_, err = ParseSortBy("priority")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ParseFilter("authentication required")
	assert.ErrorIs(t, err, ErrValidation)
	assert.NotContains(t, err.Error(), "authentication required")
	assert.Equal(t, ErrValidation, KindOf(errors.New("list-tasks failed: "+err.Error())))
}
