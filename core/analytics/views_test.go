package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tasktrack/core/task"
)

func ids(tasks []task.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestResult_Series(t *testing.T) {
	now := date(2026, time.October, 19, 10)

	t.Run("ceiling floor", func(t *testing.T) {
		tasks := []task.Task{done("1", now), done("2", now), done("3", now.AddDate(0, 0, -1))}
		ls := Aggregate(tasks, now).WeekSeries(time.Sunday)
		require.Len(t, ls.Points, 7)
		assert.Equal(t, 5, ls.Ceiling)
		assert.Equal(t, 1, ls.Points[0].Value) // Sun 18th
		assert.Equal(t, 2, ls.Points[1].Value) // Mon 19th
		assert.InDelta(t, 0.4, ls.Points[1].Ratio, 1e-9)
	})

	t.Run("ceiling above five", func(t *testing.T) {
		var tasks []task.Task
		for i := 0; i < 8; i++ {
			tasks = append(tasks, done(string(rune('a'+i)), now))
		}
		ls := Aggregate(tasks, now).MonthSeries(time.Sunday)
		require.Len(t, ls.Points, 31)
		assert.Equal(t, 8, ls.Ceiling)
		assert.InDelta(t, 1.0, ls.Points[18].Ratio, 1e-9)
	})

	t.Run("months", func(t *testing.T) {
		tasks := []task.Task{done("1", now), done("2", date(2026, time.January, 3, 9))}
		ls := Aggregate(tasks, now).YearSeries(AnchorDecember)
		require.Len(t, ls.Points, 12)
		assert.Equal(t, "2026-01", ls.Points[1].Key)
		assert.Equal(t, 1, ls.Points[1].Value)
		assert.Equal(t, 1, ls.Points[10].Value)
		assert.Equal(t, 5, ls.Ceiling)
	})
}

func TestResult_Heatmap(t *testing.T) {
	now := date(2026, time.October, 19, 10)
	var tasks []task.Task
	for i := 0; i < 4; i++ {
		tasks = append(tasks, done(string(rune('a'+i)), now))
	}
	hm := Aggregate(tasks, now).Heatmap(AnchorCurrentMonth, time.Sunday)
	require.Len(t, hm, 12)

	oct := hm[0]
	assert.Equal(t, "2026-10", oct.Month.Key)
	assert.Equal(t, 4, oct.LeadingBlanks)
	assert.Equal(t, 4, oct.Cells[18].Count)
	assert.Equal(t, Level3, oct.Cells[18].Level)
	assert.Equal(t, Level0, oct.Cells[17].Level)
}

func TestSortPolicies(t *testing.T) {
	base := date(2026, time.October, 1, 8)
	tasks := []task.Task{
		{ID: "a", CreatedAt: base.Add(2 * time.Hour), DueDate: base.AddDate(0, 0, 5)},
		{ID: "b", CreatedAt: base, DueDate: base.AddDate(0, 0, 2), Completed: true, CompletedAt: base.AddDate(0, 0, 1)},
		{ID: "c", CreatedAt: base.Add(time.Hour), DueDate: base.AddDate(0, 0, 1)},
		{ID: "d", CreatedAt: base.Add(3 * time.Hour), DueDate: base.AddDate(0, 0, 3), Completed: true, CompletedAt: base.AddDate(0, 0, 4)},
		{ID: "e", CreatedAt: base.Add(4 * time.Hour)},
		{ID: "f", CreatedAt: base.Add(5 * time.Hour), DueDate: base.AddDate(0, 0, 1)},
	}
	orig := ids(tasks)

	assert.Equal(t, []string{"f", "e", "d", "a", "c", "b"}, ids(SortNewestFirst(tasks)))
	assert.Equal(t, []string{"b", "c", "a", "d", "e", "f"}, ids(SortOldestFirst(tasks)))
	assert.Equal(t, []string{"c", "a", "e", "f"}, ids(ActiveTasks(tasks)))
	// incomplete by due date (ties keep input order, no due date last), then completed by completion desc
	assert.Equal(t, []string{"c", "f", "a", "e", "d", "b"}, ids(SortHistory(tasks)))
	assert.Equal(t, orig, ids(tasks), "input must not be reordered")
}
