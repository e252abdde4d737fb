package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	eat := time.FixedZone("EAT", 3*60*60)
	now := time.Date(2026, time.October, 19, 10, 0, 0, 0, eat)
	day := func(offset, hour int) time.Time {
		return time.Date(2026, time.October, 19+offset, hour, 0, 0, 0, eat)
	}

	tests := []struct {
		name string
		task Task
		want Status
	}{
		{name: "completed past", task: Task{DueDate: day(-3, 0), Completed: true}, want: StatusCompleted},
		{name: "completed future", task: Task{DueDate: day(3, 0), Completed: true}, want: StatusCompleted},
		{name: "completed no due date", task: Task{Completed: true}, want: StatusCompleted},
		{name: "yesterday", task: Task{DueDate: day(-1, 0)}, want: StatusOverdue},
		{name: "yesterday late", task: Task{DueDate: day(-1, 23)}, want: StatusOverdue},
		{name: "last year", task: Task{DueDate: day(-400, 12)}, want: StatusOverdue},
		{name: "today midnight", task: Task{DueDate: day(0, 0)}, want: StatusDueToday},
		{name: "today earlier", task: Task{DueDate: day(0, 8)}, want: StatusDueToday},
		{name: "today later", task: Task{DueDate: day(0, 23)}, want: StatusDueToday},
		{name: "tomorrow", task: Task{DueDate: day(1, 0)}, want: StatusUpcoming},
		{name: "no due date", task: Task{}, want: StatusUpcoming},
		{name: "out of range due date", task: Task{DueDate: time.Date(-5, time.January, 1, 0, 0, 0, 0, time.UTC)}, want: StatusUpcoming},
		// 22:00 UTC on the 18th is already the 19th in EAT
		{name: "local day, not UTC day", task: Task{DueDate: time.Date(2026, time.October, 18, 22, 0, 0, 0, time.UTC)}, want: StatusDueToday},
		{name: "local day, overdue", task: Task{DueDate: time.Date(2026, time.October, 18, 20, 0, 0, 0, time.UTC)}, want: StatusOverdue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.task, now))
		})
	}
}

func TestCountByStatus(t *testing.T) {
	now := time.Date(2026, time.October, 19, 10, 0, 0, 0, time.UTC)
	tasks := []Task{
		{DueDate: now.AddDate(0, 0, -1)},
		{DueDate: now},
		{DueDate: now.AddDate(0, 0, 1)},
		{DueDate: now.AddDate(0, 0, 2)},
		{DueDate: now, Completed: true, CompletedAt: now},
	}
	want := map[Status]int{StatusOverdue: 1, StatusDueToday: 1, StatusUpcoming: 2, StatusCompleted: 1}
	assert.Equal(t, want, CountByStatus(tasks, now))

	empty := CountByStatus(nil, now)
	assert.Len(t, empty, 4)
	assert.Equal(t, 0, empty[StatusOverdue])
}

func TestIsPastDay(t *testing.T) {
	now := time.Date(2026, time.October, 19, 0, 30, 0, 0, time.UTC)
	assert.True(t, IsPastDay(now.Add(-time.Hour), now))
	assert.False(t, IsPastDay(now.Add(10*time.Hour), now))
	assert.False(t, IsPastDay(time.Time{}, now))
}
