package analytics

import (
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/tasktrack/core/task"
)

var eat = time.FixedZone("EAT", 3*60*60)

func date(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, eat)
}

func done(id string, at time.Time) task.Task {
	return task.Task{ID: id, UserID: "u1", DueDate: task.StartOfDay(at), Completed: true, CompletedAt: at, CreatedAt: at}
}

func pending(id string, due time.Time) task.Task {
	return task.Task{ID: id, UserID: "u1", DueDate: task.StartOfDay(due), CreatedAt: due.AddDate(0, 0, -3)}
}

func TestLevelOf(t *testing.T) {
	counts := []int{0, 1, 2, 3, 4, 5, 6, 10}
	want := []Level{Level0, Level1, Level2, Level2, Level3, Level3, Level4, Level4}
	for i, c := range counts {
		t.Run(strconv.Itoa(c), func(t *testing.T) {
			assert.Equal(t, want[i], LevelOf(c))
		})
	}
}

func TestCeiling(t *testing.T) {
	tests := []struct {
		name   string
		values []int
		want   int
	}{
		{name: "empty", want: 5},
		{name: "all zero", values: []int{0, 0, 0}, want: 5},
		{name: "below five", values: []int{1, 3, 2}, want: 5},
		{name: "exactly five", values: []int{5, 1}, want: 5},
		{name: "above five", values: []int{2, 9, 3}, want: 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Ceiling(tt.values))
		})
	}
}

func TestCompletionRate(t *testing.T) {
	tests := []struct {
		completed, total, want int
	}{
		{0, 0, 0},
		{0, 4, 0},
		{7, 10, 70},
		{1, 3, 33},
		{2, 3, 67},
		{5, 5, 100},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.completed)+"/"+strconv.Itoa(tt.total), func(t *testing.T) {
			assert.Equal(t, tt.want, CompletionRate(tt.completed, tt.total))
		})
	}
}

func TestAggregate(t *testing.T) {
	now := date(2026, time.October, 19, 10)

	t.Run("empty", func(t *testing.T) {
		res := Aggregate(nil, now)
		assert.Equal(t, 0, res.CompletionRate)
		assert.Equal(t, 0, res.Total)
		assert.Equal(t, 0, res.DayCount(now))
	})

	t.Run("counts", func(t *testing.T) {
		tasks := []task.Task{
			done("1", now.Add(-time.Hour)),
			done("2", now.AddDate(0, 0, -1)),
			pending("3", now.AddDate(0, 0, -2)),
			pending("4", now),
			pending("5", now.AddDate(0, 0, 1)),
		}
		res := Aggregate(tasks, now)
		assert.Equal(t, 5, res.Total)
		assert.Equal(t, 2, res.Completed)
		assert.Equal(t, 3, res.Pending())
		assert.Equal(t, 1, res.Overdue)
		assert.Equal(t, 1, res.DueToday)
		assert.Equal(t, 1, res.Upcoming)
		assert.Equal(t, 40, res.CompletionRate)
		assert.Equal(t, 1, res.DayCount(now))
		assert.Equal(t, 1, res.DayCount(now.AddDate(0, 0, -1)))
		assert.Equal(t, 2, res.MonthCount(now))
	})

	t.Run("completed without timestamp stays out of buckets", func(t *testing.T) {
		tk := done("1", now)
		tk.CompletedAt = time.Time{}
		res := Aggregate([]task.Task{tk}, now)
		assert.Equal(t, 1, res.Completed)
		assert.Equal(t, 0, res.DayCount(now))
		assert.Equal(t, 0, res.MonthCount(now))
	})

	t.Run("local calendar day", func(t *testing.T) {
		// 22:30 UTC on the 18th is 01:30 on the 19th in EAT
		at := time.Date(2026, time.October, 18, 22, 30, 0, 0, time.UTC)
		res := Aggregate([]task.Task{done("1", at)}, now)
		assert.Equal(t, 1, res.DayCount(date(2026, time.October, 19, 0)))
		assert.Equal(t, 0, res.DayCount(date(2026, time.October, 18, 12)))
	})
}

func TestAggregate_dayCountMatchesNaiveScan(t *testing.T) {
	now := date(2026, time.October, 19, 10)
	rnd := rand.New(rand.NewSource(42))

	var tasks []task.Task
	for i := 0; i < 300; i++ {
		at := now.Add(-time.Duration(rnd.Intn(90*24)) * time.Hour)
		tk := done(strconv.Itoa(i), at)
		switch rnd.Intn(4) {
		case 0:
			tk.Completed = false
			tk.CompletedAt = time.Time{}
		case 1:
			tk.CompletedAt = time.Time{}
		}
		tasks = append(tasks, tk)
	}

	res := Aggregate(tasks, now)
	for day := now.AddDate(0, 0, -95); !day.After(now); day = day.AddDate(0, 0, 1) {
		want := 0
		for _, tk := range tasks {
			if tk.Completed && task.ValidInstant(tk.CompletedAt) && SameDay(tk.CompletedAt, day) {
				want++
			}
		}
		assert.Equal(t, want, res.DayCount(day), day.Format("2006-01-02"))
	}
}

func TestResult_Streaks(t *testing.T) {
	now := date(2026, time.October, 19, 10)
	day := func(offset int) time.Time { return now.AddDate(0, 0, offset) }

	tests := []struct {
		name  string
		tasks []task.Task
		want  Streaks
	}{
		{name: "none", want: Streaks{}},
		{
			name:  "ending today",
			tasks: []task.Task{done("1", day(0)), done("2", day(-1)), done("3", day(-2)), done("4", day(-5))},
			want:  Streaks{Current: 3, Longest: 3, ActiveDays: 4},
		},
		{
			name:  "ending yesterday",
			tasks: []task.Task{done("1", day(-1)), done("2", day(-2)), done("2b", day(-2))},
			want:  Streaks{Current: 2, Longest: 2, ActiveDays: 2},
		},
		{
			name: "broken",
			tasks: []task.Task{
				done("1", day(-3)),
				done("2", day(-10)), done("3", day(-11)), done("4", day(-12)), done("5", day(-13)),
			},
			want: Streaks{Current: 0, Longest: 4, ActiveDays: 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Aggregate(tt.tasks, now).Streaks())
		})
	}
}
