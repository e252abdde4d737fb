package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/trezcool/tasktrack/core/task"
)

// MinCeiling is the smallest vertical scale of a line series.
const MinCeiling = 5

// Result is the aggregate of a task collection at an instant.
// Completions are bucketed by the calendar day of CompletedAt in Now's location.
type Result struct {
	Now            time.Time
	Total          int
	Completed      int
	Overdue        int
	DueToday       int
	Upcoming       int
	CompletionRate int

	days   map[string]int
	months map[string]int
}

// Aggregate folds tasks in a single pass. Completed tasks without a valid CompletedAt are counted
// as completed but stay out of the day and month buckets.
func Aggregate(tasks []task.Task, now time.Time) Result {
	res := Result{
		Now:    now,
		Total:  len(tasks),
		days:   make(map[string]int),
		months: make(map[string]int),
	}
	loc := now.Location()

	for _, t := range tasks {
		switch task.Classify(t, now) {
		case task.StatusCompleted:
			res.Completed++
			if task.ValidInstant(t.CompletedAt) {
				at := t.CompletedAt.In(loc)
				res.days[at.Format(dayKeyLayout)]++
				res.months[at.Format(monthKeyLayout)]++
			}
		case task.StatusOverdue:
			res.Overdue++
		case task.StatusDueToday:
			res.DueToday++
		default:
			res.Upcoming++
		}
	}
	res.CompletionRate = CompletionRate(res.Completed, res.Total)
	return res
}

// DayCount returns the completions on day's calendar day.
func (r Result) DayCount(day time.Time) int {
	return r.days[DayKey(day, r.Now.Location())]
}

// MonthCount returns the completions in month's calendar month.
func (r Result) MonthCount(month time.Time) int {
	return r.months[MonthKey(month, r.Now.Location())]
}

func (r Result) count(b Bucket) int {
	if len(b.Key) == len(monthKeyLayout) {
		return r.months[b.Key]
	}
	return r.days[b.Key]
}

// Pending counts the tasks not completed yet, overdue ones included.
func (r Result) Pending() int { return r.Total - r.Completed }

// CompletionRate returns round(100*completed/total), 0 when total is 0.
func CompletionRate(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// Level is a step of the consistency color scale.
type Level int

const (
	Level0 Level = iota
	Level1
	Level2
	Level3
	Level4
)

// LevelOf maps a day's completion count to its Level: 0, 1, 2-3, 4-5, 6+.
func LevelOf(count int) Level {
	switch {
	case count <= 0:
		return Level0
	case count == 1:
		return Level1
	case count <= 3:
		return Level2
	case count <= 5:
		return Level3
	}
	return Level4
}

// Ceiling returns the vertical scale of a series: its maximum, but never less than MinCeiling.
func Ceiling(values []int) int {
	ceil := MinCeiling
	for _, v := range values {
		if v > ceil {
			ceil = v
		}
	}
	return ceil
}

type Streaks struct {
	Current    int `json:"current"`
	Longest    int `json:"longest"`
	ActiveDays int `json:"active_days"`
}

// Streaks counts runs of consecutive days with at least one completion.
// The current streak ends today, or yesterday while nothing has been completed today.
func (r Result) Streaks() Streaks {
	st := Streaks{ActiveDays: len(r.days)}
	if st.ActiveDays == 0 {
		return st
	}

	keys := make([]string, 0, len(r.days))
	for k := range r.days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	run := 0
	var prev time.Time
	for i, k := range keys {
		day, err := time.Parse(dayKeyLayout, k)
		if err != nil {
			continue
		}
		if i > 0 && prev.AddDate(0, 0, 1).Equal(day) {
			run++
		} else {
			run = 1
		}
		if run > st.Longest {
			st.Longest = run
		}
		prev = day
	}

	day := StartOfDay(r.Now)
	if r.days[day.Format(dayKeyLayout)] == 0 {
		day = day.AddDate(0, 0, -1)
	}
	for r.days[day.Format(dayKeyLayout)] > 0 {
		st.Current++
		day = day.AddDate(0, 0, -1)
	}
	return st
}
