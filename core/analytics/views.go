package analytics

import (
	"sort"
	"time"

	"github.com/trezcool/tasktrack/core/task"
)

// Cell is a contribution grid cell.
type Cell struct {
	Bucket
	Count int   `json:"count"`
	Level Level `json:"level"`
}

type HeatmapMonth struct {
	Month         Bucket `json:"month"`
	LeadingBlanks int    `json:"leading_blanks"`
	Cells         []Cell `json:"cells"`
}

func (r Result) Cells(g Grid) HeatmapMonth {
	hm := HeatmapMonth{Month: g.Month, LeadingBlanks: g.LeadingBlanks, Cells: make([]Cell, len(g.Days))}
	for i, d := range g.Days {
		n := r.days[d.Key]
		hm.Cells[i] = Cell{Bucket: d, Count: n, Level: LevelOf(n)}
	}
	return hm
}

// Heatmap returns the contribution grid of the 12 months of the window.
func (r Result) Heatmap(policy AnchorPolicy, weekStart time.Weekday) []HeatmapMonth {
	grids := YearGrid(r.Now, policy, weekStart)
	out := make([]HeatmapMonth, len(grids))
	for i, g := range grids {
		out[i] = r.Cells(g)
	}
	return out
}

type Point struct {
	Label string  `json:"label"`
	Key   string  `json:"key"`
	Value int     `json:"value"`
	Ratio float64 `json:"ratio"` // Value / Ceiling
}

type LineSeries struct {
	Points  []Point `json:"points"`
	Ceiling int     `json:"ceiling"`
}

// Series counts the completions of each bucket and normalizes them by the series Ceiling.
func (r Result) Series(buckets []Bucket) LineSeries {
	values := make([]int, len(buckets))
	for i, b := range buckets {
		values[i] = r.count(b)
	}

	ls := LineSeries{Points: make([]Point, len(buckets)), Ceiling: Ceiling(values)}
	for i, b := range buckets {
		ls.Points[i] = Point{
			Label: b.Label,
			Key:   b.Key,
			Value: values[i],
			Ratio: float64(values[i]) / float64(ls.Ceiling),
		}
	}
	return ls
}

func (r Result) WeekSeries(weekStart time.Weekday) LineSeries {
	return r.Series(WeekWindow(r.Now, weekStart))
}

func (r Result) MonthSeries(weekStart time.Weekday) LineSeries {
	return r.Series(MonthDays(r.Now, weekStart))
}

func (r Result) YearSeries(policy AnchorPolicy) LineSeries {
	return r.Series(MonthWindow(r.Now, policy))
}

func sorted(tasks []task.Task, less func(a, b task.Task) bool) []task.Task {
	out := make([]task.Task, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// ActiveTasks returns the tasks not completed yet, oldest first.
func ActiveTasks(tasks []task.Task) []task.Task {
	var active []task.Task
	for _, t := range tasks {
		if !t.Completed {
			active = append(active, t)
		}
	}
	return SortOldestFirst(active)
}

// SortNewestFirst orders by creation, newest first. The input is left untouched.
func SortNewestFirst(tasks []task.Task) []task.Task {
	return sorted(tasks, func(a, b task.Task) bool { return a.CreatedAt.After(b.CreatedAt) })
}

// SortOldestFirst orders by creation, oldest first. The input is left untouched.
func SortOldestFirst(tasks []task.Task) []task.Task {
	return sorted(tasks, func(a, b task.Task) bool { return a.CreatedAt.Before(b.CreatedAt) })
}

// SortHistory puts incomplete tasks before completed ones.
// Incomplete tasks go by ascending due date (missing due dates last),
// completed ones by descending completion time. Ties keep their input order.
func SortHistory(tasks []task.Task) []task.Task {
	return sorted(tasks, func(a, b task.Task) bool {
		if a.Completed != b.Completed {
			return !a.Completed
		}
		if a.Completed {
			return a.CompletedAt.After(b.CompletedAt)
		}
		av, bv := task.ValidInstant(a.DueDate), task.ValidInstant(b.DueDate)
		if av != bv {
			return av
		}
		return a.DueDate.Before(b.DueDate)
	})
}
