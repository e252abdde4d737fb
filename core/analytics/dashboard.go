package analytics

import (
	"time"

	"github.com/trezcool/tasktrack/core/task"
	"github.com/trezcool/tasktrack/core/user"
)

// Options are the calendar settings of the dashboards.
type Options struct {
	Anchor    AnchorPolicy
	WeekStart time.Weekday
}

type StudentDashboard struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Rollup      Rollup              `json:"rollup"`
	Counts      map[task.Status]int `json:"counts"`
	Streaks     Streaks             `json:"streaks"`
	Week        LineSeries          `json:"week"`
	Month       LineSeries          `json:"month"`
	Year        LineSeries          `json:"year"`
	Heatmap     []HeatmapMonth      `json:"heatmap"`
	Headers     []string            `json:"weekday_headers"`
	Active      []task.Task         `json:"active"`
}

// BuildStudentDashboard computes every view of a student's own tasks.
func BuildStudentDashboard(tasks []task.Task, now time.Time, opts Options) StudentDashboard {
	res := Aggregate(tasks, now)

	return StudentDashboard{
		GeneratedAt: now,
		Rollup:      SystemRollup(tasks, now),
		Counts: map[task.Status]int{
			task.StatusUpcoming:  res.Upcoming,
			task.StatusDueToday:  res.DueToday,
			task.StatusOverdue:   res.Overdue,
			task.StatusCompleted: res.Completed,
		},
		Streaks: res.Streaks(),
		Week:    res.WeekSeries(opts.WeekStart),
		Month:   res.MonthSeries(opts.WeekStart),
		Year:    res.YearSeries(opts.Anchor),
		Heatmap: res.Heatmap(opts.Anchor, opts.WeekStart),
		Headers: WeekdayHeaders(opts.WeekStart),
		Active:  ActiveTasks(tasks),
	}
}

type StudentSummary struct {
	Student user.Profile `json:"student"`
	Rollup  Rollup       `json:"rollup"`
}

type AdminOverview struct {
	GeneratedAt           time.Time        `json:"generated_at"`
	System                Rollup           `json:"system"`
	TotalStudents         int              `json:"total_students"`
	PendingPasswordChange int              `json:"pending_password_change"`
	AssessmentsCompleted  int              `json:"assessments_completed"`
	Week                  LineSeries       `json:"week"`
	Year                  LineSeries       `json:"year"`
	Students              []StudentSummary `json:"students"`
}

// BuildAdminOverview computes the system wide views and the rollup of every student.
func BuildAdminOverview(profiles []user.Profile, tasks []task.Task, now time.Time, opts Options) AdminOverview {
	res := Aggregate(tasks, now)
	ov := AdminOverview{
		GeneratedAt: now,
		System:      SystemRollup(tasks, now),
		Week:        res.WeekSeries(opts.WeekStart),
		Year:        res.YearSeries(opts.Anchor),
	}

	for _, row := range StudentReport(profiles, tasks, ReportAll, now) {
		ov.TotalStudents++
		if row.Student.RequiresPasswordChange {
			ov.PendingPasswordChange++
		}
		if row.Student.AssessmentCompleted {
			ov.AssessmentsCompleted++
		}
		ov.Students = append(ov.Students, StudentSummary{Student: row.Student, Rollup: row.Rollup})
	}
	return ov
}
