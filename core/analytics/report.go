package analytics

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/tasktrack/core/task"
	"github.com/trezcool/tasktrack/core/user"
)

const ReportContentType = "text/csv; charset=utf-8"

// ReportFilter selects the students of a report. It never filters tasks.
type ReportFilter string

const (
	ReportAll     ReportFilter = "all"
	ReportActive  ReportFilter = "active"  // password already changed
	ReportPending ReportFilter = "pending" // password change pending
)

var ReportHeader = []string{
	"id", "name", "email", "role", "joinedDate",
	"total", "completed", "pending", "overdue", "completionRatePercent",
}

func ParseReportFilter(s string) (ReportFilter, error) {
	switch f := ReportFilter(s); f {
	case "", "full", ReportAll:
		return ReportAll, nil
	case ReportActive, ReportPending:
		return f, nil
	}
	return "", fmt.Errorf("unknown report filter %q", s)
}

// FileTag is the name of the filter in report filenames.
func (f ReportFilter) FileTag() string {
	if f == ReportAll || f == "" {
		return "full"
	}
	return string(f)
}

func (f ReportFilter) Includes(p user.Profile) bool {
	if !p.IsStudent() {
		return false
	}
	switch f {
	case ReportActive:
		return !p.RequiresPasswordChange
	case ReportPending:
		return p.RequiresPasswordChange
	}
	return true
}

// ReportFilename returns student_report_<full|active|pending>_<yyyy-MM-dd>.csv.
func ReportFilename(f ReportFilter, now time.Time) string {
	return fmt.Sprintf("student_report_%s_%s.csv", f.FileTag(), now.Format(dayKeyLayout))
}

type ReportRow struct {
	Student user.Profile
	Rollup  Rollup
}

func (row ReportRow) Record(loc *time.Location) []string {
	joined := ""
	if task.ValidInstant(row.Student.CreatedAt) {
		joined = DayKey(row.Student.CreatedAt, loc)
	}
	return []string{
		row.Student.PublicID(),
		row.Student.DisplayName,
		row.Student.Email,
		string(row.Student.Role),
		joined,
		strconv.Itoa(row.Rollup.TotalTasks),
		strconv.Itoa(row.Rollup.CompletedTasks),
		strconv.Itoa(row.Rollup.PendingTasks),
		strconv.Itoa(row.Rollup.OverdueTasks),
		strconv.Itoa(row.Rollup.CompletionRate),
	}
}

// StudentReport returns one row per student kept by f, in the order of profiles.
func StudentReport(profiles []user.Profile, tasks []task.Task, f ReportFilter, now time.Time) []ReportRow {
	rollups := RollupsByStudent(tasks, now)
	var rows []ReportRow
	for _, p := range profiles {
		if !f.Includes(p) {
			continue
		}
		r := rollups[p.UID]
		r.finish()
		rows = append(rows, ReportRow{Student: p, Rollup: r})
	}
	return rows
}

// WriteStudentReport writes the CSV report to w and returns the number of student rows.
func WriteStudentReport(w io.Writer, profiles []user.Profile, tasks []task.Task, f ReportFilter, now time.Time) (int, error) {
	rows := StudentReport(profiles, tasks, f, now)

	cw := csv.NewWriter(w)
	if err := cw.Write(ReportHeader); err != nil {
		return 0, errors.Wrap(err, "writing report header")
	}
	for _, row := range rows {
		if err := cw.Write(row.Record(now.Location())); err != nil {
			return 0, errors.Wrap(err, "writing report row")
		}
	}
	cw.Flush()
	return len(rows), errors.Wrap(cw.Error(), "flushing report")
}
