package analytics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/trezcool/tasktrack/core/task"
)

const (
	dayKeyLayout   = "2006-01-02"
	monthKeyLayout = "2006-01"
)

// Bucket is a calendar interval [Start, End).
type Bucket struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Key     string    `json:"key"` // YYYY-MM-DD or YYYY-MM
	Label   string    `json:"label"`
	Weekday int       `json:"weekday"` // 0=Sunday..6=Saturday
	Slot    int       `json:"slot"`    // column relative to the start of week
}

// AnchorPolicy decides where the rolling 12-month window starts.
type AnchorPolicy string

const (
	// AnchorCurrentMonth starts at the current month, then goes back 11 months.
	AnchorCurrentMonth AnchorPolicy = "current"
	// AnchorDecember starts at the most recent December not after now, then goes forward to November.
	AnchorDecember AnchorPolicy = "december"
)

func ParseAnchorPolicy(s string) (AnchorPolicy, error) {
	switch p := AnchorPolicy(s); p {
	case AnchorCurrentMonth, AnchorDecember:
		return p, nil
	}
	return "", fmt.Errorf("analytics: unknown month anchor %q (want %q or %q)", s, AnchorCurrentMonth, AnchorDecember)
}

func DayKey(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(dayKeyLayout)
}

func MonthKey(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(monthKeyLayout)
}

func StartOfDay(t time.Time) time.Time { return task.StartOfDay(t) }

func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day in b's location.
func SameDay(a, b time.Time) bool { return task.CompareDays(a, b) == 0 }

func slot(wd, weekStart time.Weekday) int {
	return (int(wd) - int(weekStart) + 7) % 7
}

func dayBucket(day time.Time, weekStart time.Weekday, label string) Bucket {
	start := StartOfDay(day)
	return Bucket{
		Start:   start,
		End:     start.AddDate(0, 0, 1),
		Key:     start.Format(dayKeyLayout),
		Label:   label,
		Weekday: int(start.Weekday()),
		Slot:    slot(start.Weekday(), weekStart),
	}
}

func monthBucket(month time.Time) Bucket {
	start := StartOfMonth(month)
	return Bucket{
		Start:   start,
		End:     start.AddDate(0, 1, 0),
		Key:     start.Format(monthKeyLayout),
		Label:   start.Format("Jan 2006"),
		Weekday: int(start.Weekday()),
	}
}

// MonthWindow returns the 12 month buckets of the rolling window selected by policy.
// policy comes from ParseAnchorPolicy: any other value yields no buckets.
func MonthWindow(now time.Time, policy AnchorPolicy) []Bucket {
	var first time.Time
	step := 1
	switch policy {
	case AnchorCurrentMonth:
		first, step = StartOfMonth(now), -1
	case AnchorDecember:
		year := now.Year()
		if now.Month() != time.December {
			year--
		}
		first = time.Date(year, time.December, 1, 0, 0, 0, 0, now.Location())
	default:
		return nil
	}

	buckets := make([]Bucket, 12)
	for i := range buckets {
		buckets[i] = monthBucket(first.AddDate(0, i*step, 0))
	}
	return buckets
}

// WeekWindow returns the 7 day buckets of the week containing now.
func WeekWindow(now time.Time, weekStart time.Weekday) []Bucket {
	first := StartOfDay(now).AddDate(0, 0, -slot(now.Weekday(), weekStart))
	buckets := make([]Bucket, 7)
	for i := range buckets {
		day := first.AddDate(0, 0, i)
		buckets[i] = dayBucket(day, weekStart, day.Weekday().String()[:3])
	}
	return buckets
}

// MonthDays returns one bucket per day of now's month.
func MonthDays(now time.Time, weekStart time.Weekday) []Bucket {
	first := StartOfMonth(now)
	next := first.AddDate(0, 1, 0)
	var buckets []Bucket
	for day := first; day.Before(next); day = day.AddDate(0, 0, 1) {
		buckets = append(buckets, dayBucket(day, weekStart, strconv.Itoa(day.Day())))
	}
	return buckets
}

// Grid lays the days of a month out under weekday headers.
type Grid struct {
	Month         Bucket   `json:"month"`
	LeadingBlanks int      `json:"leading_blanks"`
	Days          []Bucket `json:"days"`
}

func MonthGrid(month time.Time, weekStart time.Weekday) Grid {
	days := MonthDays(month, weekStart)
	return Grid{
		Month:         monthBucket(month),
		LeadingBlanks: days[0].Slot,
		Days:          days,
	}
}

// YearGrid returns the grids of the 12 months of MonthWindow, in the same order.
func YearGrid(now time.Time, policy AnchorPolicy, weekStart time.Weekday) []Grid {
	months := MonthWindow(now, policy)
	grids := make([]Grid, len(months))
	for i, m := range months {
		grids[i] = MonthGrid(m.Start, weekStart)
	}
	return grids
}

// WeekdayHeaders returns the short weekday names starting at weekStart.
func WeekdayHeaders(weekStart time.Weekday) []string {
	headers := make([]string, 7)
	for i := range headers {
		headers[i] = time.Weekday((int(weekStart) + i) % 7).String()[:3]
	}
	return headers
}
