package task

import "time"

type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusDueToday  Status = "due_today"
	StatusOverdue   Status = "overdue"
	StatusCompleted Status = "completed"
)

// Classify assigns a Status to t relative to now.
// Calendar days are evaluated in now's location. A task without a valid due date is Upcoming.
func Classify(t Task, now time.Time) Status {
	if t.Completed {
		return StatusCompleted
	}
	if !ValidInstant(t.DueDate) {
		return StatusUpcoming
	}
	switch c := CompareDays(t.DueDate, now); {
	case c == 0:
		return StatusDueToday
	case c < 0:
		return StatusOverdue
	}
	return StatusUpcoming
}

// CountByStatus classifies every task and counts them per Status.
func CountByStatus(tasks []Task, now time.Time) map[Status]int {
	counts := map[Status]int{
		StatusUpcoming:  0,
		StatusDueToday:  0,
		StatusOverdue:   0,
		StatusCompleted: 0,
	}
	for _, t := range tasks {
		counts[Classify(t, now)]++
	}
	return counts
}

// ValidInstant reports whether t can be placed on a calendar.
func ValidInstant(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	y := t.Year()
	return y > 0 && y < 10000
}

// CompareDays compares the calendar days of a and b in b's location: -1 if a's day is before b's, 0 if same, +1 if after.
func CompareDays(a, b time.Time) int {
	ay, am, ad := a.In(b.Location()).Date()
	by, bm, bd := b.Date()
	switch {
	case ay != by:
		return sign(ay - by)
	case am != bm:
		return sign(int(am) - int(bm))
	}
	return sign(ad - bd)
}

// StartOfDay truncates t to midnight of its calendar day, in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// IsPastDay reports whether t's calendar day is strictly before now's.
func IsPastDay(t, now time.Time) bool {
	return ValidInstant(t) && CompareDays(t, now) < 0
}

func sign(i int) int {
	switch {
	case i < 0:
		return -1
	case i > 0:
		return 1
	}
	return 0
}
