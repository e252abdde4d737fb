package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/tasktrack/core"
	"github.com/trezcool/tasktrack/core/task"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field != "" {
			ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
		}
	}
}

func boolParam(ctx echo.Context, name string) bool {
	b, _ := strconv.ParseBool(ctx.QueryParam(name))
	return b
}

func intParam(ctx echo.Context, name string, def int) int {
	if i, err := strconv.Atoi(ctx.QueryParam(name)); err == nil && i > 0 {
		return i
	}
	return def
}

var dateLayouts = []string{"2006-01-02", time.RFC3339}

// parseDate reads a calendar date ("2006-01-02") in loc, or an RFC 3339 instant.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, core.NewValidationError(err, core.FieldError{Field: "due_date", Error: "invalid due date"})
}

type (
	taskRequest struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		DueDate     string `json:"due_date"`
		Priority    string `json:"priority"`
	}

	taskUpdateRequest struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		DueDate     *string `json:"due_date"`
		Priority    *string `json:"priority"`
	}
)

func (r taskRequest) newTask(loc *time.Location) (task.NewTask, error) {
	nt := task.NewTask{
		Title:       r.Title,
		Description: r.Description,
		Priority:    task.Priority(r.Priority),
	}
	if strings.TrimSpace(r.DueDate) == "" {
		return nt, nil // reported by the validator
	}
	due, err := parseDate(r.DueDate, loc)
	if err != nil {
		return nt, err
	}
	nt.DueDate = due
	return nt, nil
}

func (r taskUpdateRequest) updateTask(loc *time.Location) (task.UpdateTask, error) {
	ut := task.UpdateTask{
		Title:       r.Title,
		Description: r.Description,
	}
	if r.Priority != nil {
		prio := task.Priority(*r.Priority)
		ut.Priority = &prio
	}
	if r.DueDate != nil {
		due, err := parseDate(*r.DueDate, loc)
		if err != nil {
			return ut, err
		}
		ut.DueDate = &due
	}
	return ut, nil
}
