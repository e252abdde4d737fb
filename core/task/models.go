package task

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/tasktrack/core"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Task is owned by exactly one student (UserID).
// CompletedAt is set if and only if Completed is true.
type Task struct {
	ID                      string    `json:"id"`
	UserID                  string    `json:"user_id"`
	Title                   string    `json:"title"`
	Description             string    `json:"description,omitempty"`
	DueDate                 time.Time `json:"due_date"` // start of a local calendar day
	Priority                Priority  `json:"priority,omitempty"`
	Completed               bool      `json:"completed"`
	CompletedAt             time.Time `json:"completed_at"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
	OverdueNotificationSent bool      `json:"overdue_notification_sent"`
}

// NewTask contains information needed to create a new Task.
type NewTask struct {
	Title       string    `json:"title" validate:"required,notblank,max=200"`
	Description string    `json:"description" validate:"max=2000"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	Priority    Priority  `json:"priority" validate:"omitempty,oneof=high medium low"`
}

func (nt *NewTask) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	nt.Description = core.CleanString(nt.Description)
	nt.Priority = Priority(core.CleanString(string(nt.Priority), true /* lower */))
	return validate.Struct(nt)
}

// UpdateTask defines what information may be provided to modify an existing Task.
type UpdateTask struct {
	Title       *string    `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	DueDate     *time.Time `json:"due_date"`
	Priority    *Priority  `json:"priority" validate:"omitempty,oneof=high medium low"`
}

func (ut *UpdateTask) Validate(validate *validator.Validate) error {
	if ut.Title != nil {
		title := core.CleanString(*ut.Title)
		ut.Title = &title
	}
	if ut.Description != nil {
		desc := core.CleanString(*ut.Description)
		ut.Description = &desc
	}
	if ut.Priority != nil {
		prio := Priority(core.CleanString(string(*ut.Priority), true /* lower */))
		ut.Priority = &prio
	}
	if ut.DueDate != nil && ut.DueDate.IsZero() {
		return core.NewValidationError(nil, core.FieldError{Field: "due_date", Error: "invalid due date"})
	}
	return validate.Struct(ut)
}

func (ut *UpdateTask) IsEmpty() bool {
	return ut.Title == nil && ut.Description == nil && ut.DueDate == nil && ut.Priority == nil
}

type QueryFilter struct {
	UserID    string // empty: every student
	Completed *bool
}

// Snapshot is a point-in-time copy of a task collection. It must not be mutated.
type Snapshot struct {
	UserID  string
	Tasks   []Task
	TakenAt time.Time
}
