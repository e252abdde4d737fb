package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/tasktrack/core"
	"github.com/trezcool/tasktrack/core/task"
	"github.com/trezcool/tasktrack/core/user"
)

// NewValidator returns a validator with every custom validator registered.
func NewValidator() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

// StudentID renders student IDs with the test prefix.
func StudentID(n int64) string { return user.FormatStudentID("DSV", n) }

func CreateProfile(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	role user.Role,
	createdAt ...time.Time,
) user.Profile {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	p := user.Profile{
		DisplayName: name,
		Email:       email,
		Role:        role,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	}
	var sid user.StudentIDFunc
	if role == user.RoleStudent {
		sid = StudentID
	}
	if pwd != "" {
		if err := p.SetPassword(pwd); err != nil {
			t.Fatalf("CreateProfile() failed: %v", err)
		}
	}
	p, err := repo.CreateProfile(context.Background(), p, sid)
	if err != nil {
		t.Fatalf("CreateProfile() failed: %v", err)
	}
	return p
}

// CreateTask stores a task due on due's day. It is completed when completedAt is given.
func CreateTask(t *testing.T, repo task.Repository, userID, title string, due time.Time, completedAt ...time.Time) task.Task {
	t.Helper()

	tk := task.Task{
		UserID:    userID,
		Title:     title,
		DueDate:   task.StartOfDay(due),
		Priority:  task.PriorityMedium,
		CreatedAt: due.AddDate(0, 0, -7),
		UpdatedAt: due.AddDate(0, 0, -7),
	}
	if len(completedAt) > 0 {
		tk.Completed = true
		tk.CompletedAt = completedAt[0]
	}
	tk, err := repo.CreateTask(context.Background(), tk)
	if err != nil {
		t.Fatalf("CreateTask() failed: %v", err)
	}
	return tk
}
