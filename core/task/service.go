package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kat-co/vala"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/tasktrack/core"
	"github.com/trezcool/tasktrack/core/notification"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound   = errors.New("task not found")
	ErrNoChanges  = errors.New("no update request provided")
	ErrNoDueDate  = errors.New("due date is required")
	ErrEmptyTitle = errors.New("title is required")
)

type (
	Repository interface {
		CreateTask(ctx context.Context, t Task) (Task, error)
		GetTask(ctx context.Context, id string) (Task, error)
		QueryTasks(ctx context.Context, filter QueryFilter) ([]Task, error)
		UpdateTask(ctx context.Context, t Task) (Task, error)
		// MarkOverdueNotified sets the overdue notification latch of a task.
		MarkOverdueNotified(ctx context.Context, id string) error
		DeleteTask(ctx context.Context, id string) error
	}

	// Notifier records in-app notifications.
	Notifier interface {
		Notify(ctx context.Context, nn notification.NewNotification) (notification.Notification, error)
	}

	Service struct {
		repo     Repository
		notifier Notifier
		logger   core.Logger
		loc      *time.Location

		scanMu sync.Mutex
	}
)

func NewService(repo Repository, notifier Notifier, logger core.Logger, loc *time.Location) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(notifier, "notifier"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	if loc == nil {
		loc = time.Local
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		loc:      loc,
	}
}

// Now returns the current instant in the service's calendar location.
func (svc *Service) Now() time.Time {
	return NowFunc().In(svc.loc)
}

func (svc *Service) Location() *time.Location { return svc.loc }

func (svc *Service) Create(ctx context.Context, userID string, nt NewTask) (Task, error) {
	if nt.Title == "" {
		return Task{}, ErrEmptyTitle
	}
	if !ValidInstant(nt.DueDate) {
		return Task{}, ErrNoDueDate
	}

	now := svc.Now()
	t := Task{
		UserID:      userID,
		Title:       nt.Title,
		Description: nt.Description,
		DueDate:     StartOfDay(nt.DueDate.In(svc.loc)),
		Priority:    nt.Priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	t, err := svc.repo.CreateTask(ctx, t)
	return t, pkgerrors.Wrap(err, "creating task")
}

// Get returns a task owned by userID. Tasks of other students are reported as not found.
func (svc *Service) Get(ctx context.Context, userID, id string) (Task, error) {
	t, err := svc.repo.GetTask(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if userID != "" && t.UserID != userID {
		return Task{}, ErrNotFound
	}
	return t, nil
}

func (svc *Service) QueryByUser(ctx context.Context, userID string) ([]Task, error) {
	if userID == "" {
		return nil, ErrNotFound
	}
	return svc.repo.QueryTasks(ctx, QueryFilter{UserID: userID})
}

func (svc *Service) QueryAll(ctx context.Context) ([]Task, error) {
	return svc.repo.QueryTasks(ctx, QueryFilter{})
}

// Update edits a task. Moving the due date to today or later clears the overdue notification latch.
func (svc *Service) Update(ctx context.Context, userID, id string, ut UpdateTask) (Task, error) {
	if ut.IsEmpty() {
		return Task{}, ErrNoChanges
	}
	t, err := svc.Get(ctx, userID, id)
	if err != nil {
		return Task{}, err
	}

	now := svc.Now()
	if ut.Title != nil {
		if *ut.Title == "" {
			return Task{}, ErrEmptyTitle
		}
		t.Title = *ut.Title
	}
	if ut.Description != nil {
		t.Description = *ut.Description
	}
	if ut.Priority != nil {
		t.Priority = *ut.Priority
	}
	if ut.DueDate != nil {
		if !ValidInstant(*ut.DueDate) {
			return Task{}, ErrNoDueDate
		}
		t.DueDate = StartOfDay(ut.DueDate.In(svc.loc))
		if !IsPastDay(t.DueDate, now) {
			t.OverdueNotificationSent = false
		}
	}
	t.UpdatedAt = now

	t, err = svc.repo.UpdateTask(ctx, t)
	return t, pkgerrors.Wrap(err, "updating task")
}

// ToggleComplete flips the completion state of a task.
// Completing a task notifies the student; un-completing it is silent.
func (svc *Service) ToggleComplete(ctx context.Context, userID, id string) (Task, error) {
	t, err := svc.Get(ctx, userID, id)
	if err != nil {
		return Task{}, err
	}

	now := svc.Now()
	t.Completed = !t.Completed
	if t.Completed {
		t.CompletedAt = now
	} else {
		t.CompletedAt = time.Time{}
	}
	t.UpdatedAt = now

	t, err = svc.repo.UpdateTask(ctx, t)
	if err != nil {
		return Task{}, pkgerrors.Wrap(err, "toggling task")
	}

	if t.Completed {
		_, err := svc.notifier.Notify(ctx, notification.NewNotification{
			Type:      notification.TypeSuccess,
			Message:   fmt.Sprintf("Task completed: %s", t.Title),
			StudentID: t.UserID,
		})
		if err != nil {
			svc.logger.Error(fmt.Sprintf("notifying task completion: %v", err), err, map[string]interface{}{"task": t.ID})
		}
	}
	return t, nil
}

func (svc *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := svc.Get(ctx, userID, id); err != nil {
		return err
	}
	return pkgerrors.Wrap(svc.repo.DeleteTask(ctx, id), "deleting task")
}

// ScanOverdue emits one warning notification per overdue task of userID (every student when empty)
// whose latch is not set yet, then sets the latch. It returns the number of notifications emitted.
func (svc *Service) ScanOverdue(ctx context.Context, userID string, now time.Time) (int, error) {
	tasks, err := svc.repo.QueryTasks(ctx, QueryFilter{UserID: userID})
	if err != nil {
		return 0, pkgerrors.Wrap(err, "querying tasks")
	}
	return svc.scanSnapshot(ctx, Snapshot{UserID: userID, Tasks: tasks, TakenAt: now}), nil
}

func (svc *Service) scanSnapshot(ctx context.Context, snap Snapshot) int {
	svc.scanMu.Lock()
	defer svc.scanMu.Unlock()

	var sent int
	for _, t := range snap.Tasks {
		if t.OverdueNotificationSent || Classify(t, snap.TakenAt) != StatusOverdue {
			continue
		}
		// the latch may have been set by a scan over an older snapshot
		if fresh, err := svc.repo.GetTask(ctx, t.ID); err != nil || fresh.OverdueNotificationSent {
			continue
		}

		// notification first: a failed latch write means a duplicate on retry, never a lost notification
		_, err := svc.notifier.Notify(ctx, notification.NewNotification{
			Type:      notification.TypeWarning,
			Message:   fmt.Sprintf("Task %q is overdue (due %s)", t.Title, t.DueDate.In(snap.TakenAt.Location()).Format("2006-01-02")),
			StudentID: t.UserID,
		})
		if err != nil {
			svc.logger.Error(fmt.Sprintf("notifying overdue task: %v", err), err, map[string]interface{}{"task": t.ID})
			continue
		}
		if err = svc.repo.MarkOverdueNotified(ctx, t.ID); err != nil {
			svc.logger.Error(fmt.Sprintf("setting overdue latch: %v", err), err, map[string]interface{}{"task": t.ID})
			continue
		}
		sent++
	}
	return sent
}
