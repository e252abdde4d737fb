package notification

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kat-co/vala"
	pkgerrors "github.com/pkg/errors"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound     = errors.New("notification not found")
	ErrEmptyMessage = errors.New("notification message is required")
	ErrInvalidType  = errors.New("invalid notification type")
)

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification) (Notification, error)
		// QueryNotifications returns notifications newest first.
		QueryNotifications(ctx context.Context, filter QueryFilter) ([]Notification, error)
		// MarkNotificationsRead sets Read on the given notifications (all of them when ids is empty)
		// belonging to studentID (any student when studentID is empty).
		MarkNotificationsRead(ctx context.Context, studentID string, ids ...string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
	).CheckAndPanic()

	return &Service{repo: repo}
}

func (svc *Service) Notify(ctx context.Context, nn NewNotification) (Notification, error) {
	msg := strings.TrimSpace(nn.Message)
	if msg == "" {
		return Notification{}, ErrEmptyMessage
	}
	switch nn.Type {
	case TypeInfo, TypeSuccess, TypeWarning:
	default:
		return Notification{}, ErrInvalidType
	}

	n, err := svc.repo.CreateNotification(ctx, Notification{
		Type:      nn.Type,
		Message:   msg,
		CreatedAt: NowFunc().UTC(),
		StudentID: nn.StudentID,
	})
	return n, pkgerrors.Wrap(err, "creating notification")
}

func (svc *Service) QueryForStudent(ctx context.Context, studentID string, unreadOnly bool) ([]Notification, error) {
	if studentID == "" {
		return nil, ErrNotFound
	}
	return svc.repo.QueryNotifications(ctx, QueryFilter{StudentID: studentID, UnreadOnly: unreadOnly})
}

func (svc *Service) QueryAll(ctx context.Context, limit int) ([]Notification, error) {
	return svc.repo.QueryNotifications(ctx, QueryFilter{Limit: limit})
}

func (svc *Service) MarkRead(ctx context.Context, studentID, id string) error {
	if id == "" {
		return ErrNotFound
	}
	return svc.repo.MarkNotificationsRead(ctx, studentID, id)
}

func (svc *Service) MarkAllRead(ctx context.Context, studentID string) error {
	return svc.repo.MarkNotificationsRead(ctx, studentID)
}

// UnreadCount counts the unread notifications of a student.
func (svc *Service) UnreadCount(ctx context.Context, studentID string) (int, error) {
	ns, err := svc.QueryForStudent(ctx, studentID, true)
	if err != nil {
		return 0, err
	}
	return len(ns), nil
}
