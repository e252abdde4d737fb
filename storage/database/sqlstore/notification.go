package sqlstore

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/tasktrack/core/notification"
)

type notificationRow struct {
	ID        string `db:"id"`
	Type      string `db:"type"`
	Message   string `db:"message"`
	StudentID string `db:"student_id"`
	Read      bool   `db:"is_read"`
	CreatedAt int64  `db:"created_at"`
	Seq       int64  `db:"seq"`
}

func (r notificationRow) notification() notification.Notification {
	return notification.Notification{
		ID:        r.ID,
		Type:      notification.Type(r.Type),
		Message:   r.Message,
		CreatedAt: fromMillis(r.CreatedAt),
		Read:      r.Read,
		StudentID: r.StudentID,
	}
}

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	seq, err := nextSequence(ctx, repo.db, "notification_rows")
	if err != nil {
		return notification.Notification{}, err
	}
	row := notificationRow{
		ID:        uuid.New().String(),
		Type:      string(n.Type),
		Message:   n.Message,
		StudentID: n.StudentID,
		CreatedAt: millis(n.CreatedAt),
		Seq:       seq,
	}
	q := `INSERT INTO notifications (id, type, message, student_id, is_read, created_at, seq)
		VALUES (:id, :type, :message, :student_id, :is_read, :created_at, :seq)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return row.notification(), nil
}

// QueryNotifications returns notifications newest first.
func (repo *notificationRepository) QueryNotifications(ctx context.Context, filter notification.QueryFilter) ([]notification.Notification, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.StudentID != "" {
		where = append(where, "student_id = ?")
		args = append(args, filter.StudentID)
	}
	if filter.UnreadOnly {
		where = append(where, "is_read = ?")
		args = append(args, false)
	}

	q := "SELECT id, type, message, student_id, is_read, created_at, seq FROM notifications"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY seq DESC"
	if filter.Limit > 0 {
		q += " LIMIT " + strconv.Itoa(filter.Limit)
	}

	var rows []notificationRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	out := make([]notification.Notification, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.notification())
	}
	return out, nil
}

func (repo *notificationRepository) MarkNotificationsRead(ctx context.Context, studentID string, ids ...string) error {
	q := "UPDATE notifications SET is_read = ? WHERE 1 = 1"
	args := []interface{}{true}
	if studentID != "" {
		q += " AND student_id = ?"
		args = append(args, studentID)
	}
	if len(ids) > 0 {
		q += " AND id IN (?)"
		args = append(args, ids)
	}

	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return errors.Wrap(err, "building mark read query")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return errors.Wrap(err, "marking notifications read")
	}
	if len(ids) > 0 {
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return notification.ErrNotFound
		}
	}
	return nil
}
