package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/tasktrack/core/notification"
)

type notificationRepository struct {
	db *DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) tbl() *notificationTable { return repo.db.notification }

func (repo *notificationRepository) CreateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	tbl := repo.tbl()
	tbl.Lock()
	defer tbl.Unlock()

	n.ID = uuid.New().String()
	n.Read = false
	tbl.rows = append(tbl.rows, n)
	return n, nil
}

// QueryNotifications walks the rows backwards: newest first.
func (repo *notificationRepository) QueryNotifications(_ context.Context, filter notification.QueryFilter) ([]notification.Notification, error) {
	tbl := repo.tbl()
	tbl.RLock()
	defer tbl.RUnlock()

	out := make([]notification.Notification, 0)
	for i := len(tbl.rows) - 1; i >= 0; i-- {
		n := tbl.rows[i]
		if filter.StudentID != "" && n.StudentID != filter.StudentID {
			continue
		}
		if filter.UnreadOnly && n.Read {
			continue
		}
		out = append(out, n)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (repo *notificationRepository) MarkNotificationsRead(_ context.Context, studentID string, ids ...string) error {
	tbl := repo.tbl()
	tbl.Lock()
	defer tbl.Unlock()

	found := len(ids) == 0
	for i := range tbl.rows {
		n := &tbl.rows[i]
		if studentID != "" && n.StudentID != studentID {
			continue
		}
		if len(ids) > 0 && !contains(ids, n.ID) {
			continue
		}
		n.Read = true
		found = true
	}
	if !found {
		return notification.ErrNotFound
	}
	return nil
}
