package notification_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tasktrack/core/notification"
	"github.com/trezcool/tasktrack/storage/database/memstore"
)

func TestService(t *testing.T) {
	tick := time.Date(2026, time.October, 19, 10, 0, 0, 0, time.UTC)
	notification.NowFunc = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	defer func() { notification.NowFunc = time.Now }()

	ctx := context.Background()
	svc := notification.NewService(memstore.NewNotificationRepository(memstore.Open()))

	tests := []struct {
		name    string
		nn      notification.NewNotification
		wantErr error
	}{
		{name: "empty message", nn: notification.NewNotification{Type: notification.TypeInfo, Message: "  "}, wantErr: notification.ErrEmptyMessage},
		{name: "unknown type", nn: notification.NewNotification{Type: "error", Message: "boom"}, wantErr: notification.ErrInvalidType},
		{name: "info", nn: notification.NewNotification{Type: notification.TypeInfo, Message: "welcome", StudentID: "u1"}},
		{name: "success", nn: notification.NewNotification{Type: notification.TypeSuccess, Message: " done ", StudentID: "u1"}},
		{name: "other student", nn: notification.NewNotification{Type: notification.TypeWarning, Message: "late", StudentID: "u2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := svc.Notify(ctx, tt.nn)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, n.ID)
			assert.False(t, n.Read)
		})
	}

	ns, err := svc.QueryForStudent(ctx, "u1", false)
	require.NoError(t, err)
	require.Len(t, ns, 2)
	assert.Equal(t, "done", ns[0].Message, "newest first, trimmed")
	assert.Equal(t, "welcome", ns[1].Message)

	count, err := svc.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, svc.MarkRead(ctx, "u1", ns[1].ID))
	count, _ = svc.UnreadCount(ctx, "u1")
	assert.Equal(t, 1, count)

	// a student cannot mark someone else's notification
	others, err := svc.QueryForStudent(ctx, "u2", false)
	require.NoError(t, err)
	assert.Equal(t, notification.ErrNotFound, svc.MarkRead(ctx, "u1", others[0].ID))

	require.NoError(t, svc.MarkAllRead(ctx, "u1"))
	count, _ = svc.UnreadCount(ctx, "u1")
	assert.Equal(t, 0, count)
	count, _ = svc.UnreadCount(ctx, "u2")
	assert.Equal(t, 1, count)

	all, err := svc.QueryAll(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	limited, err := svc.QueryAll(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "late", limited[0].Message)

	_, err = svc.QueryForStudent(ctx, "", false)
	assert.Equal(t, notification.ErrNotFound, err)
}
