package sqlstore_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tasktrack/core"
	"github.com/trezcool/tasktrack/core/assessment"
	"github.com/trezcool/tasktrack/core/notification"
	"github.com/trezcool/tasktrack/core/task"
	"github.com/trezcool/tasktrack/core/user"
	"github.com/trezcool/tasktrack/storage/database"
	"github.com/trezcool/tasktrack/storage/database/sqlstore"
	"github.com/trezcool/tasktrack/tests"
)

var (
	ctx = context.Background()
	now = time.Date(2026, time.October, 19, 10, 0, 0, 0, time.UTC)
)

func prepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.OpenSQLiteMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func TestUserRepository(t *testing.T) {
	db := prepareDB(t)
	repo := sqlstore.NewUserRepository(db)

	ama := testutil.CreateProfile(t, repo, "Ama Owusu", "ama@test.cd", "Secret#2024", user.RoleStudent, now.Add(-time.Hour))
	kofi := testutil.CreateProfile(t, repo, "Kofi", "kofi@test.cd", "", user.RoleStudent, now)
	root := testutil.CreateProfile(t, repo, "Root", "root@test.cd", "", user.RoleAdmin, now.Add(-2*time.Hour))

	t.Run("round trip", func(t *testing.T) {
		got, err := repo.GetProfile(ctx, ama.UID)
		require.NoError(t, err)
		assert.Equal(t, "DSV0001", got.StudentID)
		assert.Equal(t, user.RoleStudent, got.Role)
		assert.True(t, got.CreatedAt.Equal(now.Add(-time.Hour)))
		assert.True(t, got.LastLogin.IsZero())
		assert.NoError(t, got.CheckPassword("Secret#2024"))

		got, err = repo.GetProfileByEmail(ctx, "root@test.cd")
		require.NoError(t, err)
		assert.Equal(t, root.UID, got.UID)
		assert.Empty(t, got.StudentID)
		assert.Nil(t, got.PasswordHash)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.GetProfile(ctx, "nope")
		assert.Equal(t, user.ErrNotFound, err)
		_, err = repo.GetProfileByEmail(ctx, "nope@test.cd")
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("email uniqueness", func(t *testing.T) {
		assert.Equal(t, user.ErrEmailExists, repo.CheckEmailUniqueness(ctx, "kofi@test.cd"))
		assert.NoError(t, repo.CheckEmailUniqueness(ctx, "kofi@test.cd", kofi.UID))
		assert.NoError(t, repo.CheckEmailUniqueness(ctx, "new@test.cd"))

		_, err := repo.CreateProfile(ctx, user.Profile{Email: "kofi@test.cd", Role: user.RoleStudent, CreatedAt: now, UpdatedAt: now}, testutil.StudentID)
		assert.Equal(t, user.ErrEmailExists, err)
	})

	t.Run("create if absent", func(t *testing.T) {
		p := user.Profile{UID: "ext-1", Email: "ext@test.cd", Role: user.RoleStudent, StudentID: "DSV0100", CreatedAt: now, UpdatedAt: now}
		saved, created, err := repo.CreateProfileIfAbsent(ctx, p, nil)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "DSV0100", saved.StudentID)

		p.DisplayName = "changed"
		saved, created, err = repo.CreateProfileIfAbsent(ctx, p, testutil.StudentID)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Empty(t, saved.DisplayName)
	})

	t.Run("query", func(t *testing.T) {
		students := user.QueryFilter{Role: user.RoleStudent}
		got, err := repo.QueryProfiles(ctx, students, core.DBOrdering{Field: "student_id", Ascending: true})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"DSV0001", "DSV0002", "DSV0100"}, []string{got[0].StudentID, got[1].StudentID, got[2].StudentID})

		got, err = repo.QueryProfiles(ctx, user.QueryFilter{Search: "OWUSU"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, ama.UID, got[0].UID)

		got, err = repo.QueryProfiles(ctx, user.QueryFilter{Search: "dsv0002"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, kofi.UID, got[0].UID)

		got, err = repo.QueryProfiles(ctx, user.QueryFilter{})
		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.Equal(t, root.UID, got[0].UID, "default order is created_at")

		_, err = repo.QueryProfiles(ctx, user.QueryFilter{}, core.DBOrdering{Field: "password_hash"})
		assert.Error(t, err)
	})

	t.Run("update", func(t *testing.T) {
		p := kofi
		p.RequiresPasswordChange = true
		p.Bio = "hello"
		p.LastLogin = now
		p.CreatedAt = now.AddDate(1, 0, 0)
		got, err := repo.UpdateProfile(ctx, p)
		require.NoError(t, err)
		assert.True(t, got.RequiresPasswordChange)
		assert.Equal(t, "hello", got.Bio)
		assert.True(t, got.LastLogin.Equal(now))
		assert.True(t, got.CreatedAt.Equal(kofi.CreatedAt), "created_at never changes")

		yes := true
		got2, err := repo.QueryProfiles(ctx, user.QueryFilter{RequiresPasswordChange: &yes})
		require.NoError(t, err)
		require.Len(t, got2, 1)
		assert.Equal(t, kofi.UID, got2[0].UID)

		_, err = repo.UpdateProfile(ctx, user.Profile{UID: "nope", Email: "x@test.cd"})
		assert.Equal(t, user.ErrNotFound, err)
	})
}

func TestUserRepository_studentIDs(t *testing.T) {
	db := prepareDB(t)
	repo := sqlstore.NewUserRepository(db)
	require.NoError(t, sqlstore.SeedCounter(ctx, db, user.StudentSequence, 41))
	student := func(email string) user.Profile {
		return user.Profile{Email: email, Role: user.RoleStudent, CreatedAt: now, UpdatedAt: now}
	}

	t.Run("failed insert keeps the counter", func(t *testing.T) {
		_, err := repo.CreateProfile(ctx, student("ama@test.cd"), nil)
		require.NoError(t, err)

		_, err = repo.CreateProfile(ctx, student("ama@test.cd"), testutil.StudentID)
		assert.Equal(t, user.ErrEmailExists, err)

		got, err := repo.CreateProfile(ctx, student("kofi@test.cd"), testutil.StudentID)
		require.NoError(t, err)
		assert.Equal(t, "DSV0042", got.StudentID)
	})

	t.Run("concurrent creates", func(t *testing.T) {
		require.NoError(t, sqlstore.SeedCounter(ctx, db, user.StudentSequence, 100))
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			seen = make(map[string]bool)
		)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				p, err := repo.CreateProfile(ctx, student(fmt.Sprintf("s%d@test.cd", i)), testutil.StudentID)
				assert.NoError(t, err)
				mu.Lock()
				seen[p.StudentID] = true
				mu.Unlock()
			}(i)
		}
		wg.Wait()

		assert.Len(t, seen, 10)
		for n := int64(101); n <= 110; n++ {
			assert.True(t, seen[testutil.StudentID(n)], "missing %d", n)
		}
	})

	t.Run("assign once", func(t *testing.T) {
		p, err := repo.CreateProfile(ctx, student("late@test.cd"), nil)
		require.NoError(t, err)
		require.Empty(t, p.StudentID)

		got, err := repo.AssignStudentID(ctx, p.UID, testutil.StudentID)
		require.NoError(t, err)
		assert.Equal(t, "DSV0111", got.StudentID)
		got, err = repo.AssignStudentID(ctx, p.UID, testutil.StudentID)
		require.NoError(t, err)
		assert.Equal(t, "DSV0111", got.StudentID)

		_, err = repo.AssignStudentID(ctx, "nope", testutil.StudentID)
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("welcome mark", func(t *testing.T) {
		p := student("new@test.cd")
		p.WelcomePending = true
		p, err := repo.CreateProfile(ctx, p, testutil.StudentID)
		require.NoError(t, err)
		assert.True(t, p.WelcomePending)

		p.Bio = "updated"
		p, err = repo.UpdateProfile(ctx, p)
		require.NoError(t, err)
		assert.True(t, p.WelcomePending)

		require.NoError(t, repo.ClearWelcomePending(ctx, p.UID))
		p, err = repo.GetProfile(ctx, p.UID)
		require.NoError(t, err)
		assert.False(t, p.WelcomePending)
		assert.Equal(t, user.ErrNotFound, repo.ClearWelcomePending(ctx, "nope"))
	})
}

func TestTaskRepository(t *testing.T) {
	db := prepareDB(t)
	usrRepo := sqlstore.NewUserRepository(db)
	repo := sqlstore.NewTaskRepository(db)
	ama := testutil.CreateProfile(t, usrRepo, "Ama", "ama@test.cd", "", user.RoleStudent)
	kofi := testutil.CreateProfile(t, usrRepo, "Kofi", "kofi@test.cd", "", user.RoleStudent)

	first := testutil.CreateTask(t, repo, ama.UID, "first", now)
	second := testutil.CreateTask(t, repo, ama.UID, "second", now, now.Add(-time.Hour))
	testutil.CreateTask(t, repo, kofi.UID, "other", now.AddDate(0, 0, 1))

	t.Run("get", func(t *testing.T) {
		got, err := repo.GetTask(ctx, second.ID)
		require.NoError(t, err)
		assert.True(t, got.Completed)
		assert.True(t, got.CompletedAt.Equal(now.Add(-time.Hour)))
		assert.True(t, got.DueDate.Equal(second.DueDate))

		got, err = repo.GetTask(ctx, first.ID)
		require.NoError(t, err)
		assert.True(t, got.CompletedAt.IsZero())

		_, err = repo.GetTask(ctx, "nope")
		assert.Equal(t, task.ErrNotFound, err)
	})

	t.Run("query keeps creation order", func(t *testing.T) {
		got, err := repo.QueryTasks(ctx, task.QueryFilter{UserID: ama.UID})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, first.ID, got[0].ID)
		assert.Equal(t, second.ID, got[1].ID)

		done := true
		got, err = repo.QueryTasks(ctx, task.QueryFilter{Completed: &done})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, second.ID, got[0].ID)

		got, err = repo.QueryTasks(ctx, task.QueryFilter{})
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("update and latch", func(t *testing.T) {
		tk := first
		tk.Title = "renamed"
		tk.Completed = true
		tk.CompletedAt = now
		got, err := repo.UpdateTask(ctx, tk)
		require.NoError(t, err)
		assert.Equal(t, "renamed", got.Title)
		assert.True(t, got.CompletedAt.Equal(now))

		require.NoError(t, repo.MarkOverdueNotified(ctx, first.ID))
		got, err = repo.GetTask(ctx, first.ID)
		require.NoError(t, err)
		assert.True(t, got.OverdueNotificationSent)

		assert.Equal(t, task.ErrNotFound, repo.MarkOverdueNotified(ctx, "nope"))
		_, err = repo.UpdateTask(ctx, task.Task{ID: "nope"})
		assert.Equal(t, task.ErrNotFound, err)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteTask(ctx, first.ID))
		_, err := repo.GetTask(ctx, first.ID)
		assert.Equal(t, task.ErrNotFound, err)
		assert.Equal(t, task.ErrNotFound, repo.DeleteTask(ctx, first.ID))
	})
}

func TestNotificationRepository(t *testing.T) {
	db := prepareDB(t)
	repo := sqlstore.NewNotificationRepository(db)

	var ids []string
	for i, sid := range []string{"u1", "u2", "u1", ""} {
		n, err := repo.CreateNotification(ctx, notification.Notification{
			Type:      notification.TypeInfo,
			Message:   "message",
			StudentID: sid,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		assert.False(t, n.Read)
		ids = append(ids, n.ID)
	}

	got, err := repo.QueryNotifications(ctx, notification.QueryFilter{StudentID: "u1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ids[2], got[0].ID, "newest first")

	got, err = repo.QueryNotifications(ctx, notification.QueryFilter{Limit: 3})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, ids[3], got[0].ID)

	require.NoError(t, repo.MarkNotificationsRead(ctx, "u1", ids[0]))
	assert.Equal(t, notification.ErrNotFound, repo.MarkNotificationsRead(ctx, "u1", ids[1]), "belongs to another student")

	got, err = repo.QueryNotifications(ctx, notification.QueryFilter{StudentID: "u1", UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ids[2], got[0].ID)

	require.NoError(t, repo.MarkNotificationsRead(ctx, ""))
	got, err = repo.QueryNotifications(ctx, notification.QueryFilter{UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAssessmentRepository(t *testing.T) {
	db := prepareDB(t)
	usrRepo := sqlstore.NewUserRepository(db)
	repo := sqlstore.NewAssessmentRepository(db)
	ama := testutil.CreateProfile(t, usrRepo, "Ama", "ama@test.cd", "", user.RoleStudent)

	_, err := repo.GetAssessmentByUser(ctx, ama.UID)
	assert.Equal(t, assessment.ErrNotFound, err)

	a := assessment.Assessment{
		UserID:              ama.UID,
		SubmittedAt:         now,
		NotificationPending: true,
		Responses: assessment.Structured{Items: []assessment.Response{
			{ID: "q1", Category: assessment.CategoryStudyHabits, Question: "When do you study?", Answer: "morning"},
		}},
	}
	saved, created, err := repo.CreateAssessmentIfAbsent(ctx, a)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, saved.ID)

	a.Responses = assessment.Legacy{StudyHabits: map[string]string{"when": "night"}}
	again, created, err := repo.CreateAssessmentIfAbsent(ctx, a)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, saved.ID, again.ID)

	got, err := repo.GetAssessmentByUser(ctx, ama.UID)
	require.NoError(t, err)
	require.IsType(t, assessment.Structured{}, got.Responses)
	assert.Equal(t, "morning", got.Responses.(assessment.Structured).Items[0].Answer)
	assert.True(t, got.SubmittedAt.Equal(now))
	assert.True(t, got.NotificationPending)

	require.NoError(t, repo.ClearNotificationPending(ctx, saved.ID))
	got, err = repo.GetAssessmentByUser(ctx, ama.UID)
	require.NoError(t, err)
	assert.False(t, got.NotificationPending)
	assert.Equal(t, assessment.ErrNotFound, repo.ClearNotificationPending(ctx, "nope"))
}
