package echoapi_test

import (
	"context"
	"encoding/csv"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/tasktrack/apps/api/echo"
	"github.com/trezcool/tasktrack/core/analytics"
	"github.com/trezcool/tasktrack/core/task"
	"github.com/trezcool/tasktrack/core/user"
	"github.com/trezcool/tasktrack/tests"
)

func TestAnalyticsAPI_dashboard(t *testing.T) {
	f := setup(t)
	stu, token := f.account(t, "Stu", "stu@test.cd", user.RoleStudent)
	testutil.CreateTask(t, f.repos.Tasks, stu.UID, "Yesterday", day(14), day(14).Add(9*time.Hour))
	testutil.CreateTask(t, f.repos.Tasks, stu.UID, "Morning", day(15), day(15).Add(8*time.Hour))
	testutil.CreateTask(t, f.repos.Tasks, stu.UID, "Late", day(10))
	testutil.CreateTask(t, f.repos.Tasks, stu.UID, "Next week", day(20))

	rec := f.do(t, http.MethodGet, "/v1/dashboard", token, nil)
	requireCode(t, rec, http.StatusOK)
	var dash analytics.StudentDashboard
	decode(t, rec, &dash)

	assert.Equal(t, 4, dash.Rollup.TotalTasks)
	assert.Equal(t, 2, dash.Rollup.CompletedTasks)
	assert.Equal(t, 50, dash.Rollup.CompletionRate)
	assert.Equal(t, 1, dash.Counts[task.StatusOverdue])
	assert.Equal(t, 1, dash.Counts[task.StatusUpcoming])
	assert.Equal(t, 0, dash.Counts[task.StatusDueToday])
	assert.Equal(t, 2, dash.Counts[task.StatusCompleted])
	assert.Equal(t, 2, dash.Streaks.Current)
	assert.Len(t, dash.Week.Points, 7)
	assert.Len(t, dash.Year.Points, 12)
	assert.Equal(t, "Dec 2023", dash.Year.Points[0].Label)
	assert.Len(t, dash.Heatmap, 12)
	assert.Equal(t, []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}, dash.Headers)
	require.Len(t, dash.Active, 2)

	// the dashboard read runs the overdue scan
	rec = f.do(t, http.MethodGet, "/v1/notifications", token, nil)
	requireCode(t, rec, http.StatusOK)
	var notifs echoapi.NotificationsResponse
	decode(t, rec, &notifs)
	assert.Equal(t, 1, notifs.Unread)

	t.Run("current month anchor", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/dashboard?anchor=current", token, nil)
		requireCode(t, rec, http.StatusOK)
		var dash analytics.StudentDashboard
		decode(t, rec, &dash)
		require.Len(t, dash.Year.Points, 12)
		assert.Equal(t, "Mar 2024", dash.Year.Points[0].Label)
	})

	t.Run("unknown anchor", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/dashboard?anchor=june", token, nil)
		requireCode(t, rec, http.StatusBadRequest)
	})
}

func TestAnalyticsAPI_dashboard_empty(t *testing.T) {
	f := setup(t)
	_, token := f.account(t, "Stu", "stu@test.cd", user.RoleStudent)

	rec := f.do(t, http.MethodGet, "/v1/dashboard", token, nil)
	requireCode(t, rec, http.StatusOK)
	var dash analytics.StudentDashboard
	decode(t, rec, &dash)
	assert.Zero(t, dash.Rollup.TotalTasks)
	assert.Zero(t, dash.Rollup.CompletionRate)
	assert.Zero(t, dash.Streaks.Current)
	for _, p := range dash.Week.Points {
		assert.Zero(t, p.Value)
	}
}

// population stores an admin and two students, one of them with a pending password change.
func population(t *testing.T, f fixture) (ada, bob user.Profile, adminToken string) {
	t.Helper()
	_, adminToken = f.account(t, "Admin", "admin@test.cd", user.RoleAdmin)
	ada, _ = f.account(t, "Ada", "ada@test.cd", user.RoleStudent)
	bob, _ = f.account(t, "Bob, Jr", "bob@test.cd", user.RoleStudent)

	bob.RequiresPasswordChange = true
	bob, err := f.repos.Users.UpdateProfile(context.Background(), bob)
	require.NoError(t, err)

	testutil.CreateTask(t, f.repos.Tasks, ada.UID, "A1", day(10))
	testutil.CreateTask(t, f.repos.Tasks, ada.UID, "A2", day(12), day(11))
	testutil.CreateTask(t, f.repos.Tasks, bob.UID, "B1", day(20))
	return ada, bob, adminToken
}

func TestAnalyticsAPI_overview(t *testing.T) {
	f := setup(t)
	ada, bob, adminToken := population(t, f)

	rec := f.do(t, http.MethodGet, "/v1/admin/overview", adminToken, nil)
	requireCode(t, rec, http.StatusOK)
	var ov analytics.AdminOverview
	decode(t, rec, &ov)

	assert.Equal(t, 2, ov.TotalStudents)
	assert.Equal(t, 1, ov.PendingPasswordChange)
	assert.Equal(t, 3, ov.System.TotalTasks)
	assert.Equal(t, 1, ov.System.CompletedTasks)
	assert.Equal(t, 1, ov.System.OverdueTasks)
	require.Len(t, ov.Students, 2)

	byUID := make(map[string]analytics.Rollup)
	for _, s := range ov.Students {
		byUID[s.Student.UID] = s.Rollup
	}
	assert.Equal(t, 2, byUID[ada.UID].TotalTasks)
	assert.Equal(t, 50, byUID[ada.UID].CompletionRate)
	assert.Equal(t, 1, byUID[bob.UID].PendingTasks)
}

func TestAnalyticsAPI_studentReport(t *testing.T) {
	f := setup(t)
	ada, bob, adminToken := population(t, f)

	tests := []struct {
		filter       string
		wantFilename string
		wantEmails   []string
	}{
		{filter: "", wantFilename: "student_report_full_2024-03-15.csv", wantEmails: []string{ada.Email, bob.Email}},
		{filter: "all", wantFilename: "student_report_full_2024-03-15.csv", wantEmails: []string{ada.Email, bob.Email}},
		{filter: "active", wantFilename: "student_report_active_2024-03-15.csv", wantEmails: []string{ada.Email}},
		{filter: "pending", wantFilename: "student_report_pending_2024-03-15.csv", wantEmails: []string{bob.Email}},
	}
	for _, tt := range tests {
		t.Run("filter="+tt.filter, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/v1/admin/reports/students.csv?filter="+tt.filter, adminToken, nil)
			requireCode(t, rec, http.StatusOK)
			assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Equal(t, `attachment; filename="`+tt.wantFilename+`"`, rec.Header().Get("Content-Disposition"))

			records, err := csv.NewReader(rec.Body).ReadAll()
			require.NoError(t, err)
			require.Len(t, records, len(tt.wantEmails)+1)
			assert.Equal(t, analytics.ReportHeader, records[0])

			emails := make([]string, 0, len(records)-1)
			for _, r := range records[1:] {
				emails = append(emails, r[2])
			}
			assert.ElementsMatch(t, tt.wantEmails, emails)
		})
	}

	t.Run("row", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/admin/reports/students.csv?filter=pending", adminToken, nil)
		requireCode(t, rec, http.StatusOK)
		records, err := csv.NewReader(rec.Body).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, []string{
			bob.StudentID, "Bob, Jr", "bob@test.cd", "STUDENT", bob.CreatedAt.Format("2006-01-02"),
			"1", "0", "1", "0", "0",
		}, records[1])
	})

	t.Run("unknown filter", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/admin/reports/students.csv?filter=lol", adminToken, nil)
		requireCode(t, rec, http.StatusBadRequest)
	})
}
