package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/tasktrack/apps/api/echo"
	"github.com/trezcool/tasktrack/core/assessment"
	"github.com/trezcool/tasktrack/core/notification"
	"github.com/trezcool/tasktrack/core/user"
)

func TestAssessmentAPI(t *testing.T) {
	f := setup(t)
	_, adminToken := f.account(t, "Admin", "admin@test.cd", user.RoleAdmin)
	stu, token := f.account(t, "Stu", "stu@test.cd", user.RoleStudent)

	rec := f.do(t, http.MethodGet, "/v1/assessments/me", token, nil)
	requireCode(t, rec, http.StatusNotFound)

	rec = f.do(t, http.MethodPost, "/v1/assessments/me", token, assessment.NewAssessment{})
	requireCode(t, rec, http.StatusBadRequest)

	submission := assessment.NewAssessment{Items: []assessment.Response{
		{ID: "q1", Category: assessment.CategoryStudyHabits, Question: "When do you study?", Answer: "Mornings", Label: "early"},
		{ID: "q2", Category: assessment.CategoryStudyHabits, Question: "Where?", Answer: "Library"},
		{ID: "q3", Category: assessment.CategoryPersonality, Question: "Team or solo?", Answer: "Solo", Label: "early"},
	}}
	rec = f.do(t, http.MethodPost, "/v1/assessments/me", token, submission)
	requireCode(t, rec, http.StatusCreated)
	var created echoapi.AssessmentResponse
	decode(t, rec, &created)
	assert.Equal(t, stu.UID, created.Assessment.UserID)
	assert.Equal(t, assessment.KindStructured, created.Summary.Kind)
	assert.Equal(t, 3, created.Summary.Total)
	assert.Equal(t, 2, created.Summary.ByCategory[assessment.CategoryStudyHabits])
	assert.Equal(t, 2, created.Summary.Labels["early"])

	t.Run("single submission", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/v1/assessments/me", token, submission)
		requireCode(t, rec, http.StatusConflict)
		assert.Equal(t, assessment.ErrAlreadySubmitted.Error(), errorOf(t, rec))
	})

	t.Run("profile flagged", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/users/me", token, nil)
		requireCode(t, rec, http.StatusOK)
		var me user.Profile
		decode(t, rec, &me)
		assert.True(t, me.AssessmentCompleted)
	})

	t.Run("retrieve", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/assessments/me", token, nil)
		requireCode(t, rec, http.StatusOK)
		var got echoapi.AssessmentResponse
		decode(t, rec, &got)
		assert.Equal(t, created.Assessment.ID, got.Assessment.ID)
		responses, ok := got.Assessment.Responses.(assessment.Structured)
		require.True(t, ok)
		assert.Len(t, responses.Items, 3)
	})

	t.Run("admin retrieve", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/admin/students/"+stu.UID+"/assessment", adminToken, nil)
		requireCode(t, rec, http.StatusOK)
		var got echoapi.AssessmentResponse
		decode(t, rec, &got)
		assert.Equal(t, 3, got.Summary.Total)

		rec = f.do(t, http.MethodGet, "/v1/admin/students/"+stu.UID+"/assessment", token, nil)
		requireCode(t, rec, http.StatusForbidden)
	})

	t.Run("legacy submission", func(t *testing.T) {
		other, otherToken := f.account(t, "Other", "other@test.cd", user.RoleStudent)
		rec := f.do(t, http.MethodPost, "/v1/assessments/me", otherToken, assessment.NewAssessment{
			StudyHabits: map[string]string{"time": "night"},
			Personality: map[string]string{"style": "visual", "pace": "fast"},
		})
		requireCode(t, rec, http.StatusCreated)
		var got echoapi.AssessmentResponse
		decode(t, rec, &got)
		assert.Equal(t, other.UID, got.Assessment.UserID)
		assert.Equal(t, assessment.KindLegacy, got.Summary.Kind)
		assert.Equal(t, 3, got.Summary.Total)
	})
}

func TestNotificationAPI(t *testing.T) {
	f := setup(t)
	_, adminToken := f.account(t, "Admin", "admin@test.cd", user.RoleAdmin)
	stu, token := f.account(t, "Stu", "stu@test.cd", user.RoleStudent)
	other, otherToken := f.account(t, "Other", "other@test.cd", user.RoleStudent)

	for _, uid := range []string{stu.UID, stu.UID, other.UID} {
		_, err := f.notifs.Notify(context.Background(), notification.NewNotification{
			Type: notification.TypeInfo, Message: "hello", StudentID: uid,
		})
		require.NoError(t, err)
	}

	list := func(token, query string) echoapi.NotificationsResponse {
		rec := f.do(t, http.MethodGet, "/v1/notifications"+query, token, nil)
		requireCode(t, rec, http.StatusOK)
		var resp echoapi.NotificationsResponse
		decode(t, rec, &resp)
		return resp
	}

	resp := list(token, "")
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, 2, resp.Unread)

	// notifications of another student are out of reach
	rec := f.do(t, http.MethodPost, "/v1/notifications/"+resp.Items[0].ID+"/read", otherToken, nil)
	requireCode(t, rec, http.StatusNotFound)

	rec = f.do(t, http.MethodPost, "/v1/notifications/read", token, nil)
	requireCode(t, rec, http.StatusNoContent)
	resp = list(token, "")
	assert.Len(t, resp.Items, 2)
	assert.Zero(t, resp.Unread)
	assert.Empty(t, list(token, "?unread=true").Items)
	assert.Equal(t, 1, list(otherToken, "").Unread)

	t.Run("admin", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/admin/notifications", adminToken, nil)
		requireCode(t, rec, http.StatusOK)
		var all []notification.Notification
		decode(t, rec, &all)
		assert.Len(t, all, 3)

		rec = f.do(t, http.MethodGet, "/v1/admin/notifications?limit=1", adminToken, nil)
		requireCode(t, rec, http.StatusOK)
		decode(t, rec, &all)
		assert.Len(t, all, 1)
	})
}
