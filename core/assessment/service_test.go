package assessment_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tasktrack/core"
	"github.com/trezcool/tasktrack/core/assessment"
	"github.com/trezcool/tasktrack/core/notification"
	"github.com/trezcool/tasktrack/services/logger"
	"github.com/trezcool/tasktrack/storage/database/memstore"
	"github.com/trezcool/tasktrack/tests"
)

type flagRecorder struct {
	uids []string
	err  error
}

func (r *flagRecorder) MarkAssessmentCompleted(_ context.Context, uid string) error {
	r.uids = append(r.uids, uid)
	return r.err
}

func TestService_Submit(t *testing.T) {
	ctx := context.Background()
	db := memstore.Open()
	notifSvc := notification.NewService(memstore.NewNotificationRepository(db))
	flags := &flagRecorder{}
	svc := assessment.NewService(memstore.NewAssessmentRepository(db), notifSvc, flags, logsvc.NewDiscardLogger())
	validate := testutil.NewValidator()

	_, err := svc.Submit(ctx, validate, "u1", assessment.NewAssessment{})
	assert.True(t, core.IsValidationError(err))

	_, err = svc.Submit(ctx, validate, "u1", assessment.NewAssessment{Items: []assessment.Response{
		{ID: "q1", Category: "Mood", Question: "How?", Answer: "Fine"},
	}})
	assert.Error(t, err)

	na := assessment.NewAssessment{Items: []assessment.Response{
		{ID: "q1", Category: assessment.CategoryStudyHabits, Question: "When do you study?", Answer: " Evenings "},
		{ID: "q2", Category: assessment.CategoryPersonality, Question: "Group or solo?", Answer: "Solo", Label: "independent"},
	}}
	a, err := svc.Submit(ctx, validate, "u1", na)
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	require.Equal(t, assessment.KindStructured, a.Responses.Kind())
	assert.Equal(t, "Evenings", a.Responses.(assessment.Structured).Items[0].Answer)
	assert.Equal(t, []string{"u1"}, flags.uids)

	_, err = svc.Submit(ctx, validate, "u1", na)
	assert.Equal(t, assessment.ErrAlreadySubmitted, err)

	ns, err := notifSvc.QueryForStudent(ctx, "u1", false)
	require.NoError(t, err)
	require.Len(t, ns, 1, "one notification per submission")
	assert.Equal(t, notification.TypeInfo, ns[0].Type)

	got, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, a, got)

	sum, err := svc.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Total)

	_, err = svc.Get(ctx, "u2")
	assert.Equal(t, assessment.ErrNotFound, err)

	// flag failures are logged, the submission stands
	flags.err = errors.New("store unavailable")
	legacy, err := svc.Submit(ctx, validate, "u2", assessment.NewAssessment{StudyHabits: map[string]string{"time": "night"}})
	require.NoError(t, err)
	assert.Equal(t, assessment.KindLegacy, legacy.Responses.Kind())
}

type flakyNotifier struct {
	assessment.Notifier
	fails int
}

func (n *flakyNotifier) Notify(ctx context.Context, nn notification.NewNotification) (notification.Notification, error) {
	if n.fails > 0 {
		n.fails--
		return notification.Notification{}, errors.New("notifications unavailable")
	}
	return n.Notifier.Notify(ctx, nn)
}

func TestService_Submit_noticeRetried(t *testing.T) {
	ctx := context.Background()
	db := memstore.Open()
	repo := memstore.NewAssessmentRepository(db)
	notifSvc := notification.NewService(memstore.NewNotificationRepository(db))
	svc := assessment.NewService(repo, &flakyNotifier{Notifier: notifSvc, fails: 1}, &flagRecorder{}, logsvc.NewDiscardLogger())
	validate := testutil.NewValidator()
	na := assessment.NewAssessment{StudyHabits: map[string]string{"time": "night"}}

	notices := func() []notification.Notification {
		ns, err := notifSvc.QueryForStudent(ctx, "u1", false)
		require.NoError(t, err)
		return ns
	}

	a, err := svc.Submit(ctx, validate, "u1", na)
	require.NoError(t, err, "a notification failure does not fail the submission")
	assert.True(t, a.NotificationPending)
	assert.Empty(t, notices())

	_, err = svc.Submit(ctx, validate, "u1", na)
	assert.Equal(t, assessment.ErrAlreadySubmitted, err)
	require.Len(t, notices(), 1)
	stored, err := repo.GetAssessmentByUser(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, stored.NotificationPending)

	_, err = svc.Submit(ctx, validate, "u1", na)
	assert.Equal(t, assessment.ErrAlreadySubmitted, err)
	assert.Len(t, notices(), 1)
}
