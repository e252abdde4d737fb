package assessment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/tasktrack/core"
	"github.com/trezcool/tasktrack/core/notification"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound         = errors.New("assessment not found")
	ErrAlreadySubmitted = errors.New("assessment already submitted")
	ErrNoResponses      = errors.New("at least one response is required")
)

type (
	Repository interface {
		// CreateAssessmentIfAbsent stores a unless the user already has one.
		// It returns the stored assessment and whether it was created by this call.
		CreateAssessmentIfAbsent(ctx context.Context, a Assessment) (Assessment, bool, error)
		GetAssessmentByUser(ctx context.Context, userID string) (Assessment, error)
		// ClearNotificationPending records that the submission notice of the assessment is stored.
		ClearNotificationPending(ctx context.Context, id string) error
	}

	Notifier interface {
		Notify(ctx context.Context, nn notification.NewNotification) (notification.Notification, error)
	}

	// ProfileFlagger records on the profile that the assessment is done.
	ProfileFlagger interface {
		MarkAssessmentCompleted(ctx context.Context, uid string) error
	}

	Service struct {
		repo     Repository
		notifier Notifier
		profiles ProfileFlagger
		logger   core.Logger
	}
)

func NewService(repo Repository, notifier Notifier, profiles ProfileFlagger, logger core.Logger) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(notifier, "notifier"),
		vala.IsNotNil(profiles, "profiles"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{repo: repo, notifier: notifier, profiles: profiles, logger: logger}
}

// Submit stores the one assessment of userID, then notifies the student and flags the profile.
// A resubmission fails with ErrAlreadySubmitted, after completing whatever the first one left undone.
func (svc *Service) Submit(ctx context.Context, validate *validator.Validate, userID string, na NewAssessment) (Assessment, error) {
	if userID == "" {
		return Assessment{}, ErrNotFound
	}
	if err := na.Validate(validate); err != nil {
		return Assessment{}, err
	}

	a, created, err := svc.repo.CreateAssessmentIfAbsent(ctx, Assessment{
		UserID:              userID,
		SubmittedAt:         NowFunc().UTC(),
		Responses:           na.responses(),
		NotificationPending: true,
	})
	if err != nil {
		return Assessment{}, pkgerrors.Wrap(err, "creating assessment")
	}
	a = svc.complete(ctx, a)
	if !created {
		return Assessment{}, ErrAlreadySubmitted
	}
	return a, nil
}

// complete runs the side effects of a submission. The pending mark is cleared only once
// the notice is stored, so a failure is retried by the next Submit of the student.
func (svc *Service) complete(ctx context.Context, a Assessment) Assessment {
	logCtx := map[string]interface{}{"user": a.UserID}
	if a.NotificationPending {
		_, err := svc.notifier.Notify(ctx, notification.NewNotification{
			Type:      notification.TypeInfo,
			Message:   "Your assessment has been submitted. Thank you!",
			StudentID: a.UserID,
		})
		if err == nil {
			err = svc.repo.ClearNotificationPending(ctx, a.ID)
		}
		if err != nil {
			svc.logger.Error(fmt.Sprintf("notifying assessment submission: %v", err), err, logCtx)
		} else {
			a.NotificationPending = false
		}
	}
	if err := svc.profiles.MarkAssessmentCompleted(ctx, a.UserID); err != nil {
		svc.logger.Error(fmt.Sprintf("flagging assessment completion: %v", err), err, logCtx)
	}
	return a
}

func (svc *Service) Get(ctx context.Context, userID string) (Assessment, error) {
	return svc.repo.GetAssessmentByUser(ctx, userID)
}

func (svc *Service) Summary(ctx context.Context, userID string) (Summary, error) {
	a, err := svc.Get(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(a), nil
}
