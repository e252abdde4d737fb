package user

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/tasktrack/core"
	"github.com/trezcool/tasktrack/core/notification"
)

// StudentSequence names the counter student IDs are numbered from.
const StudentSequence = "student"

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound             = errors.New("user not found")
	ErrEmailExists          = errors.New("a user with this email already exists")
	ErrAuthenticationFailed = errors.New("invalid email or password")
	ErrInvalidPassword      = errors.New("current password is invalid")
	ErrNoChanges            = errors.New("no update request provided")
)

type (
	// StudentIDFunc renders the n-th value of the student counter as a student ID.
	StudentIDFunc func(n int64) string

	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUIDs ...string) error
		// CreateProfile stores p, assigning a UID when empty.
		// With a non nil sid, the student counter is advanced and p.StudentID set from its new value
		// in the same write: a failed insert consumes no ID.
		CreateProfile(ctx context.Context, p Profile, sid StudentIDFunc) (Profile, error)
		// CreateProfileIfAbsent stores p unless a profile with the same UID exists, in which case
		// the counter is left untouched.
		// It returns the stored profile and whether it was created by this call.
		CreateProfileIfAbsent(ctx context.Context, p Profile, sid StudentIDFunc) (Profile, bool, error)
		// AssignStudentID gives uid a student ID when it has none, with the guarantee of CreateProfile.
		AssignStudentID(ctx context.Context, uid string, sid StudentIDFunc) (Profile, error)
		GetProfile(ctx context.Context, uid string) (Profile, error)
		GetProfileByEmail(ctx context.Context, email string) (Profile, error)
		// QueryProfiles applies AND operation on available QueryFilter fields, see QueryFilter.Match.
		QueryProfiles(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Profile, error)
		// UpdateProfile saves p. WelcomePending is left as stored.
		UpdateProfile(ctx context.Context, p Profile) (Profile, error)
		// ClearWelcomePending records that the welcome notification of uid is stored.
		ClearWelcomePending(ctx context.Context, uid string) error
	}

	// Notifier records in-app notifications.
	Notifier interface {
		Notify(ctx context.Context, nn notification.NewNotification) (notification.Notification, error)
	}

	Service struct {
		repo     Repository
		notifier Notifier
		mailSvc  core.EmailService
		logger   core.Logger
		prefix   string
	}
)

func NewService(repo Repository, notifier Notifier, mailSvc core.EmailService, logger core.Logger, conf *core.Config) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(notifier, "notifier"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(logger, "logger"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	return &Service{
		repo:     repo,
		notifier: notifier,
		mailSvc:  mailSvc,
		logger:   logger,
		prefix:   conf.Tasks.StudentIDPrefix,
	}
}

// FormatStudentID renders the n-th student ID: prefix followed by n zero padded to 4 digits.
func FormatStudentID(prefix string, n int64) string {
	return fmt.Sprintf("%s%04d", prefix, n)
}

// StudentID renders the n-th student ID with the configured prefix.
func (svc *Service) StudentID(n int64) string {
	return FormatStudentID(svc.prefix, n)
}

func (svc *Service) checkUniqueness(email string, exclUIDs ...string) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, exclUIDs...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// EnsureProfile returns the profile of a signed in identity, creating a student profile on first sign in.
// The returned bool reports whether the profile was created by this call.
func (svc *Service) EnsureProfile(ctx context.Context, id Identity) (Profile, bool, error) {
	if id.UID == "" {
		return Profile{}, false, ErrNotFound
	}
	p, err := svc.repo.GetProfile(ctx, id.UID)
	if err == nil {
		return svc.welcome(ctx, p), false, nil
	}
	if err != ErrNotFound {
		return Profile{}, false, err
	}

	now := NowFunc().UTC()
	name := core.CleanString(id.DisplayName)
	email := core.CleanString(id.Email, true /* lower */)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	p, created, err := svc.repo.CreateProfileIfAbsent(ctx, Profile{
		UID:            id.UID,
		Email:          email,
		DisplayName:    name,
		PhotoURL:       id.PhotoURL,
		Role:           RoleStudent,
		CreatedAt:      now,
		UpdatedAt:      now,
		LastLogin:      now,
		WelcomePending: true,
	}, svc.StudentID)
	if err != nil {
		return Profile{}, false, pkgerrors.Wrap(err, "creating profile")
	}
	return svc.welcome(ctx, p), created, nil
}

// SignUp registers a new student with a password.
func (svc *Service) SignUp(ctx context.Context, validate *validator.Validate, nu NewUser) (Profile, error) {
	if err := nu.Validate(validate, svc); err != nil {
		return Profile{}, err
	}
	now := NowFunc().UTC()
	p := Profile{
		Email:          nu.Email,
		DisplayName:    nu.DisplayName,
		Role:           RoleStudent,
		CreatedAt:      now,
		UpdatedAt:      now,
		WelcomePending: true,
	}
	if err := p.SetPassword(nu.Password); err != nil {
		return Profile{}, err
	}
	p, err := svc.repo.CreateProfile(ctx, p, svc.StudentID)
	if err != nil {
		return Profile{}, pkgerrors.Wrap(err, "creating profile")
	}
	return svc.welcome(ctx, p), nil
}

// CreateAccount lets an admin create an account on someone's behalf.
// The new user must change the password at first sign in and receives a welcome email with the credentials.
// The caller's own session is left untouched: nothing here depends on or alters the acting admin.
func (svc *Service) CreateAccount(ctx context.Context, validate *validator.Validate, na NewAccount) (Profile, string, error) {
	if err := na.Validate(validate, svc); err != nil {
		return Profile{}, "", err
	}

	pwd := na.Password
	if pwd == "" {
		var err error
		if pwd, err = TemporaryPassword(); err != nil {
			return Profile{}, "", err
		}
	}

	now := NowFunc().UTC()
	p := Profile{
		Email:                  na.Email,
		DisplayName:            na.DisplayName,
		Role:                   na.Role,
		CreatedAt:              now,
		UpdatedAt:              now,
		RequiresPasswordChange: true,
	}
	var sid StudentIDFunc
	if p.IsStudent() {
		sid = svc.StudentID
		p.WelcomePending = true
	}
	if err := p.SetPassword(pwd); err != nil {
		return Profile{}, "", err
	}
	p, err := svc.repo.CreateProfile(ctx, p, sid)
	if err != nil {
		return Profile{}, "", pkgerrors.Wrap(err, "creating profile")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: p.DisplayName, Address: p.Email}},
		Subject:      "Your account is ready",
		TemplateName: "welcome",
		TemplateData: map[string]interface{}{
			"Name":      p.DisplayName,
			"StudentID": p.StudentID,
			"Email":     p.Email,
			"Password":  pwd,
		},
	})
	return svc.welcome(ctx, p), pwd, nil
}

// welcome stores the welcome notification of a profile still waiting for it.
// The pending mark is cleared only once the notification is stored,
// so a failure is retried at the next sign in.
func (svc *Service) welcome(ctx context.Context, p Profile) Profile {
	if !p.WelcomePending {
		return p
	}
	_, err := svc.notifier.Notify(ctx, notification.NewNotification{
		Type:      notification.TypeInfo,
		Message:   fmt.Sprintf("Welcome %s! Your student ID is %s.", p.DisplayName, p.PublicID()),
		StudentID: p.UID,
	})
	if err != nil {
		svc.logger.Error(fmt.Sprintf("notifying sign up: %v", err), err, p.Person())
		return p
	}
	if err := svc.repo.ClearWelcomePending(ctx, p.UID); err != nil {
		svc.logger.Error(fmt.Sprintf("clearing welcome mark: %v", err), err, p.Person())
		return p
	}
	p.WelcomePending = false
	return p
}

// Authenticate checks the credentials of a password account and records the login.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (Profile, error) {
	p, err := svc.repo.GetProfileByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if err == ErrNotFound {
			return Profile{}, ErrAuthenticationFailed
		}
		return Profile{}, err
	}
	if len(p.PasswordHash) == 0 || p.CheckPassword(pwd) != nil {
		return Profile{}, ErrAuthenticationFailed
	}

	p.LastLogin = NowFunc().UTC()
	if p, err = svc.repo.UpdateProfile(ctx, p); err != nil {
		return Profile{}, pkgerrors.Wrap(err, "recording login")
	}
	return svc.welcome(ctx, p), nil
}

// ChangePassword replaces the password of uid and clears the password change requirement.
func (svc *Service) ChangePassword(ctx context.Context, validate *validator.Validate, uid string, cp ChangePassword) (Profile, error) {
	if err := cp.Validate(validate); err != nil {
		return Profile{}, err
	}
	p, err := svc.repo.GetProfile(ctx, uid)
	if err != nil {
		return Profile{}, err
	}
	if len(p.PasswordHash) > 0 && p.CheckPassword(cp.CurrentPassword) != nil {
		return Profile{}, core.NewValidationError(ErrInvalidPassword, core.FieldError{
			Field: "current_password",
			Error: ErrInvalidPassword.Error(),
		})
	}
	return svc.setPassword(ctx, p, cp.Password)
}

// ResetPassword sets the password of the account identified by a UID or email, bypassing the policy.
func (svc *Service) ResetPassword(ctx context.Context, uidOrEmail, pwd string) (Profile, error) {
	if pwd == "" {
		return Profile{}, ErrInvalidPassword
	}
	p, err := svc.repo.GetProfile(ctx, uidOrEmail)
	if err == ErrNotFound {
		p, err = svc.repo.GetProfileByEmail(ctx, core.CleanString(uidOrEmail, true /* lower */))
	}
	if err != nil {
		return Profile{}, err
	}
	return svc.setPassword(ctx, p, pwd)
}

func (svc *Service) setPassword(ctx context.Context, p Profile, pwd string) (Profile, error) {
	if err := p.SetPassword(pwd); err != nil {
		return Profile{}, err
	}
	p.RequiresPasswordChange = false
	p.UpdatedAt = NowFunc().UTC()
	p, err := svc.repo.UpdateProfile(ctx, p)
	return p, pkgerrors.Wrap(err, "updating password")
}

func (svc *Service) UpdateProfile(ctx context.Context, validate *validator.Validate, uid string, up UpdateProfile) (Profile, error) {
	if up.DisplayName == nil && up.PhotoURL == nil && up.Bio == nil {
		return Profile{}, ErrNoChanges
	}
	if err := up.Validate(validate); err != nil {
		return Profile{}, err
	}
	p, err := svc.repo.GetProfile(ctx, uid)
	if err != nil {
		return Profile{}, err
	}

	if up.DisplayName != nil {
		p.DisplayName = *up.DisplayName
	}
	if up.PhotoURL != nil {
		p.PhotoURL = *up.PhotoURL
	}
	if up.Bio != nil {
		p.Bio = *up.Bio
	}
	p.UpdatedAt = NowFunc().UTC()
	p, err = svc.repo.UpdateProfile(ctx, p)
	return p, pkgerrors.Wrap(err, "updating profile")
}

// SetFlags applies an admin change to the profile flags of uid.
// Promoting a student keeps the student ID; demoting an admin without one allocates it.
func (svc *Service) SetFlags(ctx context.Context, validate *validator.Validate, uid string, uf UpdateFlags) (Profile, error) {
	if uf.RequiresPasswordChange == nil && uf.AssessmentCompleted == nil && uf.Role == nil {
		return Profile{}, ErrNoChanges
	}
	if err := uf.Validate(validate); err != nil {
		return Profile{}, err
	}
	p, err := svc.repo.GetProfile(ctx, uid)
	if err != nil {
		return Profile{}, err
	}

	if uf.RequiresPasswordChange != nil {
		p.RequiresPasswordChange = *uf.RequiresPasswordChange
	}
	if uf.AssessmentCompleted != nil {
		p.AssessmentCompleted = *uf.AssessmentCompleted
	}
	if uf.Role != nil {
		p.Role = *uf.Role
	}
	p.UpdatedAt = NowFunc().UTC()
	if p, err = svc.repo.UpdateProfile(ctx, p); err != nil {
		return Profile{}, pkgerrors.Wrap(err, "updating flags")
	}
	if p.IsStudent() && p.StudentID == "" {
		p, err = svc.repo.AssignStudentID(ctx, p.UID, svc.StudentID)
		return p, pkgerrors.Wrap(err, "assigning student ID")
	}
	return p, nil
}

// MarkAssessmentCompleted sets the assessment flag of uid.
func (svc *Service) MarkAssessmentCompleted(ctx context.Context, uid string) error {
	p, err := svc.repo.GetProfile(ctx, uid)
	if err != nil {
		return err
	}
	if p.AssessmentCompleted {
		return nil
	}
	p.AssessmentCompleted = true
	p.UpdatedAt = NowFunc().UTC()
	_, err = svc.repo.UpdateProfile(ctx, p)
	return pkgerrors.Wrap(err, "marking assessment completed")
}

func (svc *Service) GetByUID(ctx context.Context, uid string) (Profile, error) {
	return svc.repo.GetProfile(ctx, uid)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Profile, error) {
	return svc.repo.GetProfileByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Profile, error) {
	filter.Clean()
	return svc.repo.QueryProfiles(ctx, filter, ordering...)
}

// QueryStudents returns every student ordered by student ID.
func (svc *Service) QueryStudents(ctx context.Context) ([]Profile, error) {
	return svc.repo.QueryProfiles(ctx, QueryFilter{Role: RoleStudent}, core.DBOrdering{Field: "student_id", Ascending: true})
}

// TemporaryPassword generates a random password that satisfies the password policy.
func TemporaryPassword() (string, error) {
	buf := make([]byte, 9)
	if _, err := rand.Read(buf); err != nil {
		return "", pkgerrors.Wrap(err, "generating password")
	}
	return base64.RawURLEncoding.EncodeToString(buf) + "aZ7#", nil
}
