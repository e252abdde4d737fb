package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/tasktrack/core"
)

type Role string

// Roles
const (
	RoleStudent Role = "STUDENT"
	RoleAdmin   Role = "ADMIN"
)

var AllRoles = []Role{RoleStudent, RoleAdmin}

type Profile struct {
	UID                    string    `json:"uid"`
	StudentID              string    `json:"student_id,omitempty"`
	Email                  string    `json:"email"`
	DisplayName            string    `json:"display_name"`
	PhotoURL               string    `json:"photo_url"`
	Role                   Role      `json:"role"`
	Bio                    string    `json:"bio,omitempty"`
	CreatedAt              time.Time `json:"created_at"` // UTC
	UpdatedAt              time.Time `json:"updated_at"` // UTC
	LastLogin              time.Time `json:"last_login"` // UTC
	RequiresPasswordChange bool      `json:"requires_password_change"`
	AssessmentCompleted    bool      `json:"assessment_completed"`
	PasswordHash           []byte    `json:"-"`
	WelcomePending         bool      `json:"-"` // welcome notification not stored yet
}

func (p *Profile) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.PasswordHash = hash
	return nil
}

func (p *Profile) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(p.PasswordHash, []byte(pwd))
}

func (p *Profile) IsAdmin() bool   { return p.Role == RoleAdmin }
func (p *Profile) IsStudent() bool { return p.Role == RoleStudent }

// PublicID is the identifier shown to people: the student ID when allocated, the UID otherwise.
func (p *Profile) PublicID() string {
	if p.StudentID != "" {
		return p.StudentID
	}
	return p.UID
}

func (p *Profile) Person() core.Person {
	return core.Person{ID: p.UID, Username: p.DisplayName, Email: p.Email}
}

// Identity is what the identity provider knows about a signed in user.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}

// NewUser contains information needed for a student to sign up.
type NewUser struct {
	DisplayName     string `json:"display_name" validate:"required,notblank,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc *Service) error {
	nu.DisplayName = core.CleanString(nu.DisplayName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.checkUniqueness(nu.Email)
}

// NewAccount contains information needed by an admin to create an account on someone's behalf.
// A temporary password is generated when Password is empty.
type NewAccount struct {
	DisplayName string `json:"display_name" validate:"required,notblank,max=100"`
	Email       string `json:"email" validate:"required,email"`
	Role        Role   `json:"role" validate:"omitempty,oneof=STUDENT ADMIN"`
	Password    string `json:"password"`
}

func (na *NewAccount) Validate(validate *validator.Validate, svc *Service) error {
	na.DisplayName = core.CleanString(na.DisplayName)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.Role = Role(strings.ToUpper(core.CleanString(string(na.Role))))
	if na.Role == "" {
		na.Role = RoleStudent
	}

	if err := validate.Struct(na); err != nil {
		return err
	}
	return svc.checkUniqueness(na.Email)
}

// UpdateProfile defines what a user may change on their own profile.
type UpdateProfile struct {
	DisplayName *string `json:"display_name" validate:"omitempty,notblank,max=100"`
	PhotoURL    *string `json:"photo_url" validate:"omitempty,url"`
	Bio         *string `json:"bio" validate:"omitempty,max=500"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	if up.DisplayName != nil {
		name := core.CleanString(*up.DisplayName)
		up.DisplayName = &name
	}
	if up.Bio != nil {
		bio := core.CleanString(*up.Bio)
		up.Bio = &bio
	}
	return validate.Struct(up)
}

// UpdateFlags defines the profile flags an admin may change.
type UpdateFlags struct {
	RequiresPasswordChange *bool `json:"requires_password_change"`
	AssessmentCompleted    *bool `json:"assessment_completed"`
	Role                   *Role `json:"role" validate:"omitempty,oneof=STUDENT ADMIN"`
}

func (uf *UpdateFlags) Validate(validate *validator.Validate) error {
	return validate.Struct(uf)
}

type ChangePassword struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (cp ChangePassword) Validate(validate *validator.Validate) error { return validate.Struct(cp) }

type QueryFilter struct {
	Search                 string `query:"search"`
	Role                   Role   `query:"role"`
	RequiresPasswordChange *bool  `query:"requires_password_change"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.RequiresPasswordChange == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = Role(strings.ToUpper(core.CleanString(string(qf.Role))))
}

// Match reports whether p satisfies every set field of the filter.
// Search does a case-insensitive match on one of DisplayName, Email or StudentID.
func (qf QueryFilter) Match(p Profile) bool {
	if qf.Role != "" && p.Role != qf.Role {
		return false
	}
	if qf.RequiresPasswordChange != nil && p.RequiresPasswordChange != *qf.RequiresPasswordChange {
		return false
	}
	if s := strings.ToLower(qf.Search); s != "" {
		return strings.Contains(strings.ToLower(p.DisplayName), s) ||
			strings.Contains(strings.ToLower(p.Email), s) ||
			strings.Contains(strings.ToLower(p.StudentID), s)
	}
	return true
}
