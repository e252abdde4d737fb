package sqlstore

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/tasktrack/core"
	"github.com/trezcool/tasktrack/core/user"
)

const profileColumns = `uid, student_id, email, display_name, photo_url, role, bio, password_hash,
	requires_password_change, assessment_completed, created_at, updated_at, last_login, welcome_pending`

var profileOrderings = map[string]string{
	"created_at":   "created_at",
	"student_id":   "student_id",
	"display_name": "LOWER(display_name)",
	"email":        "email",
}

type profileRow struct {
	UID                    string      `db:"uid"`
	StudentID              null.String `db:"student_id"`
	Email                  string      `db:"email"`
	DisplayName            string      `db:"display_name"`
	PhotoURL               string      `db:"photo_url"`
	Role                   string      `db:"role"`
	Bio                    string      `db:"bio"`
	PasswordHash           null.String `db:"password_hash"`
	RequiresPasswordChange bool        `db:"requires_password_change"`
	AssessmentCompleted    bool        `db:"assessment_completed"`
	CreatedAt              int64       `db:"created_at"`
	UpdatedAt              int64       `db:"updated_at"`
	LastLogin              null.Int64  `db:"last_login"`
	WelcomePending         bool        `db:"welcome_pending"`
}

func toProfileRow(p user.Profile) profileRow {
	return profileRow{
		UID:                    p.UID,
		StudentID:              null.NewString(p.StudentID, p.StudentID != ""),
		Email:                  p.Email,
		DisplayName:            p.DisplayName,
		PhotoURL:               p.PhotoURL,
		Role:                   string(p.Role),
		Bio:                    p.Bio,
		PasswordHash:           null.NewString(string(p.PasswordHash), len(p.PasswordHash) > 0),
		RequiresPasswordChange: p.RequiresPasswordChange,
		AssessmentCompleted:    p.AssessmentCompleted,
		CreatedAt:              millis(p.CreatedAt),
		UpdatedAt:              millis(p.UpdatedAt),
		LastLogin:              nullMillis(p.LastLogin),
		WelcomePending:         p.WelcomePending,
	}
}

func (r profileRow) profile() user.Profile {
	var hash []byte
	if r.PasswordHash.Valid {
		hash = []byte(r.PasswordHash.String)
	}
	return user.Profile{
		UID:                    r.UID,
		StudentID:              r.StudentID.String,
		Email:                  r.Email,
		DisplayName:            r.DisplayName,
		PhotoURL:               r.PhotoURL,
		Role:                   user.Role(r.Role),
		Bio:                    r.Bio,
		CreatedAt:              fromMillis(r.CreatedAt),
		UpdatedAt:              fromMillis(r.UpdatedAt),
		LastLogin:              fromNullMillis(r.LastLogin),
		RequiresPasswordChange: r.RequiresPasswordChange,
		AssessmentCompleted:    r.AssessmentCompleted,
		PasswordHash:           hash,
		WelcomePending:         r.WelcomePending,
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUIDs ...string) error {
	q := "SELECT COUNT(*) FROM profiles WHERE email = ?"
	args := []interface{}{email}
	if len(excludedUIDs) > 0 {
		var err error
		q, args, err = sqlx.In(q+" AND uid NOT IN (?)", email, excludedUIDs)
		if err != nil {
			return errors.Wrap(err, "building uniqueness query")
		}
	}

	var n int
	if err := repo.db.GetContext(ctx, &n, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if n > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) insertQuery(suffix string) string {
	return `INSERT INTO profiles (` + profileColumns + `) VALUES (
		:uid, :student_id, :email, :display_name, :photo_url, :role, :bio, :password_hash,
		:requires_password_change, :assessment_completed, :created_at, :updated_at, :last_login,
		:welcome_pending)` + suffix
}

// insert stores p within tx, numbering it from the student counter when sid is set.
// It reports whether a row was written; the counter update rolls back with tx otherwise.
func (repo *userRepository) insert(ctx context.Context, tx *sqlx.Tx, p user.Profile, sid user.StudentIDFunc, suffix string) (bool, error) {
	if sid != nil {
		n, err := nextSequence(ctx, tx, user.StudentSequence)
		if err != nil {
			return false, err
		}
		p.StudentID = sid(n)
	}
	res, err := tx.NamedExecContext(ctx, repo.insertQuery(suffix), toProfileRow(p))
	if err != nil {
		if isUniqueViolation(err) && strings.Contains(strings.ToLower(err.Error()), "email") {
			return false, user.ErrEmailExists
		}
		return false, errors.Wrap(err, "inserting profile")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "inserting profile")
	}
	return n > 0, nil
}

func (repo *userRepository) CreateProfile(ctx context.Context, p user.Profile, sid user.StudentIDFunc) (user.Profile, error) {
	if p.UID == "" {
		p.UID = uuid.New().String()
	}
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		_, err := repo.insert(ctx, tx, p, sid, "")
		return err
	})
	if err != nil {
		return user.Profile{}, err
	}
	return repo.GetProfile(ctx, p.UID)
}

var errProfileExists = errors.New("profile exists")

func (repo *userRepository) CreateProfileIfAbsent(ctx context.Context, p user.Profile, sid user.StudentIDFunc) (user.Profile, bool, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var n int
		if err := tx.GetContext(ctx, &n, tx.Rebind("SELECT COUNT(*) FROM profiles WHERE uid = ?"), p.UID); err != nil {
			return errors.Wrap(err, "checking profile")
		}
		if n > 0 {
			return errProfileExists
		}
		created, err := repo.insert(ctx, tx, p, sid, " ON CONFLICT (uid) DO NOTHING")
		if err == nil && !created {
			return errProfileExists
		}
		return err
	})
	created := err == nil
	if err != nil && err != errProfileExists {
		return user.Profile{}, false, err
	}
	saved, err := repo.GetProfile(ctx, p.UID)
	return saved, created, err
}

func (repo *userRepository) AssignStudentID(ctx context.Context, uid string, sid user.StudentIDFunc) (user.Profile, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var current null.String
		err := tx.GetContext(ctx, &current, tx.Rebind("SELECT student_id FROM profiles WHERE uid = ?"), uid)
		if err != nil {
			return trapNoRowsErr(err, user.ErrNotFound, "getting student ID")
		}
		if current.Valid && current.String != "" {
			return nil
		}
		n, err := nextSequence(ctx, tx, user.StudentSequence)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, tx.Rebind("UPDATE profiles SET student_id = ? WHERE uid = ?"), sid(n), uid)
		return errors.Wrap(err, "assigning student ID")
	})
	if err != nil {
		return user.Profile{}, err
	}
	return repo.GetProfile(ctx, uid)
}

func (repo *userRepository) ClearWelcomePending(ctx context.Context, uid string) error {
	q := repo.db.Rebind("UPDATE profiles SET welcome_pending = ? WHERE uid = ?")
	res, err := repo.db.ExecContext(ctx, q, false, uid)
	if err != nil {
		return errors.Wrap(err, "clearing welcome mark")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo *userRepository) getBy(ctx context.Context, column, value string) (user.Profile, error) {
	var row profileRow
	q := repo.db.Rebind("SELECT " + profileColumns + " FROM profiles WHERE " + column + " = ?")
	if err := repo.db.GetContext(ctx, &row, q, value); err != nil {
		return user.Profile{}, trapNoRowsErr(err, user.ErrNotFound, "getting profile by "+column)
	}
	return row.profile(), nil
}

func (repo *userRepository) GetProfile(ctx context.Context, uid string) (user.Profile, error) {
	return repo.getBy(ctx, "uid", uid)
}

func (repo *userRepository) GetProfileByEmail(ctx context.Context, email string) (user.Profile, error) {
	return repo.getBy(ctx, "email", email)
}

func (repo *userRepository) QueryProfiles(ctx context.Context, filter user.QueryFilter, ordering ...core.DBOrdering) ([]user.Profile, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Role != "" {
		where = append(where, "role = ?")
		args = append(args, string(filter.Role))
	}
	if filter.RequiresPasswordChange != nil {
		where = append(where, "requires_password_change = ?")
		args = append(args, *filter.RequiresPasswordChange)
	}
	if filter.Search != "" {
		val := "%" + strings.ToLower(filter.Search) + "%"
		where = append(where, "(LOWER(display_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(COALESCE(student_id, '')) LIKE ?)")
		args = append(args, val, val, val)
	}

	q := "SELECT " + profileColumns + " FROM profiles"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}

	orderList := make([]string, 0, len(ordering)+2)
	for _, ord := range ordering {
		col, ok := profileOrderings[ord.Field]
		if !ok {
			return nil, errors.Errorf("cannot order profiles by %q", ord.Field)
		}
		ord.Field = col
		orderList = append(orderList, ord.String())
	}
	orderList = append(orderList, "created_at ASC", "uid ASC")
	q += " ORDER BY " + strings.Join(orderList, ", ")

	var rows []profileRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying profiles")
	}
	profiles := make([]user.Profile, 0, len(rows))
	for _, r := range rows {
		profiles = append(profiles, r.profile())
	}
	return profiles, nil
}

func (repo *userRepository) UpdateProfile(ctx context.Context, p user.Profile) (user.Profile, error) {
	q := `UPDATE profiles SET
		student_id = :student_id, email = :email, display_name = :display_name, photo_url = :photo_url,
		role = :role, bio = :bio, password_hash = :password_hash,
		requires_password_change = :requires_password_change, assessment_completed = :assessment_completed,
		updated_at = :updated_at, last_login = :last_login
		WHERE uid = :uid`
	res, err := repo.db.NamedExecContext(ctx, q, toProfileRow(p))
	if err != nil {
		if isUniqueViolation(err) {
			return user.Profile{}, user.ErrEmailExists
		}
		return user.Profile{}, errors.Wrap(err, "updating profile")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.Profile{}, user.ErrNotFound
	}
	return repo.GetProfile(ctx, p.UID)
}
