package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/tasktrack/core"
	"github.com/trezcool/tasktrack/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) tbl() *userTable { return repo.db.user }

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, excludedUIDs ...string) error {
	tbl := repo.tbl()
	tbl.RLock()
	defer tbl.RUnlock()

	for _, p := range tbl.table {
		if p.Email == email && !contains(excludedUIDs, p.UID) {
			return user.ErrEmailExists
		}
	}
	return nil
}

// insert stores p, numbering it from the student counter when sid is set.
// The caller holds the table lock and has run every check that could reject p.
func (repo *userRepository) insert(tbl *userTable, p user.Profile, sid user.StudentIDFunc) user.Profile {
	if p.UID == "" {
		p.UID = uuid.New().String()
	}
	if sid != nil {
		p.StudentID = sid(repo.db.nextSequence(user.StudentSequence))
	}
	tbl.next++
	tbl.seq[p.UID] = tbl.next
	tbl.table[p.UID] = &p
	return p
}

func (repo *userRepository) emailTaken(tbl *userTable, email string) bool {
	for _, other := range tbl.table {
		if other.Email == email {
			return true
		}
	}
	return false
}

func (repo *userRepository) CreateProfile(_ context.Context, p user.Profile, sid user.StudentIDFunc) (user.Profile, error) {
	tbl := repo.tbl()
	tbl.Lock()
	defer tbl.Unlock()

	if repo.emailTaken(tbl, p.Email) {
		return user.Profile{}, user.ErrEmailExists
	}
	if _, ok := tbl.table[p.UID]; ok && p.UID != "" {
		return user.Profile{}, errors.Errorf("profile %q already exists", p.UID)
	}
	return repo.insert(tbl, p, sid), nil
}

func (repo *userRepository) CreateProfileIfAbsent(_ context.Context, p user.Profile, sid user.StudentIDFunc) (user.Profile, bool, error) {
	tbl := repo.tbl()
	tbl.Lock()
	defer tbl.Unlock()

	if existing, ok := tbl.table[p.UID]; ok {
		return *existing, false, nil
	}
	if repo.emailTaken(tbl, p.Email) {
		return user.Profile{}, false, user.ErrEmailExists
	}
	return repo.insert(tbl, p, sid), true, nil
}

func (repo *userRepository) AssignStudentID(_ context.Context, uid string, sid user.StudentIDFunc) (user.Profile, error) {
	tbl := repo.tbl()
	tbl.Lock()
	defer tbl.Unlock()

	p, ok := tbl.table[uid]
	if !ok {
		return user.Profile{}, user.ErrNotFound
	}
	if p.StudentID == "" {
		p.StudentID = sid(repo.db.nextSequence(user.StudentSequence))
	}
	return *p, nil
}

func (repo *userRepository) ClearWelcomePending(_ context.Context, uid string) error {
	tbl := repo.tbl()
	tbl.Lock()
	defer tbl.Unlock()

	p, ok := tbl.table[uid]
	if !ok {
		return user.ErrNotFound
	}
	p.WelcomePending = false
	return nil
}

func (repo *userRepository) GetProfile(_ context.Context, uid string) (user.Profile, error) {
	tbl := repo.tbl()
	tbl.RLock()
	defer tbl.RUnlock()

	if p, ok := tbl.table[uid]; ok {
		return *p, nil
	}
	return user.Profile{}, user.ErrNotFound
}

func (repo *userRepository) GetProfileByEmail(_ context.Context, email string) (user.Profile, error) {
	tbl := repo.tbl()
	tbl.RLock()
	defer tbl.RUnlock()

	for _, p := range tbl.table {
		if p.Email == email {
			return *p, nil
		}
	}
	return user.Profile{}, user.ErrNotFound
}

func (repo *userRepository) QueryProfiles(_ context.Context, filter user.QueryFilter, ordering ...core.DBOrdering) ([]user.Profile, error) {
	tbl := repo.tbl()
	tbl.RLock()
	defer tbl.RUnlock()

	profiles := make([]user.Profile, 0, len(tbl.table))
	for _, p := range tbl.table {
		if filter.Match(*p) {
			profiles = append(profiles, *p)
		}
	}

	sort.SliceStable(profiles, func(i, j int) bool {
		a, b := profiles[i], profiles[j]
		for _, ord := range ordering {
			if c := compareProfiles(a, b, ord.Field); c != 0 {
				return (c < 0) == ord.Ascending
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return tbl.seq[a.UID] < tbl.seq[b.UID]
	})
	return profiles, nil
}

func compareProfiles(a, b user.Profile, field string) int {
	switch field {
	case "student_id":
		return strings.Compare(a.StudentID, b.StudentID)
	case "display_name":
		return strings.Compare(strings.ToLower(a.DisplayName), strings.ToLower(b.DisplayName))
	case "email":
		return strings.Compare(a.Email, b.Email)
	case "created_at":
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			return -1
		case a.CreatedAt.After(b.CreatedAt):
			return 1
		}
	}
	return 0
}

func (repo *userRepository) UpdateProfile(_ context.Context, p user.Profile) (user.Profile, error) {
	tbl := repo.tbl()
	tbl.Lock()
	defer tbl.Unlock()

	orig, ok := tbl.table[p.UID]
	if !ok {
		return user.Profile{}, user.ErrNotFound
	}
	p.CreatedAt = orig.CreatedAt
	p.WelcomePending = orig.WelcomePending
	tbl.table[p.UID] = &p
	return p, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
