package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/tasktrack/core/assessment"
)

type assessmentRepository struct {
	db *DB
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(db *DB) *assessmentRepository {
	return &assessmentRepository{db: db}
}

func (repo *assessmentRepository) CreateAssessmentIfAbsent(_ context.Context, a assessment.Assessment) (assessment.Assessment, bool, error) {
	tbl := repo.db.assessment
	tbl.Lock()
	defer tbl.Unlock()

	if existing, ok := tbl.table[a.UserID]; ok {
		return existing, false, nil
	}
	a.ID = uuid.New().String()
	tbl.table[a.UserID] = a
	return a, true, nil
}

func (repo *assessmentRepository) GetAssessmentByUser(_ context.Context, userID string) (assessment.Assessment, error) {
	tbl := repo.db.assessment
	tbl.RLock()
	defer tbl.RUnlock()

	if a, ok := tbl.table[userID]; ok {
		return a, nil
	}
	return assessment.Assessment{}, assessment.ErrNotFound
}

func (repo *assessmentRepository) ClearNotificationPending(_ context.Context, id string) error {
	tbl := repo.db.assessment
	tbl.Lock()
	defer tbl.Unlock()

	for uid, a := range tbl.table {
		if a.ID == id {
			a.NotificationPending = false
			tbl.table[uid] = a
			return nil
		}
	}
	return assessment.ErrNotFound
}
