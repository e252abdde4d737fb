package sqlstore

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/tasktrack/core/assessment"
)

type assessmentRow struct {
	ID          string `db:"id"`
	UserID      string `db:"user_id"`
	SubmittedAt int64  `db:"submitted_at"`
	Responses   string `db:"responses"` // kind tagged JSON
	Pending     bool   `db:"notification_pending"`
}

func (r assessmentRow) assessment() (assessment.Assessment, error) {
	responses, err := assessment.UnmarshalResponses([]byte(r.Responses))
	if err != nil {
		return assessment.Assessment{}, errors.Wrap(err, "decoding assessment responses")
	}
	return assessment.Assessment{
		ID:          r.ID,
		UserID:      r.UserID,
		SubmittedAt: fromMillis(r.SubmittedAt),
		Responses:   responses,

		NotificationPending: r.Pending,
	}, nil
}

type assessmentRepository struct {
	db *sqlx.DB
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(db *sqlx.DB) *assessmentRepository {
	return &assessmentRepository{db: db}
}

func (repo *assessmentRepository) CreateAssessmentIfAbsent(ctx context.Context, a assessment.Assessment) (assessment.Assessment, bool, error) {
	data, err := assessment.MarshalResponses(a.Responses)
	if err != nil {
		return assessment.Assessment{}, false, errors.Wrap(err, "encoding assessment responses")
	}
	row := assessmentRow{
		ID:          uuid.New().String(),
		UserID:      a.UserID,
		SubmittedAt: millis(a.SubmittedAt),
		Responses:   string(data),
		Pending:     a.NotificationPending,
	}
	q := `INSERT INTO assessments (id, user_id, submitted_at, responses, notification_pending)
		VALUES (:id, :user_id, :submitted_at, :responses, :notification_pending)
		ON CONFLICT (user_id) DO NOTHING`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return assessment.Assessment{}, false, errors.Wrap(err, "inserting assessment")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return assessment.Assessment{}, false, errors.Wrap(err, "inserting assessment")
	}
	saved, err := repo.GetAssessmentByUser(ctx, a.UserID)
	return saved, n > 0, err
}

func (repo *assessmentRepository) GetAssessmentByUser(ctx context.Context, userID string) (assessment.Assessment, error) {
	var row assessmentRow
	q := repo.db.Rebind("SELECT id, user_id, submitted_at, responses, notification_pending FROM assessments WHERE user_id = ?")
	if err := repo.db.GetContext(ctx, &row, q, userID); err != nil {
		return assessment.Assessment{}, trapNoRowsErr(err, assessment.ErrNotFound, "getting assessment")
	}
	return row.assessment()
}

func (repo *assessmentRepository) ClearNotificationPending(ctx context.Context, id string) error {
	q := repo.db.Rebind("UPDATE assessments SET notification_pending = ? WHERE id = ?")
	res, err := repo.db.ExecContext(ctx, q, false, id)
	if err != nil {
		return errors.Wrap(err, "clearing notification mark")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return assessment.ErrNotFound
	}
	return nil
}
