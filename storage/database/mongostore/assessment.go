package mongostore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/tasktrack/core/assessment"
)

type assessmentDoc struct {
	ID          string    `bson:"_id"`
	UserID      string    `bson:"user_id"`
	SubmittedAt time.Time `bson:"submitted_at"`
	Responses   string    `bson:"responses"` // kind tagged JSON
	Pending     bool      `bson:"notification_pending"`
}

func (d assessmentDoc) assessment() (assessment.Assessment, error) {
	responses, err := assessment.UnmarshalResponses([]byte(d.Responses))
	if err != nil {
		return assessment.Assessment{}, errors.Wrap(err, "decoding assessment responses")
	}
	return assessment.Assessment{
		ID:          d.ID,
		UserID:      d.UserID,
		SubmittedAt: d.SubmittedAt.UTC(),
		Responses:   responses,

		NotificationPending: d.Pending,
	}, nil
}

type assessmentRepository struct {
	db *DB
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(db *DB) *assessmentRepository {
	return &assessmentRepository{db: db}
}

func (repo *assessmentRepository) CreateAssessmentIfAbsent(ctx context.Context, a assessment.Assessment) (assessment.Assessment, bool, error) {
	data, err := assessment.MarshalResponses(a.Responses)
	if err != nil {
		return assessment.Assessment{}, false, errors.Wrap(err, "encoding assessment responses")
	}
	doc := bson.M{
		"_id":          uuid.New().String(),
		"submitted_at": a.SubmittedAt.UTC(),
		"responses":    string(data),

		"notification_pending": a.NotificationPending,
	}
	res, err := repo.db.coll(assessments).UpdateOne(ctx,
		bson.M{"user_id": a.UserID},
		bson.M{"$setOnInsert": doc},
		options.Update().SetUpsert(true))
	if err != nil {
		return assessment.Assessment{}, false, errors.Wrap(err, "upserting assessment")
	}
	saved, err := repo.GetAssessmentByUser(ctx, a.UserID)
	return saved, res.UpsertedCount > 0, err
}

func (repo *assessmentRepository) GetAssessmentByUser(ctx context.Context, userID string) (assessment.Assessment, error) {
	var doc assessmentDoc
	if err := repo.db.coll(assessments).FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc); err != nil {
		return assessment.Assessment{}, trapNoDocErr(err, assessment.ErrNotFound, "getting assessment")
	}
	return doc.assessment()
}

func (repo *assessmentRepository) ClearNotificationPending(ctx context.Context, id string) error {
	res, err := repo.db.coll(assessments).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"notification_pending": false}})
	if err != nil {
		return errors.Wrap(err, "clearing notification mark")
	}
	if res.MatchedCount == 0 {
		return assessment.ErrNotFound
	}
	return nil
}
