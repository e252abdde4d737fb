package mongostore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/tasktrack/core/notification"
)

type notificationDoc struct {
	ID        string    `bson:"_id"`
	Type      string    `bson:"type"`
	Message   string    `bson:"message"`
	StudentID string    `bson:"student_id"`
	Read      bool      `bson:"read"`
	CreatedAt time.Time `bson:"created_at"`
	Seq       int64     `bson:"seq"`
}

func (d notificationDoc) notification() notification.Notification {
	return notification.Notification{
		ID:        d.ID,
		Type:      notification.Type(d.Type),
		Message:   d.Message,
		CreatedAt: d.CreatedAt.UTC(),
		Read:      d.Read,
		StudentID: d.StudentID,
	}
}

func notificationFilter(studentID string, unreadOnly bool, ids []string) bson.M {
	filter := bson.M{}
	if studentID != "" {
		filter["student_id"] = studentID
	}
	if unreadOnly {
		filter["read"] = false
	}
	if len(ids) > 0 {
		filter["_id"] = bson.M{"$in": ids}
	}
	return filter
}

type notificationRepository struct {
	db *DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) coll() *mongo.Collection { return repo.db.coll(notifications) }

func (repo *notificationRepository) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	seq, err := repo.db.nextSequence(ctx, "notification_rows")
	if err != nil {
		return notification.Notification{}, err
	}
	doc := notificationDoc{
		ID:        uuid.New().String(),
		Type:      string(n.Type),
		Message:   n.Message,
		StudentID: n.StudentID,
		CreatedAt: n.CreatedAt.UTC(),
		Seq:       seq,
	}
	if _, err = repo.coll().InsertOne(ctx, doc); err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return doc.notification(), nil
}

// QueryNotifications returns notifications newest first.
func (repo *notificationRepository) QueryNotifications(ctx context.Context, filter notification.QueryFilter) ([]notification.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	cur, err := repo.coll().Find(ctx, notificationFilter(filter.StudentID, filter.UnreadOnly, nil), opts)
	if err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	var docs []notificationDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding notifications")
	}
	out := make([]notification.Notification, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.notification())
	}
	return out, nil
}

func (repo *notificationRepository) MarkNotificationsRead(ctx context.Context, studentID string, ids ...string) error {
	res, err := repo.coll().UpdateMany(ctx,
		notificationFilter(studentID, false, ids),
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return errors.Wrap(err, "marking notifications read")
	}
	if len(ids) > 0 && res.MatchedCount == 0 {
		return notification.ErrNotFound
	}
	return nil
}
