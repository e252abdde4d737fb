package mongostore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/tasktrack/core/task"
)

type taskDoc struct {
	ID                      string    `bson:"_id"`
	UserID                  string    `bson:"user_id"`
	Title                   string    `bson:"title"`
	Description             string    `bson:"description"`
	DueDate                 time.Time `bson:"due_date"`
	Priority                string    `bson:"priority"`
	Completed               bool      `bson:"completed"`
	CompletedAt             time.Time `bson:"completed_at,omitempty"`
	OverdueNotificationSent bool      `bson:"overdue_notification_sent"`
	CreatedAt               time.Time `bson:"created_at"`
	UpdatedAt               time.Time `bson:"updated_at"`
	Seq                     int64     `bson:"seq"`
}

func toTaskDoc(t task.Task) taskDoc {
	return taskDoc{
		ID:                      t.ID,
		UserID:                  t.UserID,
		Title:                   t.Title,
		Description:             t.Description,
		DueDate:                 t.DueDate.UTC(),
		Priority:                string(t.Priority),
		Completed:               t.Completed,
		CompletedAt:             t.CompletedAt.UTC(),
		OverdueNotificationSent: t.OverdueNotificationSent,
		CreatedAt:               t.CreatedAt.UTC(),
		UpdatedAt:               t.UpdatedAt.UTC(),
	}
}

func (d taskDoc) task() task.Task {
	return task.Task{
		ID:                      d.ID,
		UserID:                  d.UserID,
		Title:                   d.Title,
		Description:             d.Description,
		DueDate:                 d.DueDate.UTC(),
		Priority:                task.Priority(d.Priority),
		Completed:               d.Completed,
		CompletedAt:             d.CompletedAt.UTC(),
		OverdueNotificationSent: d.OverdueNotificationSent,
		CreatedAt:               d.CreatedAt.UTC(),
		UpdatedAt:               d.UpdatedAt.UTC(),
	}
}

func taskFilter(qf task.QueryFilter) bson.D {
	filter := bson.D{}
	if qf.UserID != "" {
		filter = append(filter, bson.E{Key: "user_id", Value: qf.UserID})
	}
	if qf.Completed != nil {
		filter = append(filter, bson.E{Key: "completed", Value: *qf.Completed})
	}
	return filter
}

type taskRepository struct {
	db *DB
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *DB) *taskRepository {
	return &taskRepository{db: db}
}

func (repo *taskRepository) coll() *mongo.Collection { return repo.db.coll(tasks) }

func (repo *taskRepository) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	t.ID = uuid.New().String()
	doc := toTaskDoc(t)
	seq, err := repo.db.nextSequence(ctx, "task_rows")
	if err != nil {
		return task.Task{}, err
	}
	doc.Seq = seq
	if _, err = repo.coll().InsertOne(ctx, doc); err != nil {
		return task.Task{}, errors.Wrap(err, "inserting task")
	}
	return doc.task(), nil
}

func (repo *taskRepository) GetTask(ctx context.Context, id string) (task.Task, error) {
	var doc taskDoc
	if err := repo.coll().FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return task.Task{}, trapNoDocErr(err, task.ErrNotFound, "getting task")
	}
	return doc.task(), nil
}

// QueryTasks returns tasks in creation order.
func (repo *taskRepository) QueryTasks(ctx context.Context, filter task.QueryFilter) ([]task.Task, error) {
	sort := bson.D{{Key: "created_at", Value: 1}, {Key: "seq", Value: 1}}
	cur, err := repo.coll().Find(ctx, taskFilter(filter), options.Find().SetSort(sort))
	if err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	var docs []taskDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding tasks")
	}
	out := make([]task.Task, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.task())
	}
	return out, nil
}

func (repo *taskRepository) UpdateTask(ctx context.Context, t task.Task) (task.Task, error) {
	doc := toTaskDoc(t)
	set := bson.M{
		"title":                     doc.Title,
		"description":               doc.Description,
		"due_date":                  doc.DueDate,
		"priority":                  doc.Priority,
		"completed":                 doc.Completed,
		"overdue_notification_sent": doc.OverdueNotificationSent,
		"updated_at":                doc.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if t.CompletedAt.IsZero() {
		update["$unset"] = bson.M{"completed_at": ""}
	} else {
		set["completed_at"] = doc.CompletedAt
	}

	res, err := repo.coll().UpdateOne(ctx, bson.M{"_id": t.ID}, update)
	if err != nil {
		return task.Task{}, errors.Wrap(err, "updating task")
	}
	if res.MatchedCount == 0 {
		return task.Task{}, task.ErrNotFound
	}
	return repo.GetTask(ctx, t.ID)
}

func (repo *taskRepository) MarkOverdueNotified(ctx context.Context, id string) error {
	res, err := repo.coll().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"overdue_notification_sent": true}})
	if err != nil {
		return errors.Wrap(err, "marking task overdue notified")
	}
	if res.MatchedCount == 0 {
		return task.ErrNotFound
	}
	return nil
}

func (repo *taskRepository) DeleteTask(ctx context.Context, id string) error {
	res, err := repo.coll().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "deleting task")
	}
	if res.DeletedCount == 0 {
		return task.ErrNotFound
	}
	return nil
}
