// Package mongostore implements the repositories on MongoDB.
package mongostore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	profiles      = "profiles"
	tasks         = "tasks"
	notifications = "notifications"
	assessments   = "assessments"
	counters      = "counters"
)

type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to uri and pings the primary.
func Open(ctx context.Context, uri, name string) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongo")
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "pinging mongo")
	}
	return &DB{client: client, db: client.Database(name)}, nil
}

func (db *DB) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

// Drop deletes the whole database.
func (db *DB) Drop(ctx context.Context) error {
	return db.db.Drop(ctx)
}

func (db *DB) coll(name string) *mongo.Collection {
	return db.db.Collection(name)
}

// EnsureIndexes creates the unique and lookup indexes. It is idempotent.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	indexes := map[string][]mongo.IndexModel{
		profiles: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "student_id", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		},
		tasks: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}, {Key: "seq", Value: 1}}},
		},
		notifications: {
			{Keys: bson.D{{Key: "student_id", Value: 1}, {Key: "seq", Value: -1}}},
		},
		assessments: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: unique},
		},
	}
	for coll, models := range indexes {
		if _, err := db.coll(coll).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "creating %s indexes", coll)
		}
	}
	return nil
}

type counterDoc struct {
	Name string `bson:"_id"`
	Seq  int64  `bson:"seq"`
}

func (db *DB) nextSequence(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc counterDoc
	err := db.coll(counters).
		FindOneAndUpdate(ctx, bson.M{"_id": name}, bson.M{"$inc": bson.M{"seq": int64(1)}}, opts).
		Decode(&doc)
	if err != nil {
		return 0, errors.Wrapf(err, "incrementing %q sequence", name)
	}
	return doc.Seq, nil
}

// inTransaction runs fn in a multi document transaction. Transactions need a replica set or a sharded cluster.
func (db *DB) inTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	sess, err := db.client.StartSession()
	if err != nil {
		return errors.Wrap(err, "starting session")
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// SeedCounter sets the current value of a sequence.
func (db *DB) SeedCounter(ctx context.Context, name string, value int64) error {
	_, err := db.coll(counters).UpdateOne(ctx,
		bson.M{"_id": name},
		bson.M{"$set": bson.M{"seq": value}},
		options.Update().SetUpsert(true))
	return errors.Wrapf(err, "seeding %q sequence", name)
}

// trapNoDocErr maps "no documents" errors to notFound.
func trapNoDocErr(err error, notFound error, msg string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notFound
	}
	return errors.Wrap(err, msg)
}
