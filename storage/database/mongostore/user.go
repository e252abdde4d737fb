package mongostore

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/tasktrack/core"
	"github.com/trezcool/tasktrack/core/user"
)

var profileSortKeys = map[string]string{
	"created_at":   "created_at",
	"student_id":   "student_id",
	"display_name": "display_name",
	"email":        "email",
}

type profileDoc struct {
	UID                    string    `bson:"_id"`
	StudentID              string    `bson:"student_id,omitempty"`
	Email                  string    `bson:"email"`
	DisplayName            string    `bson:"display_name"`
	PhotoURL               string    `bson:"photo_url"`
	Role                   string    `bson:"role"`
	Bio                    string    `bson:"bio"`
	PasswordHash           []byte    `bson:"password_hash,omitempty"`
	RequiresPasswordChange bool      `bson:"requires_password_change"`
	AssessmentCompleted    bool      `bson:"assessment_completed"`
	CreatedAt              time.Time `bson:"created_at"`
	UpdatedAt              time.Time `bson:"updated_at"`
	LastLogin              time.Time `bson:"last_login,omitempty"`
	WelcomePending         bool      `bson:"welcome_pending"`
}

func toProfileDoc(p user.Profile) profileDoc {
	return profileDoc{
		UID:                    p.UID,
		StudentID:              p.StudentID,
		Email:                  p.Email,
		DisplayName:            p.DisplayName,
		PhotoURL:               p.PhotoURL,
		Role:                   string(p.Role),
		Bio:                    p.Bio,
		PasswordHash:           p.PasswordHash,
		RequiresPasswordChange: p.RequiresPasswordChange,
		AssessmentCompleted:    p.AssessmentCompleted,
		CreatedAt:              p.CreatedAt.UTC(),
		UpdatedAt:              p.UpdatedAt.UTC(),
		LastLogin:              p.LastLogin.UTC(),
		WelcomePending:         p.WelcomePending,
	}
}

func (d profileDoc) profile() user.Profile {
	return user.Profile{
		UID:                    d.UID,
		StudentID:              d.StudentID,
		Email:                  d.Email,
		DisplayName:            d.DisplayName,
		PhotoURL:               d.PhotoURL,
		Role:                   user.Role(d.Role),
		Bio:                    d.Bio,
		CreatedAt:              d.CreatedAt.UTC(),
		UpdatedAt:              d.UpdatedAt.UTC(),
		LastLogin:              d.LastLogin.UTC(),
		RequiresPasswordChange: d.RequiresPasswordChange,
		AssessmentCompleted:    d.AssessmentCompleted,
		PasswordHash:           d.PasswordHash,
		WelcomePending:         d.WelcomePending,
	}
}

// profileFilter translates a user.QueryFilter into a mongo filter document.
func profileFilter(qf user.QueryFilter) bson.D {
	filter := bson.D{}
	if qf.Role != "" {
		filter = append(filter, bson.E{Key: "role", Value: string(qf.Role)})
	}
	if qf.RequiresPasswordChange != nil {
		filter = append(filter, bson.E{Key: "requires_password_change", Value: *qf.RequiresPasswordChange})
	}
	if qf.Search != "" {
		rx := bson.M{"$regex": regexp.QuoteMeta(qf.Search), "$options": "i"}
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.M{"display_name": rx},
			bson.M{"email": rx},
			bson.M{"student_id": rx},
		}})
	}
	return filter
}

func profileSort(ordering []core.DBOrdering) (bson.D, error) {
	sort := bson.D{}
	for _, ord := range ordering {
		key, ok := profileSortKeys[ord.Field]
		if !ok {
			return nil, errors.Errorf("cannot order profiles by %q", ord.Field)
		}
		dir := -1
		if ord.Ascending {
			dir = 1
		}
		sort = append(sort, bson.E{Key: key, Value: dir})
	}
	return append(sort, bson.E{Key: "created_at", Value: 1}, bson.E{Key: "_id", Value: 1}), nil
}

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) coll() *mongo.Collection { return repo.db.coll(profiles) }

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUIDs ...string) error {
	filter := bson.M{"email": email}
	if len(excludedUIDs) > 0 {
		filter["_id"] = bson.M{"$nin": excludedUIDs}
	}
	n, err := repo.coll().CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if n > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateProfile(ctx context.Context, p user.Profile, sid user.StudentIDFunc) (user.Profile, error) {
	if p.UID == "" {
		p.UID = uuid.New().String()
	}
	insert := func(ctx context.Context) error {
		if sid != nil {
			n, err := repo.db.nextSequence(ctx, user.StudentSequence)
			if err != nil {
				return err
			}
			p.StudentID = sid(n)
		}
		if _, err := repo.coll().InsertOne(ctx, toProfileDoc(p)); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return user.ErrEmailExists
			}
			return errors.Wrap(err, "inserting profile")
		}
		return nil
	}

	var err error
	if sid == nil {
		err = insert(ctx)
	} else {
		err = repo.db.inTransaction(ctx, func(sc mongo.SessionContext) error { return insert(sc) })
	}
	if err != nil {
		return user.Profile{}, err
	}
	return repo.GetProfile(ctx, p.UID)
}

func (repo *userRepository) CreateProfileIfAbsent(ctx context.Context, p user.Profile, sid user.StudentIDFunc) (user.Profile, bool, error) {
	var created bool
	err := repo.db.inTransaction(ctx, func(sc mongo.SessionContext) error {
		created = false
		n, err := repo.coll().CountDocuments(sc, bson.M{"_id": p.UID}, options.Count().SetLimit(1))
		if err != nil {
			return errors.Wrap(err, "checking profile")
		}
		if n > 0 {
			return nil
		}
		doc := p
		if sid != nil {
			seq, err := repo.db.nextSequence(sc, user.StudentSequence)
			if err != nil {
				return err
			}
			doc.StudentID = sid(seq)
		}
		if _, err := repo.coll().InsertOne(sc, toProfileDoc(doc)); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return user.ErrEmailExists
			}
			return errors.Wrap(err, "inserting profile")
		}
		created = true
		return nil
	})
	if err != nil {
		return user.Profile{}, false, err
	}
	saved, err := repo.GetProfile(ctx, p.UID)
	return saved, created, err
}

func (repo *userRepository) AssignStudentID(ctx context.Context, uid string, sid user.StudentIDFunc) (user.Profile, error) {
	err := repo.db.inTransaction(ctx, func(sc mongo.SessionContext) error {
		var doc profileDoc
		if err := repo.coll().FindOne(sc, bson.M{"_id": uid}).Decode(&doc); err != nil {
			return trapNoDocErr(err, user.ErrNotFound, "getting profile")
		}
		if doc.StudentID != "" {
			return nil
		}
		n, err := repo.db.nextSequence(sc, user.StudentSequence)
		if err != nil {
			return err
		}
		_, err = repo.coll().UpdateOne(sc, bson.M{"_id": uid}, bson.M{"$set": bson.M{"student_id": sid(n)}})
		return errors.Wrap(err, "assigning student ID")
	})
	if err != nil {
		return user.Profile{}, err
	}
	return repo.GetProfile(ctx, uid)
}

func (repo *userRepository) ClearWelcomePending(ctx context.Context, uid string) error {
	res, err := repo.coll().UpdateOne(ctx, bson.M{"_id": uid}, bson.M{"$set": bson.M{"welcome_pending": false}})
	if err != nil {
		return errors.Wrap(err, "clearing welcome mark")
	}
	if res.MatchedCount == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo *userRepository) findOne(ctx context.Context, filter bson.M, msg string) (user.Profile, error) {
	var doc profileDoc
	if err := repo.coll().FindOne(ctx, filter).Decode(&doc); err != nil {
		return user.Profile{}, trapNoDocErr(err, user.ErrNotFound, msg)
	}
	return doc.profile(), nil
}

func (repo *userRepository) GetProfile(ctx context.Context, uid string) (user.Profile, error) {
	return repo.findOne(ctx, bson.M{"_id": uid}, "getting profile")
}

func (repo *userRepository) GetProfileByEmail(ctx context.Context, email string) (user.Profile, error) {
	return repo.findOne(ctx, bson.M{"email": email}, "getting profile by email")
}

func (repo *userRepository) QueryProfiles(ctx context.Context, filter user.QueryFilter, ordering ...core.DBOrdering) ([]user.Profile, error) {
	sort, err := profileSort(ordering)
	if err != nil {
		return nil, err
	}
	cur, err := repo.coll().Find(ctx, profileFilter(filter), options.Find().SetSort(sort))
	if err != nil {
		return nil, errors.Wrap(err, "querying profiles")
	}
	var docs []profileDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding profiles")
	}
	out := make([]user.Profile, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.profile())
	}
	return out, nil
}

func (repo *userRepository) UpdateProfile(ctx context.Context, p user.Profile) (user.Profile, error) {
	doc := toProfileDoc(p)
	set := bson.M{
		"email":                    doc.Email,
		"display_name":             doc.DisplayName,
		"photo_url":                doc.PhotoURL,
		"role":                     doc.Role,
		"bio":                      doc.Bio,
		"requires_password_change": doc.RequiresPasswordChange,
		"assessment_completed":     doc.AssessmentCompleted,
		"updated_at":               doc.UpdatedAt,
		"last_login":               doc.LastLogin,
	}
	unset := bson.M{}
	if doc.StudentID != "" {
		set["student_id"] = doc.StudentID
	} else {
		unset["student_id"] = ""
	}
	if len(doc.PasswordHash) > 0 {
		set["password_hash"] = doc.PasswordHash
	} else {
		unset["password_hash"] = ""
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := repo.coll().UpdateOne(ctx, bson.M{"_id": p.UID}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.Profile{}, user.ErrEmailExists
		}
		return user.Profile{}, errors.Wrap(err, "updating profile")
	}
	if res.MatchedCount == 0 {
		return user.Profile{}, user.ErrNotFound
	}
	return repo.GetProfile(ctx, p.UID)
}
