package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/tasktrack/core"
	"github.com/trezcool/tasktrack/core/assessment"
	"github.com/trezcool/tasktrack/core/notification"
	"github.com/trezcool/tasktrack/core/task"
	"github.com/trezcool/tasktrack/core/user"
	"github.com/trezcool/tasktrack/storage/database/memstore"
	"github.com/trezcool/tasktrack/storage/database/mongostore"
	"github.com/trezcool/tasktrack/storage/database/sqlstore"
)

// Repositories bundles one repository per aggregate, all backed by the same engine.
type Repositories struct {
	Engine        string
	Users         user.Repository
	Tasks         task.Repository
	Notifications notification.Repository
	Assessments   assessment.Repository
	SQL           *sqlx.DB // nil unless the engine is SQL

	close func(ctx context.Context) error
}

func (r *Repositories) Close(ctx context.Context) error {
	if r.close == nil {
		return nil
	}
	return r.close(ctx)
}

// NewMemoryRepositories returns repositories over a fresh memstore.
func NewMemoryRepositories() *Repositories {
	db := memstore.Open()
	return &Repositories{
		Engine:        core.EngineMemory,
		Users:         memstore.NewUserRepository(db),
		Tasks:         memstore.NewTaskRepository(db),
		Notifications: memstore.NewNotificationRepository(db),
		Assessments:   memstore.NewAssessmentRepository(db),
	}
}

// OpenRepositories sets up the engine named by conf.Database.Engine.
// SQL databases are created (postgres) and migrated; mongo gets its indexes.
func OpenRepositories(ctx context.Context, conf *core.Config) (*Repositories, error) {
	switch conf.Database.Engine {
	case core.EngineMemory:
		return NewMemoryRepositories(), nil

	case core.EnginePostgres, core.EngineSQLite:
		if err := CreateIfNotExist(conf); err != nil {
			return nil, err
		}
		db, err := Open(conf)
		if err != nil {
			return nil, errors.Wrap(err, "opening database")
		}
		if err = Ping(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		if err = Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &Repositories{
			Engine:        conf.Database.Engine,
			Users:         sqlstore.NewUserRepository(db),
			Tasks:         sqlstore.NewTaskRepository(db),
			Notifications: sqlstore.NewNotificationRepository(db),
			Assessments:   sqlstore.NewAssessmentRepository(db),
			SQL:           db,
			close:         func(context.Context) error { return db.Close() },
		}, nil

	case core.EngineMongo:
		db, err := mongostore.Open(ctx, conf.Database.URI, conf.Database.Name)
		if err != nil {
			return nil, err
		}
		if err = db.EnsureIndexes(ctx); err != nil {
			_ = db.Close(ctx)
			return nil, err
		}
		return &Repositories{
			Engine:        core.EngineMongo,
			Users:         mongostore.NewUserRepository(db),
			Tasks:         mongostore.NewTaskRepository(db),
			Notifications: mongostore.NewNotificationRepository(db),
			Assessments:   mongostore.NewAssessmentRepository(db),
			close:         db.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown database engine %q", conf.Database.Engine)
	}
}
