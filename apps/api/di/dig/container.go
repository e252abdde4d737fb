package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/tasktrack/apps/api/echo"
	"github.com/trezcool/tasktrack/core"
	"github.com/trezcool/tasktrack/core/assessment"
	"github.com/trezcool/tasktrack/core/notification"
	"github.com/trezcool/tasktrack/core/task"
	"github.com/trezcool/tasktrack/core/user"
	emailsvc "github.com/trezcool/tasktrack/services/email"
	logsvc "github.com/trezcool/tasktrack/services/logger"
	"github.com/trezcool/tasktrack/storage/database"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type ServerParams struct {
	dig.In
	Conf            *core.Config
	Logger          core.Logger
	Validate        *validator.Validate
	Translator      ut.Translator
	MailSvc         core.EmailService
	UserSvc         *user.Service
	TaskSvc         *task.Service
	NotificationSvc *notification.Service
	AssessmentSvc   *assessment.Service
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newRepositories(conf *core.Config, loggerParam DBLoggerParam) *database.Repositories {
	repos, err := database.OpenRepositories(context.Background(), conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up %s database: %v", conf.Database.Engine, err), err)
	}
	loggerParam.Logger.Info(fmt.Sprintf("using %s database", repos.Engine))
	return repos
}

func newStores(repos *database.Repositories) (user.Repository, task.Repository, notification.Repository, assessment.Repository) {
	return repos.Users, repos.Tasks, repos.Notifications, repos.Assessments
}

func newValidation() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

func newNotifiers(svc *notification.Service) (user.Notifier, task.Notifier, assessment.Notifier) {
	return svc, svc, svc
}

func newTaskService(repo task.Repository, notifier task.Notifier, logger core.Logger, conf *core.Config) *task.Service {
	return task.NewService(repo, notifier, logger, conf.Tasks.Location())
}

func newProfileFlagger(svc *user.Service) assessment.ProfileFlagger { return svc }

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.Deps{
		Conf:            p.Conf,
		Logger:          p.Logger,
		Validate:        p.Validate,
		Translator:      p.Translator,
		MailSvc:         p.MailSvc,
		UserSvc:         p.UserSvc,
		TaskSvc:         p.TaskSvc,
		NotificationSvc: p.NotificationSvc,
		AssessmentSvc:   p.AssessmentSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newStores))
	must(c.Provide(emailsvc.NewService))
	must(c.Provide(newValidation))
	must(c.Provide(notification.NewService))
	must(c.Provide(newNotifiers))
	must(c.Provide(user.NewService))
	must(c.Provide(newTaskService))
	must(c.Provide(newProfileFlagger))
	must(c.Provide(assessment.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
