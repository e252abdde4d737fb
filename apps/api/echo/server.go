package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/tasktrack/core"
	"github.com/trezcool/tasktrack/core/analytics"
	"github.com/trezcool/tasktrack/core/assessment"
	"github.com/trezcool/tasktrack/core/notification"
	"github.com/trezcool/tasktrack/core/task"
	"github.com/trezcool/tasktrack/core/user"
)

type (
	// Deps are the services the API is built upon.
	Deps struct {
		Conf            *core.Config
		Logger          core.Logger
		Validate        *validator.Validate
		Translator      ut.Translator
		MailSvc         core.EmailService
		UserSvc         *user.Service
		TaskSvc         *task.Service
		NotificationSvc *notification.Service
		AssessmentSvc   *assessment.Service
		DisableReqLogs  bool
	}

	Server struct {
		deps     Deps
		app      *echo.Echo
		auth     *Authenticator
		shutdown chan os.Signal
		errors   chan error
	}
)

func NewServer(deps Deps) *Server {
	vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Conf, "Conf"),
		vala.IsNotNil(deps.Logger, "Logger"),
		vala.IsNotNil(deps.Validate, "Validate"),
		vala.IsNotNil(deps.Translator, "Translator"),
		vala.IsNotNil(deps.MailSvc, "MailSvc"),
		vala.IsNotNil(deps.UserSvc, "UserSvc"),
		vala.IsNotNil(deps.TaskSvc, "TaskSvc"),
		vala.IsNotNil(deps.NotificationSvc, "NotificationSvc"),
		vala.IsNotNil(deps.AssessmentSvc, "AssessmentSvc"),
	).CheckAndPanic()

	s := &Server{
		deps:     deps,
		app:      echo.New(),
		auth:     NewAuthenticator(deps.Conf),
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := s.auth.Middleware()
	admin := adminMiddleware(s.deps.UserSvc)

	registerUserAPI(v1, jwt, admin, s)
	registerTaskAPI(v1, jwt, admin, s)
	registerNotificationAPI(v1, jwt, admin, s)
	registerAssessmentAPI(v1, jwt, admin, s)
	registerAnalyticsAPI(v1, jwt, admin, s)
}

// Auth gives access to the token issuer of the server.
func (s *Server) Auth() *Authenticator { return s.auth }

// Start listens until the server is shut down. Listener errors are sent to Errors().
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// SignalShutdown asks the owner of the server to shut it down gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}

// now returns the current instant in the calendar location of the tasks.
func (s *Server) now() time.Time {
	return s.deps.TaskSvc.Now()
}

// analyticsOptions reads the calendar settings, the anchor may be overridden by the "anchor" query param.
func (s *Server) analyticsOptions(ctx echo.Context) (analytics.Options, error) {
	anchor := ctx.QueryParam("anchor")
	if anchor == "" {
		anchor = s.deps.Conf.Tasks.MonthAnchor
	}
	policy, err := analytics.ParseAnchorPolicy(anchor)
	if err != nil {
		return analytics.Options{}, core.NewValidationError(err, core.FieldError{Field: "anchor", Error: err.Error()})
	}
	return analytics.Options{Anchor: policy, WeekStart: s.deps.Conf.Tasks.WeekStart}, nil
}
