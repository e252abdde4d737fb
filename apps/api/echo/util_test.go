package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/tasktrack/apps/api/echo"
	"github.com/trezcool/tasktrack/core"
	"github.com/trezcool/tasktrack/core/assessment"
	"github.com/trezcool/tasktrack/core/notification"
	"github.com/trezcool/tasktrack/core/task"
	"github.com/trezcool/tasktrack/core/user"
	"github.com/trezcool/tasktrack/services/email"
	"github.com/trezcool/tasktrack/services/logger"
	"github.com/trezcool/tasktrack/storage/database"
	"github.com/trezcool/tasktrack/tests"
)

const testPassword = "S3cret-pass"

// fixed clock of the task calendar: Friday 15 March 2024, 10:00 UTC
var now = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)

type httpErr struct {
	Error string `json:"error"`
}

type fixture struct {
	srv    *echoapi.Server
	repos  *database.Repositories
	notifs *notification.Service
	mail   *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) fixture {
	t.Helper()
	task.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { task.NowFunc = time.Now })

	conf := core.NewTestConfig()
	logger := logsvc.NewDiscardLogger()
	core.ParseEmailTemplates(conf, logger)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	repos := database.NewMemoryRepositories()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	notifSvc := notification.NewService(repos.Notifications)
	usrSvc := user.NewService(repos.Users, notifSvc, mailSvc, logger, conf)

	srv := echoapi.NewServer(echoapi.Deps{
		Conf:            conf,
		Logger:          logger,
		Validate:        validate,
		Translator:      translator,
		MailSvc:         mailSvc,
		UserSvc:         usrSvc,
		TaskSvc:         task.NewService(repos.Tasks, notifSvc, logger, conf.Tasks.Location()),
		NotificationSvc: notifSvc,
		AssessmentSvc:   assessment.NewService(repos.Assessments, notifSvc, usrSvc, logger),
		DisableReqLogs:  true,
	})
	return fixture{srv: srv, repos: repos, notifs: notifSvc, mail: mailSvc}
}

// account stores a profile and returns it with a valid token.
func (f fixture) account(t *testing.T, name, email string, role user.Role) (user.Profile, string) {
	t.Helper()
	p := testutil.CreateProfile(t, f.repos.Users, name, email, testPassword, role)
	token, err := f.srv.Auth().GenerateToken(p)
	require.NoError(t, err)
	return p, token
}

func (f fixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func requireCode(t *testing.T, rec *httptest.ResponseRecorder, code int) {
	t.Helper()
	require.Equalf(t, code, rec.Code, "body: %s", rec.Body.String())
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var he httpErr
	decode(t, rec, &he)
	return he.Error
}
