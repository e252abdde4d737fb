package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tasktrack/core"
	"github.com/trezcool/tasktrack/core/analytics"
	"github.com/trezcool/tasktrack/core/task"
	"github.com/trezcool/tasktrack/core/user"
)

type analyticsApi struct {
	server  *Server
	taskSvc *task.Service
	usrSvc  *user.Service
	logger  core.Logger
}

func registerAnalyticsAPI(g *echo.Group, jwt, admin echo.MiddlewareFunc, s *Server) {
	api := analyticsApi{
		server:  s,
		taskSvc: s.deps.TaskSvc,
		usrSvc:  s.deps.UserSvc,
		logger:  s.deps.Logger,
	}

	g.GET("/dashboard", api.dashboard, jwt)

	ag := g.Group("/admin", jwt, admin)
	ag.GET("/overview", api.overview)
	ag.GET("/reports/students.csv", api.studentReport)
}

func (api *analyticsApi) dashboard(ctx echo.Context) error {
	p, err := getContextProfile(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	opts, err := api.server.analyticsOptions(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	now := api.server.now()

	if _, err := api.taskSvc.ScanOverdue(rctx, p.UID, now); err != nil {
		api.logger.Error(fmt.Sprintf("scanning overdue tasks: %v", err), err, p.Person())
	}
	tasks, err := api.taskSvc.QueryByUser(rctx, p.UID)
	if err != nil {
		return errors.Wrap(err, "querying tasks")
	}
	return ctx.JSON(http.StatusOK, analytics.BuildStudentDashboard(tasks, now, opts))
}

// population loads every profile and every task.
func (api *analyticsApi) population(ctx echo.Context) ([]user.Profile, []task.Task, error) {
	rctx := ctx.Request().Context()
	profiles, err := api.usrSvc.Query(rctx, user.QueryFilter{})
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying users")
	}
	tasks, err := api.taskSvc.QueryAll(rctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying tasks")
	}
	return profiles, tasks, nil
}

func (api *analyticsApi) overview(ctx echo.Context) error {
	opts, err := api.server.analyticsOptions(ctx)
	if err != nil {
		return err
	}
	profiles, tasks, err := api.population(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, analytics.BuildAdminOverview(profiles, tasks, api.server.now(), opts))
}

func (api *analyticsApi) studentReport(ctx echo.Context) error {
	filter, err := analytics.ParseReportFilter(ctx.QueryParam("filter"))
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "filter", Error: err.Error()})
	}
	profiles, tasks, err := api.population(ctx)
	if err != nil {
		return err
	}

	now := api.server.now()
	var buf bytes.Buffer
	if _, err := analytics.WriteStudentReport(&buf, profiles, tasks, filter, now); err != nil {
		return errors.Wrap(err, "writing report")
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", analytics.ReportFilename(filter, now)))
	return ctx.Blob(http.StatusOK, analytics.ReportContentType, buf.Bytes())
}
