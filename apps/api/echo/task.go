package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tasktrack/core"
	"github.com/trezcool/tasktrack/core/analytics"
	"github.com/trezcool/tasktrack/core/task"
	"github.com/trezcool/tasktrack/core/user"
)

type taskApi struct {
	svc      *task.Service
	usrSvc   *user.Service
	logger   core.Logger
	validate *validator.Validate
}

func registerTaskAPI(g *echo.Group, jwt, admin echo.MiddlewareFunc, s *Server) {
	api := taskApi{
		svc:      s.deps.TaskSvc,
		usrSvc:   s.deps.UserSvc,
		logger:   s.deps.Logger,
		validate: s.deps.Validate,
	}

	tg := g.Group("/tasks", jwt)
	tg.GET("", api.query)
	tg.POST("", api.create)
	tg.GET("/history", api.history)
	tg.PUT("/:id", api.update)
	tg.DELETE("/:id", api.destroy)
	tg.POST("/:id/toggle", api.toggle)

	ag := g.Group("/admin", jwt, admin)
	ag.GET("/tasks", api.queryAll)
	ag.GET("/students/:uid/tasks", api.queryStudent, studentParamMiddleware(api.usrSvc))
}

// scanOverdue runs the overdue scan of the caller. Failures are logged only.
func (api *taskApi) scanOverdue(ctx echo.Context, p user.Profile) {
	if _, err := api.svc.ScanOverdue(ctx.Request().Context(), p.UID, api.svc.Now()); err != nil {
		api.logger.Error(fmt.Sprintf("scanning overdue tasks: %v", err), err, p.Person())
	}
}

// Handlers

func (api *taskApi) query(ctx echo.Context) error {
	p, err := getContextProfile(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	api.scanOverdue(ctx, p)

	tasks, err := api.svc.QueryByUser(ctx.Request().Context(), p.UID)
	if err != nil {
		return errors.Wrap(err, "querying tasks")
	}
	if ctx.QueryParam("sort") == "oldest" {
		tasks = analytics.SortOldestFirst(tasks)
	} else {
		tasks = analytics.SortNewestFirst(tasks)
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *taskApi) history(ctx echo.Context) error {
	p, err := getContextProfile(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	tasks, err := api.svc.QueryByUser(ctx.Request().Context(), p.UID)
	if err != nil {
		return errors.Wrap(err, "querying tasks")
	}
	return ctx.JSON(http.StatusOK, analytics.SortHistory(tasks))
}

func (api *taskApi) create(ctx echo.Context) error {
	p, err := getContextProfile(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data taskRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to taskRequest")
	}
	nt, err := data.newTask(api.svc.Location())
	if err != nil {
		return err
	}
	if err := nt.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.Create(ctx.Request().Context(), p.UID, nt)
	if err != nil {
		return errors.Wrap(err, "creating task")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *taskApi) update(ctx echo.Context) error {
	p, err := getContextProfile(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data taskUpdateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to taskUpdateRequest")
	}
	ut, err := data.updateTask(api.svc.Location())
	if err != nil {
		return err
	}
	if err := ut.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.Update(ctx.Request().Context(), p.UID, ctx.Param("id"), ut)
	if err != nil {
		return errors.Wrap(err, "updating task")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *taskApi) destroy(ctx echo.Context) error {
	p, err := getContextProfile(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), p.UID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting task")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *taskApi) toggle(ctx echo.Context) error {
	p, err := getContextProfile(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	t, err := api.svc.ToggleComplete(ctx.Request().Context(), p.UID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "toggling task")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *taskApi) queryAll(ctx echo.Context) error {
	tasks, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying tasks")
	}
	return ctx.JSON(http.StatusOK, analytics.SortNewestFirst(tasks))
}

// queryStudent returns the rollup of one student with the tasks still to do, in the order of the student dashboard.
func (api *taskApi) queryStudent(ctx echo.Context) error {
	p, ok := ctx.Get("object").(user.Profile)
	if !ok {
		return errHttpNotFound
	}
	tasks, err := api.svc.QueryByUser(ctx.Request().Context(), p.UID)
	if err != nil {
		return errors.Wrap(err, "querying tasks")
	}
	return ctx.JSON(http.StatusOK, StudentTasksResponse{
		Student: p,
		Rollup:  analytics.StudentRollup(tasks, p.UID, api.svc.Now()),
		Active:  analytics.ActiveTasks(tasks),
	})
}

type StudentTasksResponse struct {
	Student user.Profile     `json:"student"`
	Rollup  analytics.Rollup `json:"rollup"`
	Active  []task.Task      `json:"active"`
}
