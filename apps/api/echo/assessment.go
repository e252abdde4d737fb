package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tasktrack/core/assessment"
	"github.com/trezcool/tasktrack/core/user"
)

type assessmentApi struct {
	svc      *assessment.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerAssessmentAPI(g *echo.Group, jwt, admin echo.MiddlewareFunc, s *Server) {
	api := assessmentApi{
		svc:      s.deps.AssessmentSvc,
		usrSvc:   s.deps.UserSvc,
		validate: s.deps.Validate,
	}

	ag := g.Group("/assessments/me", jwt)
	ag.POST("", api.submit)
	ag.GET("", api.retrieveMe)

	g.GET("/admin/students/:uid/assessment", api.retrieveStudent, jwt, admin, studentParamMiddleware(api.usrSvc))
}

func (api *assessmentApi) submit(ctx echo.Context) error {
	p, err := getContextProfile(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data assessment.NewAssessment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssessment")
	}
	a, err := api.svc.Submit(ctx.Request().Context(), api.validate, p.UID, data)
	if err != nil {
		return errors.Wrap(err, "submitting assessment")
	}
	return ctx.JSON(http.StatusCreated, AssessmentResponse{Assessment: a, Summary: assessment.Summarize(a)})
}

func (api *assessmentApi) retrieveMe(ctx echo.Context) error {
	p, err := getContextProfile(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	return api.respond(ctx, p.UID)
}

func (api *assessmentApi) retrieveStudent(ctx echo.Context) error {
	p, ok := ctx.Get("object").(user.Profile)
	if !ok {
		return errHttpNotFound
	}
	return api.respond(ctx, p.UID)
}

func (api *assessmentApi) respond(ctx echo.Context, uid string) error {
	a, err := api.svc.Get(ctx.Request().Context(), uid)
	if err != nil {
		return errors.Wrap(err, "retrieving assessment")
	}
	return ctx.JSON(http.StatusOK, AssessmentResponse{Assessment: a, Summary: assessment.Summarize(a)})
}

type AssessmentResponse struct {
	Assessment assessment.Assessment `json:"assessment"`
	Summary    assessment.Summary    `json:"summary"`
}
