package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tasktrack/core"
	"github.com/trezcool/tasktrack/core/user"
)

var profileOrderingFields = map[string]bool{
	"created_at":   true,
	"student_id":   true,
	"display_name": true,
	"email":        true,
}

type userApi struct {
	svc      *user.Service
	auth     *Authenticator
	validate *validator.Validate
}

func registerUserAPI(g *echo.Group, jwt, admin echo.MiddlewareFunc, s *Server) {
	api := userApi{
		svc:      s.deps.UserSvc,
		auth:     s.auth,
		validate: s.deps.Validate,
	}

	ug := g.Group("/users")

	// un-authed endpoints
	ug.POST("/login", api.login)
	ug.POST("/signup", api.signUp)

	// authed endpoints
	me := ug.Group("/me", jwt)
	me.GET("", api.retrieveMe)
	me.PUT("", api.updateMe)
	me.POST("/password", api.changePassword)

	// admin endpoints
	ag := g.Group("/admin/users", jwt, admin)
	ag.GET("", api.query)
	ag.POST("", api.createAccount)
	ag.PATCH("/:uid/flags", api.setFlags)
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	return api.respondWithToken(ctx, http.StatusOK, p)
}

func (api *userApi) signUp(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}

	p, err := api.svc.SignUp(ctx.Request().Context(), api.validate, data)
	if err != nil {
		return errors.Wrap(err, "signing up")
	}
	return api.respondWithToken(ctx, http.StatusCreated, p)
}

func (api *userApi) respondWithToken(ctx echo.Context, code int, p user.Profile) error {
	token, err := api.auth.GenerateToken(p)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(code, LoginResponse{Token: token, Profile: p})
}

func (api *userApi) retrieveMe(ctx echo.Context) error {
	p, err := getContextProfile(ctx, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *userApi) updateMe(ctx echo.Context) error {
	p, err := getContextProfile(ctx, api.svc)
	if err != nil {
		return err
	}

	var data user.UpdateProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	p, err = api.svc.UpdateProfile(ctx.Request().Context(), api.validate, p.UID, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *userApi) changePassword(ctx echo.Context) error {
	p, err := getContextProfile(ctx, api.svc)
	if err != nil {
		return err
	}

	var data user.ChangePassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}
	p, err = api.svc.ChangePassword(ctx.Request().Context(), api.validate, p.UID, data)
	if err != nil {
		return errors.Wrap(err, "changing password")
	}
	return api.respondWithToken(ctx, http.StatusOK, p)
}

func (api *userApi) query(ctx echo.Context) error {
	filter := user.QueryFilter{
		Search: ctx.QueryParam("search"),
		Role:   user.Role(ctx.QueryParam("role")),
	}
	if v := ctx.QueryParam("requires_password_change"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "requires_password_change", Error: "must be a boolean"})
		}
		filter.RequiresPasswordChange = &b
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)
	for _, ord := range ordering.Orderings {
		if !profileOrderingFields[ord.Field] {
			return core.NewValidationError(nil, core.FieldError{Field: orderingParam, Error: "cannot order by " + ord.Field})
		}
	}

	profiles, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if profiles == nil {
		profiles = []user.Profile{}
	}
	return ctx.JSON(http.StatusOK, profiles)
}

// createAccount creates an account on someone's behalf.
// The response carries no token: the admin keeps their own session.
func (api *userApi) createAccount(ctx echo.Context) error {
	var data user.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}

	p, pwd, err := api.svc.CreateAccount(ctx.Request().Context(), api.validate, data)
	if err != nil {
		return errors.Wrap(err, "creating account")
	}
	return ctx.JSON(http.StatusCreated, NewAccountResponse{Profile: p, TemporaryPassword: pwd})
}

func (api *userApi) setFlags(ctx echo.Context) error {
	var data user.UpdateFlags
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateFlags")
	}

	p, err := api.svc.SetFlags(ctx.Request().Context(), api.validate, ctx.Param("uid"), data)
	if err != nil {
		return errors.Wrap(err, "setting flags")
	}
	return ctx.JSON(http.StatusOK, p)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token   string       `json:"token"`
		Profile user.Profile `json:"profile"`
	}

	NewAccountResponse struct {
		Profile           user.Profile `json:"profile"`
		TemporaryPassword string       `json:"temporary_password"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}
