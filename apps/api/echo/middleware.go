package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/tasktrack/core/user"
)

// adminMiddleware lets through admins only. The role is read from the store, not from the token.
func adminMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := getContextProfile(ctx, svc)
			if err != nil {
				return err
			}
			if p.IsAdmin() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// studentParamMiddleware loads the profile named by the ":uid" path param into the context.
func studentParamMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := svc.GetByUID(ctx.Request().Context(), ctx.Param("uid"))
			if err != nil {
				return err
			}
			ctx.Set("object", p)
			return next(ctx)
		}
	}
}
