package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/tasktrack/core"
	"github.com/trezcool/tasktrack/core/assessment"
	"github.com/trezcool/tasktrack/core/notification"
	"github.com/trezcool/tasktrack/core/task"
	"github.com/trezcool/tasktrack/core/user"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound  = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// domainErrors maps the sentinel errors of the core packages to HTTP responses.
var domainErrors = map[error]int{
	user.ErrNotFound:               http.StatusNotFound,
	user.ErrEmailExists:            http.StatusBadRequest,
	user.ErrAuthenticationFailed:   http.StatusBadRequest,
	user.ErrInvalidPassword:        http.StatusBadRequest,
	user.ErrNoChanges:              http.StatusBadRequest,
	task.ErrNotFound:               http.StatusNotFound,
	task.ErrNoChanges:              http.StatusBadRequest,
	task.ErrNoDueDate:              http.StatusBadRequest,
	task.ErrEmptyTitle:             http.StatusBadRequest,
	notification.ErrNotFound:       http.StatusNotFound,
	assessment.ErrNotFound:         http.StatusNotFound,
	assessment.ErrAlreadySubmitted: http.StatusConflict,
	assessment.ErrNoResponses:      http.StatusBadRequest,
	notification.ErrEmptyMessage:   http.StatusBadRequest,
	notification.ErrInvalidType:    http.StatusBadRequest,
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		if status, ok := domainErrors[cause]; ok {
			code = status
			message = cause.Error()
		} else {
			switch origErr := cause.(type) {
			case *echo.HTTPError:
				if origErr == middleware.ErrJWTMissing || origErr.Message == middleware.ErrJWTMissing.Message {
					code = http.StatusUnauthorized
					message = origErr.Message
					break
				}
				if origErr.Internal != nil {
					if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
						origErr = herr
					}
				}
				code = origErr.Code
				message = origErr.Message
			case validator.ValidationErrors:
				fldErrs := make(map[string]string, len(origErr))
				for _, vErr := range origErr {
					fldErrs[vErr.Field()] = vErr.Translate(translator)
				}
				code = http.StatusBadRequest
				message = fldErrs
			case *core.ValidationError:
				if origErr.Fields != nil {
					fldErrs := make(map[string]string, len(origErr.Fields))
					for _, fErr := range origErr.Fields {
						fldErrs[fErr.Field] = fErr.Error
					}
					message = fldErrs
				} else {
					message = origErr.Error()
				}
				code = http.StatusBadRequest
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var person core.Person
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					person = core.Person{ID: claims.Subject, Username: claims.DisplayName, Email: claims.Email}
				}
				logger.Error(msg, errors.Wrap(err, msg), person)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
