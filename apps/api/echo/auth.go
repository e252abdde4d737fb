package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/tasktrack/core"
	"github.com/trezcool/tasktrack/core/user"
)

const (
	tokenContextKey   = "userToken"
	profileContextKey = "profile"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	StudentID   string `json:"student_id,omitempty"`
	IsAdmin     bool   `json:"is_admin,omitempty"` // -> ADMIN PORTAL
}

// Authenticator issues and checks the tokens of one server.
type Authenticator struct {
	conf      *core.Config
	jwtConfig middleware.JWTConfig
}

func NewAuthenticator(conf *core.Config) *Authenticator {
	return &Authenticator{
		conf: conf,
		jwtConfig: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    tokenContextKey,
			Claims:        new(Claims),
		},
	}
}

// Middleware rejects requests without a valid bearer token.
func (a *Authenticator) Middleware() echo.MiddlewareFunc {
	return middleware.JWTWithConfig(a.jwtConfig)
}

func (a *Authenticator) Claims(p user.Profile) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    a.conf.AppName,
			Subject:   p.UID,
			ExpiresAt: now.Add(a.conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Email:       p.Email,
		DisplayName: p.DisplayName,
		StudentID:   p.StudentID,
		IsAdmin:     p.IsAdmin(),
	}
}

// GenerateToken generates a signed JWT token string representing the profile's Claims.
func (a *Authenticator) GenerateToken(p user.Profile) (string, error) {
	method := jwt.GetSigningMethod(a.jwtConfig.SigningMethod)
	token := jwt.NewWithClaims(method, a.Claims(p))

	ss, err := token.SignedString(a.jwtConfig.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextProfile loads the profile of the token subject once per request.
func getContextProfile(ctx echo.Context, svc *user.Service) (user.Profile, error) {
	if p, ok := ctx.Get(profileContextKey).(user.Profile); ok {
		return p, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.Profile{}, err
	}
	p, err := svc.GetByUID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.Profile{}, errUnauthorized
		}
		return user.Profile{}, errors.Wrap(err, "finding user by UID")
	}
	ctx.Set(profileContextKey, p)
	return p, nil
}
