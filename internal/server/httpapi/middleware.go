package httpapi

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/authservice/internal/common"
	"github.com/dmitrijs2005/authservice/internal/logging"
	"github.com/dmitrijs2005/authservice/internal/server/models"
)

type principalKey struct{}

// WithPrincipal stores the authenticated user in ctx.
func WithPrincipal(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, principalKey{}, u)
}

// PrincipalFrom returns the user stored by the bearer middleware, if any.
func PrincipalFrom(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(principalKey{}).(*models.User)
	return u, ok && u != nil
}

// CorrelationID takes X-Correlation-Id from the request or generates
// one, echoes it on the response and puts it into the request context.
func CorrelationID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := strings.TrimSpace(req.Header.Get(common.CorrelationIDHeaderName))
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(common.CorrelationIDHeaderName, id)
			c.SetRequest(req.WithContext(logging.WithCorrelationID(req.Context(), id)))
			return next(c)
		}
	}
}

// Bearer authenticates the Authorization header and stores the user in
// the request context. Signer failures keep their kind so the error
// handler can report which check failed.
func Bearer(authn Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			header := req.Header.Get(common.AuthorizationHeaderName)
			if !strings.HasPrefix(header, common.BearerPrefix) {
				return common.ErrInvalidToken
			}
			raw := strings.TrimSpace(strings.TrimPrefix(header, common.BearerPrefix))
			if raw == "" {
				return common.ErrInvalidToken
			}

			user, err := authn.Authenticate(req.Context(), raw)
			if err != nil {
				return err
			}

			c.SetRequest(req.WithContext(WithPrincipal(req.Context(), user)))
			return next(c)
		}
	}
}

// RequireRole lets through principals whose role satisfies role.
// Must run after Bearer.
func RequireRole(role models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := PrincipalFrom(c.Request().Context())
			if !ok {
				return common.ErrInvalidToken
			}
			if !u.Role.Satisfies(role) {
				return errAccessDenied
			}
			return next(c)
		}
	}
}
