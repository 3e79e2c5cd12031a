package auth

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/logging"
)

type Resolver interface {
	Resolve(ctx context.Context, token string) (identity.Identity, error)
}

// Session resolves the session cookie into the request identity. Requests
// without a usable cookie continue anonymously; a rejected cookie is cleared.
func Session(r Resolver, rejected error, secure bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				return next(c)
			}

			ctx := c.Request().Context()
			id, err := r.Resolve(ctx, cookie.Value)
			if err != nil {
				if errors.Is(err, rejected) {
					logging.FromContext(ctx).Info("session_rejected", "reason", err.Error())
					c.SetCookie(DeleteCookie(SessionCookie, "/", secure))
				} else {
					logging.FromContext(ctx).Error("session_resolve_error", "status", 500, "error", err)
				}
				return next(c)
			}

			setIdentity(c, id)
			return next(c)
		}
	}
}
