package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/identity"
)

const SessionCookie = "sessionid"

func CreateCookie(name, value, path string, exp time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  exp,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func DeleteCookie(name, path string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Current returns the identity resolved for this request, if any.
func Current(c echo.Context) (identity.Identity, bool) {
	return identity.FromContext(c.Request().Context())
}

func setIdentity(c echo.Context, id identity.Identity) {
	c.SetRequest(c.Request().WithContext(identity.WithIdentity(c.Request().Context(), id)))
	c.Set("identity", id)
}
