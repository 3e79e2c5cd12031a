package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/models"
)

var errRejected = errors.New("rejected")

type fakeResolver map[string]identity.Identity

func (f fakeResolver) Resolve(_ context.Context, token string) (identity.Identity, error) {
	if token == "broken" {
		return identity.Identity{}, errors.New("db down")
	}
	id, ok := f[token]
	if !ok {
		return identity.Identity{}, errRejected
	}
	return id, nil
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Use(Session(fakeResolver{
		"ana":   {UserID: 1, Name: "Ana", Role: models.RoleCustomer},
		"admin": {UserID: 2, Name: "Root", Role: models.RoleAdmin},
	}, errRejected, false))
	whoami := func(c echo.Context) error {
		id, ok := Current(c)
		if !ok {
			return c.String(http.StatusOK, "anon")
		}
		return c.String(http.StatusOK, id.Name)
	}
	e.GET("/", whoami)
	e.GET("/perfil", whoami, RequireLogin)
	e.POST("/carrito/agregar/1", whoami, RequireLogin)
	e.GET("/admin", whoami, RequireAdmin)
	return e
}

func do(e *echo.Echo, method, target, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: cookie})
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSession_Resolves(t *testing.T) {
	e := newEcho()
	assert.Equal(t, "anon", do(e, http.MethodGet, "/", "").Body.String())
	assert.Equal(t, "Ana", do(e, http.MethodGet, "/", "ana").Body.String())
}

func TestSession_RejectedCookieCleared(t *testing.T) {
	e := newEcho()
	rec := do(e, http.MethodGet, "/", "stale")
	assert.Equal(t, "anon", rec.Body.String())
	require.Contains(t, rec.Header().Get("Set-Cookie"), SessionCookie+"=;")

	rec = do(e, http.MethodGet, "/", "broken")
	assert.Equal(t, "anon", rec.Body.String())
	assert.Empty(t, rec.Header().Get("Set-Cookie"))
}

func TestRequireLogin_Redirects(t *testing.T) {
	e := newEcho()
	rec := do(e, http.MethodGet, "/perfil?tab=1", "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2Fperfil%3Ftab%3D1", rec.Header().Get(echo.HeaderLocation))

	rec = do(e, http.MethodPost, "/carrito/agregar/1", "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))

	rec = do(e, http.MethodGet, "/perfil", "ana")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	e := newEcho()
	assert.Equal(t, http.StatusSeeOther, do(e, http.MethodGet, "/admin", "").Code)
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/admin", "ana").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/admin", "admin").Code)
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/carrito", SafeNext("/carrito"))
	assert.Empty(t, SafeNext("//evil.example"))
	assert.Empty(t, SafeNext(`/\evil.example`))
	assert.Empty(t, SafeNext("https://evil.example"))
	assert.Empty(t, SafeNext(""))
}
