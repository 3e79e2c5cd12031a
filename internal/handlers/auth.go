package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type AuthHandler struct {
	Auth         *service.AuthService
	CookieSecure bool
}

type registerPage struct {
	Form   transport.RegisterForm
	Errors []string
}

type loginPage struct {
	Email string
	Next  string
}

// landing is the page to return to after login.
func landing(next string) string {
	if s := auth.SafeNext(next); s != "" && s != "/login" {
		return s
	}
	return "/"
}

func (h *AuthHandler) RegisterForm(c echo.Context) error {
	if _, ok := auth.Current(c); ok {
		return redirect(c, "/")
	}
	return render(c, http.StatusOK, "register.html", "Crear cuenta", registerPage{})
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logFrom(c).With("handler", "auth_register")

	var req transport.RegisterForm
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "formulario no válido")
	}

	user, err := h.Auth.Register(ctx, req)
	if err != nil {
		var fields *service.FieldError
		req.Password, req.PasswordConfirm = "", ""
		switch {
		case errors.As(err, &fields):
			return render(c, http.StatusUnprocessableEntity, "register.html", "Crear cuenta", registerPage{Form: req, Errors: fields.Fields})
		case errors.Is(err, service.ErrConflict):
			addFlash(c, flashError, "El correo ya está registrado")
			return render(c, http.StatusConflict, "register.html", "Crear cuenta", registerPage{Form: req})
		}
		return fail(c, err, "/registro", "register_error", "")
	}

	l.Info("user registered", "user_id", user.ID)
	addFlash(c, flashSuccess, "Cuenta creada. Ya puedes iniciar sesión.")
	return redirect(c, "/login")
}

func (h *AuthHandler) LoginForm(c echo.Context) error {
	next := landing(c.QueryParam("next"))
	if _, ok := auth.Current(c); ok {
		return redirect(c, next)
	}
	return render(c, http.StatusOK, "login.html", "Iniciar sesión", loginPage{Next: next})
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logFrom(c).With("handler", "auth_login")

	var req transport.LoginForm
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "formulario no válido")
	}
	next := landing(req.Next)

	res, err := h.Auth.Login(ctx, req.Email, req.Password, c.Request().UserAgent())
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return fail(c, err, auth.LoginURL(next), "login_error", "Ingresa tu correo y contraseña")
		}
		return fail(c, err, auth.LoginURL(next), "login_error", "")
	}

	c.SetCookie(auth.CreateCookie(auth.SessionCookie, res.Token, "/", res.ExpiresAt, h.CookieSecure))
	addFlash(c, flashSuccess, "Bienvenido, "+res.Identity.Name)
	return redirect(c, next)
}

func (h *AuthHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	id := current(c)

	if err := h.Auth.Logout(ctx, id); err != nil {
		logFrom(c).With("handler", "auth_logout").Error("logout_error", "status", 500, "error", err)
	}
	c.SetCookie(auth.DeleteCookie(auth.SessionCookie, "/", h.CookieSecure))
	addFlash(c, flashSuccess, "Has cerrado sesión")
	return redirect(c, "/")
}
