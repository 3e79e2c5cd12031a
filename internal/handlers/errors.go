package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/service"
)

const genericMessage = "Ocurrió un error. Intenta de nuevo."

func logFrom(c echo.Context) *slog.Logger {
	return logging.FromContext(c.Request().Context())
}

// message turns a service error into the text shown to the user.
func message(err error) string {
	var stock *service.StockError
	var fields *service.FieldError
	switch {
	case errors.As(err, &stock):
		parts := make([]string, 0, len(stock.Items))
		for _, it := range stock.Items {
			parts = append(parts, fmt.Sprintf("%s (disponible: %d)", it.Name, it.Available))
		}
		return "Stock insuficiente para: " + strings.Join(parts, ", ")
	case errors.As(err, &fields) && len(fields.Fields) > 0:
		return "Revisa los campos: " + strings.Join(fields.Fields, ", ")
	case errors.Is(err, service.ErrEmptyCart):
		return "Tu carrito está vacío"
	case errors.Is(err, service.ErrAccountNotFound):
		return "Usuario no encontrado o inactivo"
	case errors.Is(err, service.ErrWrongPassword):
		return "Contraseña incorrecta"
	case errors.Is(err, service.ErrValidation):
		return "Los datos enviados no son válidos"
	case errors.Is(err, service.ErrNotFound):
		return "No encontramos lo que buscabas"
	case errors.Is(err, service.ErrConflict):
		return "No es posible completar la operación"
	case errors.Is(err, service.ErrUnauthenticated):
		return "Debes iniciar sesión"
	}
	return genericMessage
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInsufficientStock):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrUnauthenticated),
		errors.Is(err, service.ErrAccountNotFound),
		errors.Is(err, service.ErrWrongPassword):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// fail logs err, flashes msg (or the mapped message when msg is empty) and
// redirects to the given page.
func fail(c echo.Context, err error, to, event, msg string) error {
	status := statusOf(err)
	if status >= 500 {
		logFrom(c).Error(event, "status", status, "error", err)
	} else {
		logFrom(c).Warn(event, "status", status, "error", err)
	}
	if errors.Is(err, service.ErrUnauthenticated) {
		return redirect(c, auth.LoginURL(to))
	}
	if msg == "" {
		msg = message(err)
	}
	addFlash(c, flashError, msg)
	return redirect(c, to)
}

type errorPage struct {
	Code    int
	Message string
}

func wantsJSON(c echo.Context) bool {
	p := c.Request().URL.Path
	return strings.HasPrefix(p, "/api/") || strings.HasPrefix(p, "/health/") ||
		strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

// HTTPErrorHandler answers JSON for API and health routes and an HTML error
// page everywhere else.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := genericMessage
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if s, ok := he.Message.(string); ok && code < 500 {
			msg = s
		}
	}
	if code == http.StatusNotFound && msg == http.StatusText(http.StatusNotFound) {
		msg = "página no encontrada"
	}
	if code == http.StatusMethodNotAllowed && msg == http.StatusText(http.StatusMethodNotAllowed) {
		msg = "método no permitido"
	}

	var werr error
	switch {
	case c.Request().Method == http.MethodHead:
		werr = c.NoContent(code)
	case wantsJSON(c):
		werr = c.JSON(code, echo.Map{"error": msg})
	default:
		werr = render(c, code, "error.html", "Error", errorPage{Code: code, Message: msg})
		if werr != nil {
			werr = c.String(code, msg)
		}
	}
	if werr != nil {
		logFrom(c).Error("error_handler_failed", "status", code, "error", werr)
	}
}
