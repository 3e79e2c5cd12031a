package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return RequireLogin(func(c echo.Context) error {
		id, _ := Current(c)
		if !id.IsAdmin() {
			return echo.NewHTTPError(http.StatusForbidden, "no tienes permisos para esta página")
		}
		return next(c)
	})
}
