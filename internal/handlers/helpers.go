package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/view"
)

const cartSummaryKey = "cart_summary"

// CartSummary loads the header cart badge for signed-in page views.
func CartSummary(cart *service.CartService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			id, ok := auth.Current(c)
			if !ok {
				return next(c)
			}
			ctx := c.Request().Context()
			sum, err := cart.Summary(ctx, id)
			if err != nil {
				logFrom(c).Warn("cart_summary_error", "user_id", id.UserID, "error", err)
				return next(c)
			}
			c.Set(cartSummaryKey, sum)
			return next(c)
		}
	}
}

func render(c echo.Context, status int, name, title string, data any) error {
	id, ok := auth.Current(c)
	p := view.Page{
		Title:    title,
		User:     id,
		LoggedIn: ok,
		CSRF:     csrf.Token(c),
		Flashes:  takeFlashes(c),
		Data:     data,
	}
	if sum, ok := c.Get(cartSummaryKey).(service.Summary); ok {
		p.CartCount = sum.Count
		p.CartTotal = sum.Total
	}
	return c.Render(status, name, p)
}

func redirect(c echo.Context, to string) error {
	return c.Redirect(http.StatusSeeOther, to)
}

// current must only be used behind auth.RequireLogin.
func current(c echo.Context) identity.Identity {
	id, _ := auth.Current(c)
	return id
}

func paramID(c echo.Context, name string) (uint, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound, "página no encontrada")
	}
	return uint(n), nil
}

// quantity reads the "cantidad" field, using def when it is absent.
func quantity(c echo.Context, def int) (int, bool) {
	v := c.FormValue("cantidad")
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
