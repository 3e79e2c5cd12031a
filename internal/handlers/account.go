package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type AccountHandler struct {
	Address *service.AddressService
	Orders  *service.OrderService
}

func (h *AccountHandler) Profile(c echo.Context) error {
	ctx := c.Request().Context()

	p, err := h.Address.Profile(ctx, current(c))
	if err != nil {
		return fail(c, err, "/", "profile_error", "")
	}
	return render(c, http.StatusOK, "profile.html", "Mi perfil", p)
}

func (h *AccountHandler) AddAddress(c echo.Context) error {
	ctx := c.Request().Context()
	l := logFrom(c).With("handler", "add_address")

	var req transport.AddressForm
	if err := c.Bind(&req); err != nil {
		l.Warn("add_address_error", "status", 400, "error", err)
		addFlash(c, flashError, "Los datos enviados no son válidos")
		return redirect(c, "/perfil")
	}

	if _, err := h.Address.AddAddress(ctx, current(c), req); err != nil {
		return fail(c, err, "/perfil", "add_address_error", "")
	}
	addFlash(c, flashSuccess, "Dirección agregada")
	return redirect(c, "/perfil")
}

func (h *AccountHandler) MyOrders(c echo.Context) error {
	ctx := c.Request().Context()

	orders, err := h.Orders.ListOrders(ctx, current(c))
	if err != nil {
		return fail(c, err, "/", "list_orders_error", "")
	}
	return render(c, http.StatusOK, "orders.html", "Mis pedidos", orders)
}
