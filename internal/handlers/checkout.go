package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type CheckoutHandler struct {
	Checkout *service.CheckoutService
	Cart     *service.CartService
	Address  *service.AddressService
}

type checkoutPage struct {
	Cart      *service.Cart
	Addresses []models.Address
}

func (h *CheckoutHandler) Form(c echo.Context) error {
	ctx := c.Request().Context()
	id := current(c)

	cart, err := h.Cart.ListActive(ctx, id)
	if err != nil {
		return fail(c, err, "/carrito", "checkout_error", "")
	}
	if cart.Empty() {
		addFlash(c, flashError, "Tu carrito está vacío")
		return redirect(c, "/carrito")
	}
	addrs, err := h.Address.ListAddresses(ctx, id)
	if err != nil {
		return fail(c, err, "/carrito", "checkout_error", "")
	}
	if len(addrs) == 0 {
		addFlash(c, flashError, "Agrega una dirección de envío antes de pagar")
		return redirect(c, "/perfil")
	}
	return render(c, http.StatusOK, "checkout.html", "Finalizar compra", checkoutPage{Cart: cart, Addresses: addrs})
}

func (h *CheckoutHandler) Submit(c echo.Context) error {
	ctx := c.Request().Context()
	l := logFrom(c).With("handler", "checkout")

	var req transport.CheckoutForm
	if err := c.Bind(&req); err != nil {
		l.Warn("checkout_error", "status", 400, "error", err)
		addFlash(c, flashError, "Selecciona una dirección y un método de pago")
		return redirect(c, "/checkout")
	}

	orders, err := h.Checkout.Checkout(ctx, current(c), req)
	if err != nil {
		var fields *service.FieldError
		switch {
		case errors.Is(err, service.ErrInsufficientStock), errors.Is(err, service.ErrEmptyCart):
			return fail(c, err, "/carrito", "checkout_error", "")
		case errors.As(err, &fields):
			return fail(c, err, "/checkout", "checkout_error", "Selecciona una dirección y un método de pago")
		case errors.Is(err, service.ErrNotFound):
			return fail(c, err, "/checkout", "checkout_error", "La dirección seleccionada no existe")
		}
		return fail(c, err, "/checkout", "checkout_error", "")
	}

	addFlash(c, flashSuccess, fmt.Sprintf("¡Pedido realizado! Se registraron %d pedido(s).", len(orders)))
	return redirect(c, "/mis-pedidos")
}
