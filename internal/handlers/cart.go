package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
)

type CartHandler struct {
	Cart *service.CartService
}

func (h *CartHandler) GetCart(c echo.Context) error {
	ctx := c.Request().Context()

	cart, err := h.Cart.ListActive(ctx, current(c))
	if err != nil {
		return fail(c, err, "/", "get_cart_error", "")
	}
	return render(c, http.StatusOK, "cart.html", "Carrito", cart)
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()

	productID, err := paramID(c, "productId")
	if err != nil {
		return err
	}
	qty, ok := quantity(c, 1)
	if !ok {
		addFlash(c, flashError, "La cantidad no es válida")
		return redirect(c, "/")
	}

	line, err := h.Cart.AddToCart(ctx, current(c), productID, qty)
	if err != nil {
		return fail(c, err, "/", "add_to_cart_error", "")
	}
	addFlash(c, flashSuccess, line.Product.Name+" agregado al carrito")
	return redirect(c, "/carrito")
}

func (h *CartHandler) UpdateQuantity(c echo.Context) error {
	ctx := c.Request().Context()

	lineID, err := paramID(c, "cartLineId")
	if err != nil {
		return err
	}
	// zero or negative removes the line
	qty, ok := quantity(c, 0)
	if !ok || c.FormValue("cantidad") == "" {
		addFlash(c, flashError, "La cantidad no es válida")
		return redirect(c, "/carrito")
	}

	line, err := h.Cart.UpdateQuantity(ctx, current(c), lineID, qty)
	if err != nil {
		return fail(c, err, "/carrito", "update_cart_error", "")
	}
	if line == nil {
		addFlash(c, flashSuccess, "Producto eliminado del carrito")
	} else {
		addFlash(c, flashSuccess, "Cantidad actualizada")
	}
	return redirect(c, "/carrito")
}

func (h *CartHandler) RemoveLine(c echo.Context) error {
	ctx := c.Request().Context()

	lineID, err := paramID(c, "cartLineId")
	if err != nil {
		return err
	}
	if err := h.Cart.RemoveLine(ctx, current(c), lineID); err != nil {
		return fail(c, err, "/carrito", "remove_cart_error", "")
	}
	addFlash(c, flashSuccess, "Producto eliminado del carrito")
	return redirect(c, "/carrito")
}
