package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
)

type AdminHandler struct {
	Admin *service.AdminService
}

type productFormPage struct {
	Form    transport.ProductForm
	Action  string
	Editing bool
	Errors  []string
}

func pageParam(c echo.Context) int {
	return util.ParseIntDefault(c.QueryParam("page"), 1)
}

func (h *AdminHandler) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()

	page, err := h.Admin.ListProducts(ctx, pageParam(c))
	if err != nil {
		logFrom(c).With("handler", "admin_products").Error("list_products_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return render(c, http.StatusOK, "admin_products.html", "Productos", page)
}

func (h *AdminHandler) NewProduct(c echo.Context) error {
	form := transport.ProductForm{Active: true}
	return render(c, http.StatusOK, "admin_product_form.html", "Nuevo producto", productFormPage{
		Form:   form,
		Action: "/admin/productos/crear",
	})
}

// productFormError re-renders the form for input the user can fix.
func productFormError(c echo.Context, err error, page productFormPage, title string) (bool, error) {
	var fields *service.FieldError
	switch {
	case errors.As(err, &fields):
		page.Errors = fields.Fields
		return true, render(c, http.StatusUnprocessableEntity, "admin_product_form.html", title, page)
	case errors.Is(err, service.ErrConflict):
		addFlash(c, flashError, "Ya existe un producto con el código "+page.Form.Code)
		return true, render(c, http.StatusConflict, "admin_product_form.html", title, page)
	}
	return false, nil
}

// productBindFields names the typed form fields that failed to decode.
func productBindFields(c echo.Context, err error) []string {
	var be *echo.BindingError
	if errors.As(err, &be) {
		return []string{be.Field}
	}
	var (
		stock  int
		active transport.Checkbox
	)
	errs := echo.FormFieldBinder(c).FailFast(false).
		Int("stock", &stock).
		BindUnmarshaler("activo", &active).
		BindErrors()
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		if errors.As(e, &be) {
			fields = append(fields, be.Field)
		}
	}
	return fields
}

func (h *AdminHandler) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logFrom(c).With("handler", "admin_create_product")

	var req transport.ProductForm
	if err := c.Bind(&req); err != nil {
		l.Warn("product_create_error", "status", 400, "error", err)
		return render(c, http.StatusUnprocessableEntity, "admin_product_form.html", "Nuevo producto", productFormPage{
			Form:   req,
			Action: "/admin/productos/crear",
			Errors: productBindFields(c, err),
		})
	}

	p, err := h.Admin.CreateProduct(ctx, req)
	if err != nil {
		page := productFormPage{Form: req, Action: "/admin/productos/crear"}
		if handled, rerr := productFormError(c, err, page, "Nuevo producto"); handled {
			return rerr
		}
		return fail(c, err, "/admin/productos", "product_create_error", "")
	}

	l.Info("product created", "product_id", p.ID)
	addFlash(c, flashSuccess, "Producto "+p.Name+" creado")
	return redirect(c, "/admin/productos")
}

func (h *AdminHandler) EditProduct(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.Admin.GetProduct(ctx, id)
	if err != nil {
		return fail(c, err, "/admin/productos", "product_edit_error", "El producto no existe")
	}
	return render(c, http.StatusOK, "admin_product_form.html", "Editar producto", productFormPage{
		Form:    service.FormFor(p),
		Action:  editAction(id),
		Editing: true,
	})
}

func editAction(id uint) string {
	return "/admin/productos/editar/" + strconv.FormatUint(uint64(id), 10)
}

func (h *AdminHandler) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logFrom(c).With("handler", "admin_update_product")

	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	page := productFormPage{Action: editAction(id), Editing: true}

	var req transport.ProductForm
	if err := c.Bind(&req); err != nil {
		l.Warn("product_update_error", "status", 400, "error", err)
		page.Form = req
		page.Errors = productBindFields(c, err)
		return render(c, http.StatusUnprocessableEntity, "admin_product_form.html", "Editar producto", page)
	}

	p, err := h.Admin.UpdateProduct(ctx, id, req)
	if err != nil {
		page.Form = req
		if handled, rerr := productFormError(c, err, page, "Editar producto"); handled {
			return rerr
		}
		if errors.Is(err, service.ErrNotFound) {
			return fail(c, err, "/admin/productos", "product_update_error", "El producto no existe")
		}
		return fail(c, err, editAction(id), "product_update_error", "")
	}

	addFlash(c, flashSuccess, "Producto "+p.Name+" actualizado")
	return redirect(c, "/admin/productos")
}

func (h *AdminHandler) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Admin.DeleteProduct(ctx, id); err != nil {
		switch {
		case errors.Is(err, service.ErrConflict):
			return fail(c, err, "/admin/productos", "product_delete_error", "No se puede eliminar: el producto tiene pedidos asociados")
		case errors.Is(err, service.ErrNotFound):
			return fail(c, err, "/admin/productos", "product_delete_error", "El producto no existe")
		}
		return fail(c, err, "/admin/productos", "product_delete_error", "")
	}
	addFlash(c, flashSuccess, "Producto eliminado")
	return redirect(c, "/admin/productos")
}

func (h *AdminHandler) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()

	page, err := h.Admin.ListOrders(ctx, pageParam(c))
	if err != nil {
		logFrom(c).With("handler", "admin_orders").Error("list_orders_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return render(c, http.StatusOK, "admin_orders.html", "Pedidos", page)
}

func (h *AdminHandler) AdvanceOrder(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	o, err := h.Admin.AdvanceOrder(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConflict):
			return fail(c, err, "/admin/pedidos", "advance_order_error", "El pedido ya no puede avanzar de estado")
		case errors.Is(err, service.ErrNotFound):
			return fail(c, err, "/admin/pedidos", "advance_order_error", "El pedido no existe")
		}
		return fail(c, err, "/admin/pedidos", "advance_order_error", "")
	}
	addFlash(c, flashSuccess, fmt.Sprintf("Pedido #%d actualizado", o.ID))
	return redirect(c, "/admin/pedidos")
}
