package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type CatalogHandler struct {
	Catalog *service.CatalogService
}

func (h *CatalogHandler) Home(c echo.Context) error {
	ctx := c.Request().Context()
	l := logFrom(c).With("handler", "catalog_home")

	var q transport.CatalogQuery
	if err := c.Bind(&q); err != nil {
		l.Warn("catalog_error", "status", 400, "error", err)
		q = transport.CatalogQuery{}
	}
	page, err := h.Catalog.Browse(ctx, q)
	if err != nil {
		l.Error("catalog_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return render(c, http.StatusOK, "home.html", "Catálogo", page)
}
