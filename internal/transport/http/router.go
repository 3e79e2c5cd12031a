package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/handlers"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/middleware/auth"
)

type Handlers struct {
	Catalog  *handlers.CatalogHandler
	Auth     *handlers.AuthHandler
	Account  *handlers.AccountHandler
	Cart     *handlers.CartHandler
	Checkout *handlers.CheckoutHandler
	Admin    *handlers.AdminHandler
	Search   *handlers.SearchHandler
	Health   *handlers.HealthHandler
}

func Register(e *echo.Echo, h *Handlers) {
	e.GET("/health/live", h.Health.Live)
	e.GET("/health/ready", h.Health.Ready)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	e.GET("/api/buscar", h.Search.Search)

	e.GET("/", h.Catalog.Home)

	e.GET("/registro", h.Auth.RegisterForm)
	e.POST("/registro", h.Auth.Register)
	e.GET("/login", h.Auth.LoginForm)
	e.POST("/login", h.Auth.Login)
	e.POST("/logout", h.Auth.Logout, auth.RequireLogin)

	e.GET("/perfil", h.Account.Profile, auth.RequireLogin)
	e.POST("/perfil/direccion/agregar", h.Account.AddAddress, auth.RequireLogin)
	e.GET("/mis-pedidos", h.Account.MyOrders, auth.RequireLogin)

	cart := e.Group("/carrito", auth.RequireLogin)
	cart.GET("", h.Cart.GetCart)
	cart.POST("/agregar/:productId", h.Cart.AddToCart)
	cart.POST("/actualizar/:cartLineId", h.Cart.UpdateQuantity)
	cart.POST("/eliminar/:cartLineId", h.Cart.RemoveLine)

	checkout := e.Group("/checkout", auth.RequireLogin)
	checkout.GET("", h.Checkout.Form)
	checkout.POST("", h.Checkout.Submit)

	admin := e.Group("/admin", auth.RequireAdmin)
	admin.GET("/productos", h.Admin.ListProducts)
	admin.GET("/productos/crear", h.Admin.NewProduct)
	admin.POST("/productos/crear", h.Admin.CreateProduct)
	admin.GET("/productos/editar/:id", h.Admin.EditProduct)
	admin.POST("/productos/editar/:id", h.Admin.UpdateProduct)
	admin.POST("/productos/eliminar/:id", h.Admin.DeleteProduct)
	admin.GET("/pedidos", h.Admin.ListOrders)
	admin.POST("/pedidos/:id/estado", h.Admin.AdvanceOrder)
}
