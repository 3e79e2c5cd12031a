package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/handlers"
	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	loggingmw "github.com/Skotchmaster/storefront/internal/middleware/logging"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/view"
)

type Deps struct {
	DB     *gorm.DB
	Logger *slog.Logger

	Auth     *service.AuthService
	Catalog  *service.CatalogService
	Cart     *service.CartService
	Checkout *service.CheckoutService
	Address  *service.AddressService
	Orders   *service.OrderService
	Admin    *service.AdminService

	SessionSecret []byte
	CookieSecure  bool
}

// New builds the echo instance with the full middleware chain and routes.
func New(d *Deps) (*echo.Echo, error) {
	renderer, err := view.New()
	if err != nil {
		return nil, fmt.Errorf("templates: %w", err)
	}
	sqlDB, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("db handle: %w", err)
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer
	e.Validator = transport.Validator{}
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	store := sessions.NewCookieStore(d.SessionSecret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   3600,
		HttpOnly: true,
		Secure:   d.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}

	csrfCfg := csrf.DefaultConfig()
	csrfCfg.Secure = d.CookieSecure
	csrfCfg.SkipPaths = []string{"/metrics", "/health/live", "/health/ready"}

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(
		middleware.RequestID(),
		middleware.Secure(),
		loggingmw.RequestLogger(logger),
		middleware.Recover(),
		session.Middleware(store),
		csrf.Middleware(csrfCfg),
		auth.Session(d.Auth, service.ErrUnauthenticated, d.CookieSecure),
		handlers.CartSummary(d.Cart),
	)

	Register(e, &Handlers{
		Catalog:  &handlers.CatalogHandler{Catalog: d.Catalog},
		Auth:     &handlers.AuthHandler{Auth: d.Auth, CookieSecure: d.CookieSecure},
		Account:  &handlers.AccountHandler{Address: d.Address, Orders: d.Orders},
		Cart:     &handlers.CartHandler{Cart: d.Cart},
		Checkout: &handlers.CheckoutHandler{Checkout: d.Checkout, Cart: d.Cart, Address: d.Address},
		Admin:    &handlers.AdminHandler{Admin: d.Admin},
		Search:   &handlers.SearchHandler{Catalog: d.Catalog},
		Health:   &handlers.HealthHandler{DB: sqlDB},
	})
	return e, nil
}

// NewHTTPServer wraps the handler with the storefront's server timeouts.
func NewHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
