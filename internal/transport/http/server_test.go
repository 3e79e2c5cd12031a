package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/storefront/internal/db/dbtest"
	"github.com/Skotchmaster/storefront/internal/events/eventstest"
	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
)

const password = "secreto123"

type testServer struct {
	e      *echo.Echo
	repo   *repo.GormRepo
	events *eventstest.Recorder
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gdb := dbtest.New(t)
	r := repo.New(gdb)
	rec := &eventstest.Recorder{}

	e, err := New(&Deps{
		DB:       gdb,
		Logger:   slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Auth:     &service.AuthService{Repo: r, Events: rec, Secret: []byte("0123456789abcdef"), TTL: time.Hour, HashCost: bcrypt.MinCost},
		Catalog:  &service.CatalogService{Repo: r, Search: search.Nop{}},
		Cart:     &service.CartService{Repo: r, Events: rec},
		Checkout: &service.CheckoutService{Repo: r, Events: rec, Search: search.Nop{}},
		Address:  &service.AddressService{Repo: r},
		Orders:   &service.OrderService{Repo: r},
		Admin:    &service.AdminService{Repo: r, Events: rec, Search: search.Nop{}},

		SessionSecret: []byte("flash-secret-0123456789"),
	})
	require.NoError(t, err)
	return &testServer{e: e, repo: r, events: rec}
}

func (s *testServer) user(t *testing.T, email, role string) *models.User {
	t.Helper()
	pw, err := hash.HashPasswordCost(password, bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{FirstName: "Ana", LastName: "Mora", Email: email, PasswordHash: pw, Role: role, Active: true}
	require.NoError(t, s.repo.CreateUserIfNotExists(context.Background(), u))
	return u
}

func (s *testServer) product(t *testing.T, code, name, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Code: code, Name: name, Price: decimal.RequireFromString(price), Stock: stock, Active: true}
	require.NoError(t, s.repo.CreateProduct(context.Background(), p))
	return p
}

// client keeps cookies between requests the way a browser would.
type client struct {
	t       *testing.T
	s       *testServer
	cookies map[string]*http.Cookie
}

func (s *testServer) client(t *testing.T) *client {
	return &client{t: t, s: s, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.s.e.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return rec
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *client) post(path string, form url.Values) *httptest.ResponseRecorder {
	if _, ok := c.cookies["csrftoken"]; !ok {
		c.get("/login")
	}
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf_token", c.cookies["csrftoken"].Value)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set("Origin", "http://example.com")
	return c.do(req)
}

func (c *client) login(email string) {
	c.t.Helper()
	rec := c.post("/login", url.Values{"email": {email}, "password": {password}})
	require.Equal(c.t, http.StatusSeeOther, rec.Code)
	require.Equal(c.t, "/", rec.Header().Get(echo.HeaderLocation))
	require.Contains(c.t, c.cookies, "sessionid")
}

func id(n uint) string { return strconv.FormatUint(uint64(n), 10) }

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	c := s.client(t)

	rec := c.get("/health/live")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = c.get("/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCatalog_ShowsOnlyActiveProducts(t *testing.T) {
	s := newTestServer(t)
	s.product(t, "C1", "Café Tarrazú", "10.00", 5)
	hidden := s.product(t, "C2", "Té Oculto", "4.00", 5)
	hidden.Active = false
	require.NoError(t, s.repo.SaveProduct(context.Background(), hidden))

	rec := s.client(t).get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Café Tarrazú")
	assert.Contains(t, rec.Body.String(), "₡10.00")
	assert.NotContains(t, rec.Body.String(), "Té Oculto")
}

func TestAnonymousIsSentToLogin(t *testing.T) {
	s := newTestServer(t)
	c := s.client(t)

	for _, path := range []string{"/carrito", "/carrito/", "/checkout", "/perfil", "/mis-pedidos"} {
		rec := c.get(path)
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderLocation), "/login?next="), path)
	}

	rec := c.post("/carrito/agregar/1", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
}

func TestCSRF_RequiredOnPost(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("email=a%40b.cr&password=x"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set("Origin", "http://example.com")

	rec := s.client(t).do(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRegisterLoginCheckout(t *testing.T) {
	s := newTestServer(t)
	p := s.product(t, "P1", "Café Tarrazú", "10.00", 5)
	c := s.client(t)

	rec := c.post("/registro", url.Values{
		"nombre": {"Ana"}, "apellido": {"Mora"}, "email": {"ana@example.com"},
		"password": {password}, "password_confirm": {password},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
	assert.Contains(t, c.get("/login").Body.String(), "Cuenta creada")

	c.login("ana@example.com")

	rec = c.post("/perfil/direccion/agregar", url.Values{
		"provincia": {"San José"}, "canton": {"Escazú"}, "distrito": {"San Rafael"}, "direccion_exacta": {"Casa 1"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/perfil", rec.Header().Get(echo.HeaderLocation))

	rec = c.post("/carrito/agregar/"+id(p.ID), url.Values{"cantidad": {"3"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/carrito", rec.Header().Get(echo.HeaderLocation))

	body := c.get("/carrito").Body.String()
	assert.Contains(t, body, "agregado al carrito")
	assert.Contains(t, body, "Total: ₡30.00")
	assert.Contains(t, body, "Carrito (1) ₡30.00")

	rec = c.get("/checkout")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Casa 1, San Rafael, Escazú, San José")

	u, err := s.repo.FindActiveUserByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	addrs, err := s.repo.ListAddresses(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, addrs, 1)
	assert.True(t, addrs[0].IsDefault)

	rec = c.post("/checkout", url.Values{"direccion_id": {id(addrs[0].ID)}, "metodo_pago": {"tarjeta"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/mis-pedidos", rec.Header().Get(echo.HeaderLocation))

	body = c.get("/mis-pedidos").Body.String()
	assert.Contains(t, body, "Pedido realizado")
	assert.Contains(t, body, "Pendiente")
	assert.Contains(t, body, "₡30.00")

	got, err := s.repo.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stock)

	rec = c.post("/logout", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.NotContains(t, c.cookies, "sessionid")
	assert.Equal(t, http.StatusSeeOther, c.get("/carrito").Code)
}

func TestCart_InsufficientStockFlash(t *testing.T) {
	s := newTestServer(t)
	p := s.product(t, "P1", "Café Tarrazú", "10.00", 5)
	s.user(t, "ana@example.com", models.RoleCustomer)
	c := s.client(t)
	c.login("ana@example.com")

	rec := c.post("/carrito/agregar/"+id(p.ID), url.Values{"cantidad": {"6"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
	assert.Contains(t, c.get("/").Body.String(), "Stock insuficiente para: Café Tarrazú (disponible: 5)")

	rec = c.post("/carrito/agregar/"+id(p.ID), url.Values{"cantidad": {"dos"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, c.get("/").Body.String(), "La cantidad no es válida")
}

func TestCart_UpdateAndRemove(t *testing.T) {
	s := newTestServer(t)
	p := s.product(t, "P1", "Café Tarrazú", "10.00", 5)
	u := s.user(t, "ana@example.com", models.RoleCustomer)
	c := s.client(t)
	c.login("ana@example.com")

	require.Equal(t, http.StatusSeeOther, c.post("/carrito/agregar/"+id(p.ID), nil).Code)
	lines, err := s.repo.ListActiveLines(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)

	rec := c.post("/carrito/actualizar/"+id(lines[0].ID), url.Values{"cantidad": {"4"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, c.get("/carrito").Body.String(), "Total: ₡40.00")

	rec = c.post("/carrito/actualizar/"+id(lines[0].ID), nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, c.get("/carrito").Body.String(), "La cantidad no es válida")

	rec = c.post("/carrito/actualizar/"+id(lines[0].ID), url.Values{"cantidad": {"dos"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, c.get("/carrito").Body.String(), "La cantidad no es válida")

	rec = c.post("/carrito/eliminar/"+id(lines[0].ID), nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, c.get("/carrito").Body.String(), "Tu carrito está vacío")

	rec = c.post("/carrito/eliminar/"+id(lines[0].ID), nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, c.get("/carrito").Body.String(), "No encontramos lo que buscabas")

	require.Equal(t, http.StatusSeeOther, c.post("/carrito/agregar/"+id(p.ID), nil).Code)
	lines, err = s.repo.ListActiveLines(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	rec = c.post("/carrito/actualizar/"+id(lines[0].ID), url.Values{"cantidad": {"-2"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	body := c.get("/carrito").Body.String()
	assert.Contains(t, body, "Producto eliminado del carrito")
	assert.Contains(t, body, "Tu carrito está vacío")
	lines, err = s.repo.ListActiveLines(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestCheckout_EmptyCartRedirects(t *testing.T) {
	s := newTestServer(t)
	s.user(t, "ana@example.com", models.RoleCustomer)
	c := s.client(t)
	c.login("ana@example.com")

	rec := c.get("/checkout")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/carrito", rec.Header().Get(echo.HeaderLocation))
}

func TestLogin_DistinctMessages(t *testing.T) {
	s := newTestServer(t)
	s.user(t, "ana@example.com", models.RoleCustomer)
	c := s.client(t)

	rec := c.post("/login", url.Values{"email": {"nadie@example.com"}, "password": {password}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
	assert.Contains(t, c.get("/login").Body.String(), "Usuario no encontrado o inactivo")

	c.post("/login", url.Values{"email": {"ana@example.com"}, "password": {"otra-clave"}})
	assert.Contains(t, c.get("/login").Body.String(), "Contraseña incorrecta")
	assert.NotContains(t, c.cookies, "sessionid")
}

func TestLogin_RedirectsToNext(t *testing.T) {
	s := newTestServer(t)
	s.user(t, "ana@example.com", models.RoleCustomer)
	c := s.client(t)

	rec := c.post("/login", url.Values{"email": {"ana@example.com"}, "password": {password}, "next": {"/mis-pedidos"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/mis-pedidos", rec.Header().Get(echo.HeaderLocation))

	rec = c.post("/login", url.Values{"email": {"ana@example.com"}, "password": {password}, "next": {"//evil.example"}})
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
}

func TestRegister_RerendersOnInvalidInput(t *testing.T) {
	s := newTestServer(t)
	s.user(t, "ana@example.com", models.RoleCustomer)
	c := s.client(t)

	rec := c.post("/registro", url.Values{"nombre": {"Ana"}, "email": {"no-es-correo"}, "password": {"corta"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Revisa los campos")
	assert.Contains(t, rec.Body.String(), `value="Ana"`)

	rec = c.post("/registro", url.Values{
		"nombre": {"Ana"}, "apellido": {"Mora"}, "email": {"ana@example.com"},
		"password": {password}, "password_confirm": {password},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "El correo ya está registrado")
}

func TestAdmin_RequiresAdminRole(t *testing.T) {
	s := newTestServer(t)
	s.user(t, "ana@example.com", models.RoleCustomer)
	c := s.client(t)
	c.login("ana@example.com")

	rec := c.get("/admin/productos")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "no tienes permisos para esta página")
}

func TestAdmin_ProductBindErrorsNameTheField(t *testing.T) {
	s := newTestServer(t)
	s.user(t, "admin@example.com", models.RoleAdmin)
	p := s.product(t, "P1", "Café", "10.00", 5)
	c := s.client(t)
	c.login("admin@example.com")

	form := url.Values{"codigo": {"CAF-2"}, "nombre": {"Otro"}, "precio": {"10"}, "stock": {"1"}, "activo": {"quizas"}}
	rec := c.post("/admin/productos/crear", form)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Revisa los campos: activo</p>")

	form.Set("activo", "on")
	form.Set("stock", "muchos")
	rec = c.post("/admin/productos/crear", form)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Revisa los campos: stock</p>")

	form.Set("activo", "quizas")
	rec = c.post("/admin/productos/editar/"+id(p.ID), form)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Revisa los campos: stock, activo</p>")
}

func TestAdmin_ProductLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.user(t, "admin@example.com", models.RoleAdmin)
	c := s.client(t)
	c.login("admin@example.com")

	require.Equal(t, http.StatusOK, c.get("/admin/productos/crear").Code)

	form := url.Values{
		"codigo": {"CAF-1"}, "nombre": {"Café Tarrazú"}, "precio": {"2500.50"},
		"stock": {"4"}, "categoria": {"Bebidas"}, "activo": {"on"},
	}
	rec := c.post("/admin/productos/crear", form)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/productos", rec.Header().Get(echo.HeaderLocation))

	body := c.get("/admin/productos").Body.String()
	assert.Contains(t, body, "Producto Café Tarrazú creado")
	assert.Contains(t, body, "₡2500.50")

	rec = c.post("/admin/productos/crear", form)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ya existe un producto con el código CAF-1")

	bad := url.Values{"codigo": {"CAF-2"}, "nombre": {"Otro"}, "precio": {"-1"}, "stock": {"1"}}
	rec = c.post("/admin/productos/crear", bad)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "precio")

	_, items, err := s.repo.ListProducts(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	p := items[0]
	assert.True(t, p.Active)

	rec = c.get("/admin/productos/editar/" + id(p.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="CAF-1"`)

	edit := url.Values{"codigo": {"CAF-1"}, "nombre": {"Café Tarrazú"}, "precio": {"2600"}, "stock": {"2"}}
	rec = c.post("/admin/productos/editar/"+id(p.ID), edit)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	got, err := s.repo.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.False(t, got.Active, "unchecked checkbox deactivates")
	assert.Equal(t, "2600.00", got.Price.StringFixed(2))

	rec = c.post("/admin/productos/eliminar/"+id(p.ID), nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	_, err = s.repo.GetProduct(context.Background(), p.ID)
	assert.Error(t, err)

	assert.Equal(t, http.StatusNotFound, c.get("/admin/productos/editar/"+id(p.ID)+"x").Code)
}

func TestAdmin_AdvanceOrder(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	s.user(t, "admin@example.com", models.RoleAdmin)
	u := s.user(t, "ana@example.com", models.RoleCustomer)
	p := s.product(t, "P1", "Café", "10.00", 5)
	a := &models.Address{UserID: u.ID, Province: "San José", Canton: "Escazú", District: "San Rafael", Detail: "Casa 1", IsDefault: true}
	require.NoError(t, s.repo.CreateAddress(ctx, a))
	o := &models.Order{
		UserID: u.ID, AddressID: a.ID, ProductID: p.ID, CartLineID: 1, Quantity: 1,
		UnitPrice: p.Price, Discount: decimal.Zero, PaymentMethod: "efectivo", State: models.OrderPending,
	}
	require.NoError(t, s.repo.CreateOrder(ctx, o))

	c := s.client(t)
	c.login("admin@example.com")

	body := c.get("/admin/pedidos").Body.String()
	assert.Contains(t, body, "Marcar como Pagado")

	rec := c.post("/admin/pedidos/"+id(o.ID)+"/estado", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	got, err := s.repo.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, got.State)

	rec = c.post("/admin/productos/eliminar/"+id(p.ID), nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, c.get("/admin/productos").Body.String(), "el producto tiene pedidos asociados")
}

func TestSearchAPI(t *testing.T) {
	s := newTestServer(t)
	s.product(t, "P1", "Café Tarrazú", "10.00", 5)
	s.product(t, "P2", "Azúcar", "3.00", 5)
	c := s.client(t)

	rec := c.get("/api/buscar?q=tarr")
	require.Equal(t, http.StatusOK, rec.Code)
	var res struct {
		Source   string `json:"source"`
		Total    int64  `json:"total"`
		Products []struct {
			Name string `json:"name"`
		} `json:"products"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "database", res.Source)
	assert.EqualValues(t, 1, res.Total)
	require.Len(t, res.Products, 1)
	assert.Equal(t, "Café Tarrazú", res.Products[0].Name)

	rec = c.get("/api/buscar")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, bytes.Contains(rec.Body.Bytes(), []byte(`"error"`)))
}

func TestNotFoundPage(t *testing.T) {
	s := newTestServer(t)
	rec := s.client(t).get("/no-existe")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "página no encontrada")
}
