package view

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/models"
)

func TestRenderer_LayoutAndPage(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	var buf bytes.Buffer
	err = r.Render(&buf, "orders.html", Page{
		Title:     "Mis pedidos",
		User:      identity.Identity{UserID: 1, Name: "Ana Mora"},
		LoggedIn:  true,
		CSRF:      "tok",
		CartCount: 2,
		CartTotal: decimal.RequireFromString("30"),
		Flashes:   []Flash{{Kind: "success", Message: "Listo"}},
		Data: []models.Order{{
			ID: 7, Quantity: 3, UnitPrice: decimal.RequireFromString("10"),
			Total: decimal.RequireFromString("30"), PaymentMethod: "tarjeta", State: models.OrderPending,
		}},
	}, nil)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "<title>Mis pedidos | Tienda</title>")
	assert.Contains(t, out, "Carrito (2) ₡30.00")
	assert.Contains(t, out, `value="tok"`)
	assert.Contains(t, out, "flash-success")
	assert.Contains(t, out, "Pendiente")
	assert.Contains(t, out, "Tarjeta")
}

func TestRenderer_UnknownTemplate(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	assert.Error(t, r.Render(&bytes.Buffer{}, "nope.html", Page{}, nil))
}

func TestFuncs(t *testing.T) {
	f := Funcs()
	assert.Equal(t, "₡1234.50", f["money"].(func(decimal.Decimal) string)(decimal.RequireFromString("1234.5")))
	assert.Equal(t, "Pagado", f["nextState"].(func(string) string)(models.OrderPending))
	assert.Equal(t, "", f["nextState"].(func(string) string)(models.OrderDelivered))
	assert.Equal(t, "Enviado", f["stateLabel"].(func(string) string)(models.OrderShipped))
}
