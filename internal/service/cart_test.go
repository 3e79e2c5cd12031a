package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/models"
)

func TestAddToCart_NewLineSnapshotsPrice(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id := e.user(t, "ana@example.com")
	p := e.product(t, "P1", "10.00", 5)

	line, err := e.Cart.AddToCart(ctx, id, p.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, line.Quantity)
	assert.Equal(t, "10.00", line.UnitPrice.StringFixed(2))
	assert.Equal(t, "30.00", line.Subtotal.StringFixed(2))
	assert.Equal(t, models.CartLineActive, line.State)
	assert.Equal(t, []string{"cart_add"}, e.Events.Types(events.TopicCart))
}

func TestAddToCart_MergesAndRevalidates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id := e.user(t, "ana@example.com")
	p := e.product(t, "P1", "10.00", 5)

	_, err := e.Cart.AddToCart(ctx, id, p.ID, 2)
	require.NoError(t, err)
	line, err := e.Cart.AddToCart(ctx, id, p.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, line.Quantity)

	cart, err := e.Cart.ListActive(ctx, id)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "50.00", cart.Total.StringFixed(2))

	_, err = e.Cart.AddToCart(ctx, id, p.ID, 1)
	require.ErrorIs(t, err, ErrInsufficientStock)
	var se *StockError
	require.ErrorAs(t, err, &se)
	require.Len(t, se.Items, 1)
	assert.Equal(t, 6, se.Items[0].Requested)
	assert.Equal(t, 5, se.Items[0].Available)

	cart, err = e.Cart.ListActive(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5, cart.Lines[0].Quantity)
}

func TestAddToCart_Rejects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id := e.user(t, "ana@example.com")
	p := e.product(t, "P1", "10.00", 2)
	hidden := e.product(t, "P2", "10.00", 2)
	require.NoError(t, e.Repo.DB.Model(hidden).Update("active", false).Error)

	_, err := e.Cart.AddToCart(ctx, id, p.ID, 0)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.Cart.AddToCart(ctx, id, p.ID, -1)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.Cart.AddToCart(ctx, id, 999, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.Cart.AddToCart(ctx, id, hidden.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.Cart.AddToCart(ctx, id, p.ID, 3)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	_, err = e.Cart.AddToCart(ctx, identity.Identity{}, p.ID, 1)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	cart, err := e.Cart.ListActive(ctx, id)
	require.NoError(t, err)
	assert.True(t, cart.Empty())
	assert.Empty(t, e.Events.Types(events.TopicCart))
}

func TestAddToCart_PriceChangeAfterAdd(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id := e.user(t, "ana@example.com")
	p := e.product(t, "P1", "10.00", 5)

	_, err := e.Cart.AddToCart(ctx, id, p.ID, 1)
	require.NoError(t, err)
	require.NoError(t, e.Repo.DB.Model(p).Update("price", "12.00").Error)

	line, err := e.Cart.AddToCart(ctx, id, p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "10.00", line.UnitPrice.StringFixed(2))
	assert.Equal(t, "20.00", line.Subtotal.StringFixed(2))
}

func TestUpdateQuantity(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id := e.user(t, "ana@example.com")
	other := e.user(t, "luis@example.com")
	p := e.product(t, "P1", "10.00", 4)

	line, err := e.Cart.AddToCart(ctx, id, p.ID, 1)
	require.NoError(t, err)

	updated, err := e.Cart.UpdateQuantity(ctx, id, line.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, "40.00", updated.Subtotal.StringFixed(2))

	_, err = e.Cart.UpdateQuantity(ctx, id, line.ID, 5)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	_, err = e.Cart.UpdateQuantity(ctx, other, line.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	removed, err := e.Cart.UpdateQuantity(ctx, id, line.ID, 0)
	require.NoError(t, err)
	assert.Nil(t, removed)

	cart, err := e.Cart.ListActive(ctx, id)
	require.NoError(t, err)
	assert.True(t, cart.Empty())

	line, err = e.Cart.AddToCart(ctx, id, p.ID, 2)
	require.NoError(t, err)
	removed, err = e.Cart.UpdateQuantity(ctx, id, line.ID, -3)
	require.NoError(t, err)
	assert.Nil(t, removed)

	cart, err = e.Cart.ListActive(ctx, id)
	require.NoError(t, err)
	assert.True(t, cart.Empty())
}

func TestRemoveLine(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id := e.user(t, "ana@example.com")
	other := e.user(t, "luis@example.com")
	p := e.product(t, "P1", "10.00", 4)

	line, err := e.Cart.AddToCart(ctx, id, p.ID, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, e.Cart.RemoveLine(ctx, other, line.ID), ErrNotFound)
	require.NoError(t, e.Cart.RemoveLine(ctx, id, line.ID))
	assert.ErrorIs(t, e.Cart.RemoveLine(ctx, id, line.ID), ErrNotFound)
}

func TestSummary(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id := e.user(t, "ana@example.com")
	p1 := e.product(t, "P1", "10.00", 5)
	p2 := e.product(t, "P2", "2.50", 5)

	sum, err := e.Cart.Summary(ctx, identity.Identity{})
	require.NoError(t, err)
	assert.Zero(t, sum.Count)

	_, err = e.Cart.AddToCart(ctx, id, p1.ID, 2)
	require.NoError(t, err)
	_, err = e.Cart.AddToCart(ctx, id, p2.ID, 3)
	require.NoError(t, err)

	sum, err = e.Cart.Summary(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Count)
	assert.Equal(t, "27.50", sum.Total.StringFixed(2))
}
