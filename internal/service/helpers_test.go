package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/storefront/internal/db/dbtest"
	"github.com/Skotchmaster/storefront/internal/events/eventstest"
	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
)

type env struct {
	Repo     *repo.GormRepo
	Events   *eventstest.Recorder
	Auth     *AuthService
	Cart     *CartService
	Checkout *CheckoutService
	Catalog  *CatalogService
	Address  *AddressService
	Orders   *OrderService
	Admin    *AdminService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	r := repo.New(dbtest.New(t))
	rec := &eventstest.Recorder{}
	return &env{
		Repo:     r,
		Events:   rec,
		Auth:     &AuthService{Repo: r, Events: rec, Secret: []byte("0123456789abcdef"), TTL: time.Hour, HashCost: bcrypt.MinCost},
		Cart:     &CartService{Repo: r, Events: rec},
		Checkout: &CheckoutService{Repo: r, Events: rec, Search: search.Nop{}},
		Catalog:  &CatalogService{Repo: r, Search: search.Nop{}},
		Address:  &AddressService{Repo: r},
		Orders:   &OrderService{Repo: r},
		Admin:    &AdminService{Repo: r, Events: rec, Search: search.Nop{}},
	}
}

func (e *env) user(t *testing.T, email string) identity.Identity {
	t.Helper()
	u := &models.User{FirstName: "Ana", LastName: "Mora", Email: email, PasswordHash: "x", Role: models.RoleCustomer, Active: true}
	require.NoError(t, e.Repo.CreateUserIfNotExists(context.Background(), u))
	return identity.FromUser(u, "")
}

func (e *env) product(t *testing.T, code, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Code: code, Name: "Producto " + code, Price: decimal.RequireFromString(price), Stock: stock, Active: true}
	require.NoError(t, e.Repo.CreateProduct(context.Background(), p))
	return p
}

func (e *env) address(t *testing.T, id identity.Identity) *models.Address {
	t.Helper()
	a := &models.Address{UserID: id.UserID, Province: "San José", Canton: "Escazú", District: "San Rafael", Detail: "Casa 1", IsDefault: true}
	require.NoError(t, e.Repo.CreateAddress(context.Background(), a))
	return a
}

func (e *env) stock(t *testing.T, productID uint) int {
	t.Helper()
	p, err := e.Repo.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}
