package service

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

type OrderService struct {
	Repo *repo.GormRepo
}

// ListOrders returns the caller's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, id identity.Identity) ([]models.Order, error) {
	if err := requireUser(id); err != nil {
		return nil, err
	}
	return s.Repo.ListUserOrders(ctx, id.UserID)
}
