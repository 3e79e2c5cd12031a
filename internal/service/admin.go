package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
)

type AdminService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
	Search search.Index
}

type ProductPage struct {
	Products []models.Product
	Page     util.Page
}

type OrderPage struct {
	Orders []models.Order
	Page   util.Page
}

func (s *AdminService) ListProducts(ctx context.Context, page int) (*ProductPage, error) {
	offset, limit := util.Calculate(page, util.DefaultPageSize)
	total, items, err := s.Repo.ListProducts(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	return &ProductPage{Products: items, Page: util.NewPage(page, limit, total)}, nil
}

func (s *AdminService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %d not found: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

// FormFor pre-fills the edit form with a product's current values.
func FormFor(p *models.Product) transport.ProductForm {
	return transport.ProductForm{
		Code:        p.Code,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.CategoryName(),
		Price:       p.Price.StringFixed(2),
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
		Active:      transport.Checkbox(p.Active),
	}
}

func applyForm(p *models.Product, in transport.ProductForm) error {
	price, err := decimal.NewFromString(in.Price)
	if err != nil || price.IsNegative() {
		return &FieldError{Fields: []string{"precio"}, err: fmt.Errorf("invalid price %q", in.Price)}
	}
	p.Code = in.Code
	p.Name = in.Name
	p.Description = in.Description
	p.Category = nil
	if in.Category != "" {
		cat := in.Category
		p.Category = &cat
	}
	p.Price = price.Round(2)
	p.Stock = in.Stock
	p.ImageURL = in.ImageURL
	p.Active = in.Active.Bool()
	return nil
}

func (s *AdminService) CreateProduct(ctx context.Context, in transport.ProductForm) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "admin.create_product")

	in.Normalize()
	if err := validateForm(&in); err != nil {
		return nil, err
	}
	var p models.Product
	if err := applyForm(&p, in); err != nil {
		return nil, err
	}

	taken, err := s.Repo.ProductCodeTaken(ctx, p.Code, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("product code %s in use: %w", p.Code, ErrConflict)
	}
	if err := s.Repo.CreateProduct(ctx, &p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("product code %s in use: %w", p.Code, ErrConflict)
		}
		l.Error("product_create_error", "status", 500, "error", err)
		return nil, err
	}

	s.syncIndex(ctx, &p)
	s.publish(ctx, "product_created", &p)
	return &p, nil
}

func (s *AdminService) UpdateProduct(ctx context.Context, id uint, in transport.ProductForm) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "admin.update_product", "product_id", id)

	in.Normalize()
	if err := validateForm(&in); err != nil {
		return nil, err
	}
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	wasActive := p.Active
	if err := applyForm(p, in); err != nil {
		return nil, err
	}

	taken, err := s.Repo.ProductCodeTaken(ctx, p.Code, p.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("product code %s in use: %w", p.Code, ErrConflict)
	}
	var cancelled int64
	err = s.Repo.Tx(ctx, func(tx *repo.GormRepo) error {
		if err := tx.SaveProduct(ctx, p); err != nil {
			return err
		}
		if wasActive && !p.Active {
			n, err := tx.CancelActiveLinesForProduct(ctx, p.ID)
			if err != nil {
				return err
			}
			cancelled = n
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("product code %s in use: %w", p.Code, ErrConflict)
		}
		l.Error("product_update_error", "status", 500, "error", err)
		return nil, err
	}
	if cancelled > 0 {
		l.Info("cart_lines_cancelled", "lines", cancelled)
	}

	s.syncIndex(ctx, p)
	s.publish(ctx, "product_updated", p)
	return p, nil
}

// DeleteProduct refuses products that orders still reference. Active cart
// lines holding the product go with it.
func (s *AdminService) DeleteProduct(ctx context.Context, id uint) error {
	l := logging.FromContext(ctx).With("svc", "admin.delete_product", "product_id", id)

	var removedLines int64
	err := s.Repo.Tx(ctx, func(tx *repo.GormRepo) error {
		if _, err := tx.GetProduct(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("product %d not found: %w", id, ErrNotFound)
			}
			return err
		}
		n, err := tx.CountOrdersForProduct(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("product %d has %d orders: %w", id, n, ErrConflict)
		}
		if removedLines, err = tx.DeleteActiveLinesForProduct(ctx, id); err != nil {
			return err
		}
		return tx.DeleteProduct(ctx, id)
	})
	if err != nil {
		if classify(err) == "" {
			l.Error("product_delete_error", "status", 500, "error", err)
		}
		return err
	}

	if s.Search != nil {
		if err := s.Search.DeleteProduct(ctx, id); err != nil {
			l.Warn("search_index_error", "reason", "cannot delete document", "error", err)
		}
	}
	events.Publish(ctx, s.Events, events.TopicProduct, events.Key(id), map[string]any{
		"type":          "product_deleted",
		"product_id":    id,
		"removed_lines": removedLines,
	})
	return nil
}

func (s *AdminService) syncIndex(ctx context.Context, p *models.Product) {
	if s.Search == nil {
		return
	}
	if err := s.Search.IndexProduct(ctx, *p); err != nil {
		logging.FromContext(ctx).Warn("search_index_error", "reason", "cannot index product", "product_id", p.ID, "error", err)
	}
}

// ReindexAll pushes every product to the search index, a page at a time.
func (s *AdminService) ReindexAll(ctx context.Context) (int, error) {
	if s.Search == nil {
		return 0, search.ErrDisabled
	}
	const batch = 200
	done := 0
	for offset := 0; ; offset += batch {
		total, items, err := s.Repo.ListProducts(ctx, offset, batch)
		if err != nil {
			return done, err
		}
		for _, p := range items {
			if err := s.Search.IndexProduct(ctx, p); err != nil {
				return done, fmt.Errorf("index product %d: %w", p.ID, err)
			}
			done++
		}
		if len(items) < batch || int64(offset+len(items)) >= total {
			break
		}
	}
	logging.FromContext(ctx).Info("search_reindex", "products", done)
	return done, nil
}

func (s *AdminService) publish(ctx context.Context, kind string, p *models.Product) {
	events.Publish(ctx, s.Events, events.TopicProduct, events.Key(p.ID), map[string]any{
		"type":       kind,
		"product_id": p.ID,
		"code":       p.Code,
		"price":      p.Price.StringFixed(2),
		"stock":      p.Stock,
		"active":     p.Active,
	})
}

func (s *AdminService) ListOrders(ctx context.Context, page int) (*OrderPage, error) {
	offset, limit := util.Calculate(page, util.DefaultPageSize)
	total, items, err := s.Repo.ListOrders(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	return &OrderPage{Orders: items, Page: util.NewPage(page, limit, total)}, nil
}

// AdvanceOrder moves an order one step along pending, paid, shipped, delivered.
func (s *AdminService) AdvanceOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order *models.Order
	err := s.Repo.Tx(ctx, func(tx *repo.GormRepo) error {
		o, err := tx.GetOrder(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("order %d not found: %w", id, ErrNotFound)
			}
			return err
		}
		next, ok := models.NextOrderState(o.State)
		if !ok {
			return fmt.Errorf("order %d is %s: %w", id, o.State, ErrConflict)
		}
		n, err := tx.SetOrderState(ctx, id, o.State, next)
		if err != nil {
			return err
		}
		if n != 1 {
			return fmt.Errorf("order %d changed concurrently: %w", id, ErrConflict)
		}
		o.State = next
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Publish(ctx, s.Events, events.TopicOrder, events.Key(order.UserID), map[string]any{
		"type":     "order_state_changed",
		"order_id": order.ID,
		"user_id":  order.UserID,
		"state":    order.State,
	})
	return order, nil
}
