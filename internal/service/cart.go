package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/pricing"
	"github.com/Skotchmaster/storefront/internal/repo"
)

type CartService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

type Cart struct {
	Lines []models.CartLine
	Total decimal.Decimal
}

func (c Cart) Empty() bool { return len(c.Lines) == 0 }

type Summary struct {
	Count int
	Total decimal.Decimal
}

func requireUser(id identity.Identity) error {
	if id.UserID == 0 {
		return ErrUnauthenticated
	}
	return nil
}

func (s *CartService) AddToCart(ctx context.Context, id identity.Identity, productID uint, quantity int) (line *models.CartLine, err error) {
	defer func() { metrics.CartOperations.WithLabelValues("add", metrics.Result(err, classify)).Inc() }()

	if err := requireUser(id); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be more than zero: %w", ErrValidation)
	}

	err = s.Repo.Tx(ctx, func(tx *repo.GormRepo) error {
		p, err := tx.GetActiveProduct(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("product %d not found: %w", productID, ErrNotFound)
			}
			return err
		}

		existing, err := tx.FindActiveLineByProduct(ctx, id.UserID, productID)
		switch {
		case err == nil:
			merged := existing.Quantity + quantity
			if merged > p.Stock {
				return shortage(p, merged)
			}
			if err := tx.UpdateLineQuantity(ctx, existing.ID, merged); err != nil {
				return err
			}
			existing.Quantity = merged
			existing.Subtotal = pricing.LineSubtotal(merged, existing.UnitPrice)
			existing.Product = p
			line = existing
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		if quantity > p.Stock {
			return shortage(p, quantity)
		}
		line = &models.CartLine{
			UserID:    id.UserID,
			ProductID: p.ID,
			Quantity:  quantity,
			UnitPrice: p.Price,
			State:     models.CartLineActive,
		}
		if err := tx.CreateCartLine(ctx, line); err != nil {
			return err
		}
		line.Product = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Publish(ctx, s.Events, events.TopicCart, events.Key(id.UserID), map[string]any{
		"type":       "cart_add",
		"user_id":    id.UserID,
		"product_id": productID,
		"quantity":   line.Quantity,
	})
	return line, nil
}

func shortage(p *models.Product, requested int) error {
	return &StockError{Items: []Shortage{{
		ProductID: p.ID,
		Name:      p.Name,
		Requested: requested,
		Available: p.Stock,
	}}}
}

// UpdateQuantity sets a line's quantity. A quantity of zero or less removes
// the line, in which case the returned line is nil.
func (s *CartService) UpdateQuantity(ctx context.Context, id identity.Identity, lineID uint, quantity int) (line *models.CartLine, err error) {
	defer func() { metrics.CartOperations.WithLabelValues("update", metrics.Result(err, classify)).Inc() }()

	if err := requireUser(id); err != nil {
		return nil, err
	}

	err = s.Repo.Tx(ctx, func(tx *repo.GormRepo) error {
		current, err := tx.GetActiveLine(ctx, id.UserID, lineID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("cart line %d not found: %w", lineID, ErrNotFound)
			}
			return err
		}

		if quantity <= 0 {
			_, err := tx.DeleteCartLine(ctx, id.UserID, lineID)
			return err
		}

		if current.Product == nil || !current.Product.Active {
			return fmt.Errorf("product %d no longer available: %w", current.ProductID, ErrNotFound)
		}
		if quantity > current.Product.Stock {
			return shortage(current.Product, quantity)
		}
		if err := tx.UpdateLineQuantity(ctx, lineID, quantity); err != nil {
			return err
		}
		current.Quantity = quantity
		current.Subtotal = pricing.LineSubtotal(quantity, current.UnitPrice)
		line = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Publish(ctx, s.Events, events.TopicCart, events.Key(id.UserID), map[string]any{
		"type":     "cart_update",
		"user_id":  id.UserID,
		"line_id":  lineID,
		"quantity": max(quantity, 0),
	})
	return line, nil
}

func (s *CartService) RemoveLine(ctx context.Context, id identity.Identity, lineID uint) (err error) {
	defer func() { metrics.CartOperations.WithLabelValues("remove", metrics.Result(err, classify)).Inc() }()

	if err := requireUser(id); err != nil {
		return err
	}
	n, err := s.Repo.DeleteCartLine(ctx, id.UserID, lineID)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("cart line %d not found: %w", lineID, ErrNotFound)
	}

	events.Publish(ctx, s.Events, events.TopicCart, events.Key(id.UserID), map[string]any{
		"type":    "cart_remove",
		"user_id": id.UserID,
		"line_id": lineID,
	})
	return nil
}

func (s *CartService) ListActive(ctx context.Context, id identity.Identity) (*Cart, error) {
	if err := requireUser(id); err != nil {
		return nil, err
	}
	lines, err := s.Repo.ListActiveLines(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	return &Cart{Lines: lines, Total: cartTotal(lines)}, nil
}

// Summary is empty for anonymous callers.
func (s *CartService) Summary(ctx context.Context, id identity.Identity) (Summary, error) {
	if id.UserID == 0 {
		return Summary{Total: decimal.Zero}, nil
	}
	lines, err := s.Repo.ListActiveLines(ctx, id.UserID)
	if err != nil {
		return Summary{Total: decimal.Zero}, err
	}
	return Summary{Count: len(lines), Total: cartTotal(lines)}, nil
}

func cartTotal(lines []models.CartLine) decimal.Decimal {
	subtotals := make([]decimal.Decimal, len(lines))
	for i, l := range lines {
		subtotals[i] = l.Subtotal
	}
	return pricing.Sum(subtotals...)
}
