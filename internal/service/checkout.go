package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/pricing"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type CheckoutService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
	// Search receives the debited products after commit. Nil skips it.
	Search search.Index
}

// Checkout converts every active cart line into a pending order. Either all
// lines convert or none do.
func (s *CheckoutService) Checkout(ctx context.Context, id identity.Identity, in transport.CheckoutForm) (orders []models.Order, err error) {
	l := logging.FromContext(ctx).With("svc", "checkout", "user_id", id.UserID)
	defer func() { metrics.Checkouts.WithLabelValues(metrics.Result(err, classify)).Inc() }()

	if err := requireUser(id); err != nil {
		return nil, err
	}
	in.Normalize()
	if err := validateForm(&in); err != nil {
		return nil, err
	}
	var ref *string
	if in.TransactionRef != "" {
		ref = &in.TransactionRef
	}

	err = s.Repo.Tx(ctx, func(tx *repo.GormRepo) error {
		lines, err := tx.ListActiveLines(ctx, id.UserID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		addr, err := tx.GetUserAddress(ctx, id.UserID, in.AddressID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("address %d not found: %w", in.AddressID, ErrNotFound)
			}
			return err
		}

		if err := checkStock(lines); err != nil {
			return err
		}

		orders = make([]models.Order, 0, len(lines))
		for _, line := range lines {
			subtotal := pricing.LineSubtotal(line.Quantity, line.UnitPrice)
			discount := pricing.LineDiscount(line.Quantity, line.UnitPrice)
			o := models.Order{
				UserID:         id.UserID,
				AddressID:      addr.ID,
				ProductID:      line.ProductID,
				CartLineID:     line.ID,
				Quantity:       line.Quantity,
				UnitPrice:      line.UnitPrice,
				Subtotal:       subtotal,
				Discount:       discount,
				Total:          pricing.OrderTotal(subtotal, discount),
				PaymentMethod:  in.PaymentMethod,
				TransactionRef: ref,
				State:          models.OrderPending,
			}
			if err := tx.CreateOrder(ctx, &o); err != nil {
				return err
			}

			n, err := tx.DecrementStock(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			if n != 1 {
				return shortage(line.Product, line.Quantity)
			}

			n, err = tx.MarkLineConverted(ctx, line.ID)
			if err != nil {
				return err
			}
			if n != 1 {
				return fmt.Errorf("cart line %d changed during checkout: %w", line.ID, ErrConflict)
			}

			o.Product = line.Product
			o.Address = addr
			orders = append(orders, o)
		}
		return nil
	})
	if err != nil {
		var se *StockError
		if errors.As(err, &se) {
			l.Warn("checkout_error", "status", 409, "reason", "insufficient stock", "error", err)
		} else if classify(err) == "" {
			l.Error("checkout_error", "status", 500, "error", err)
		}
		return nil, err
	}

	metrics.OrdersCreated.Add(float64(len(orders)))
	total := decimal.Zero
	ids := make([]uint, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		total = total.Add(o.Total)
	}
	events.Publish(ctx, s.Events, events.TopicOrder, events.Key(id.UserID), map[string]any{
		"type":           "order_created",
		"user_id":        id.UserID,
		"order_ids":      ids,
		"total":          pricing.Format(total),
		"payment_method": in.PaymentMethod,
	})
	s.reindex(ctx, orders)
	l.Info("checkout_success", "orders", len(orders), "total", pricing.Format(total))
	return orders, nil
}

// reindex pushes the post-checkout stock of every debited product.
func (s *CheckoutService) reindex(ctx context.Context, orders []models.Order) {
	if s.Search == nil {
		return
	}
	seen := make(map[uint]bool, len(orders))
	for _, o := range orders {
		if seen[o.ProductID] {
			continue
		}
		seen[o.ProductID] = true
		p, err := s.Repo.GetProduct(ctx, o.ProductID)
		if err == nil {
			err = s.Search.IndexProduct(ctx, *p)
		}
		if err != nil {
			logging.FromContext(ctx).Warn("search_index_error", "product_id", o.ProductID, "error", err)
		}
	}
}

// checkStock reports every line whose product is gone, inactive or short.
func checkStock(lines []models.CartLine) error {
	var short []Shortage
	for _, line := range lines {
		p := line.Product
		switch {
		case p == nil:
			short = append(short, Shortage{ProductID: line.ProductID, Requested: line.Quantity})
		case !p.Active:
			short = append(short, Shortage{ProductID: p.ID, Name: p.Name, Requested: line.Quantity})
		case line.Quantity > p.Stock:
			short = append(short, Shortage{ProductID: p.ID, Name: p.Name, Requested: line.Quantity, Available: p.Stock})
		}
	}
	if len(short) > 0 {
		return &StockError{Items: short}
	}
	return nil
}
