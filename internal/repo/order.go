package repo

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) CreateOrder(ctx context.Context, o *models.Order) error {
	return r.DB.WithContext(ctx).Omit("Product", "Address").Create(o).Error
}

func (r *GormRepo) ListUserOrders(ctx context.Context, userID uint) ([]models.Order, error) {
	var items []models.Order
	if err := r.DB.WithContext(ctx).
		Preload("Product").Preload("Address").
		Where("user_id = ?", userID).
		Order("placed_at DESC").Order("id DESC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, offset, limit int) (int64, []models.Order, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Order{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Order, 0, limit)
	if err := r.DB.WithContext(ctx).
		Preload("Product").Preload("Address").
		Order("placed_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	if err := r.DB.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// SetOrderState moves an order from one state to another. Returns 0 rows when
// the order was not in the expected state.
func (r *GormRepo) SetOrderState(ctx context.Context, id uint, from, to string) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND state = ?", id, from).
		Update("state", to)
	return res.RowsAffected, res.Error
}

func (r *GormRepo) CountOrdersForProduct(ctx context.Context, productID uint) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Order{}).Where("product_id = ?", productID).Count(&n).Error
	return n, err
}
