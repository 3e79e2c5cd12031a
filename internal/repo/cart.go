package repo

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) ListActiveLines(ctx context.Context, userID uint) ([]models.CartLine, error) {
	var items []models.CartLine
	if err := r.DB.WithContext(ctx).
		Preload("Product").
		Where("user_id = ? AND state = ?", userID, models.CartLineActive).
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) FindActiveLineByProduct(ctx context.Context, userID, productID uint) (*models.CartLine, error) {
	var line models.CartLine
	if err := r.DB.WithContext(ctx).
		Where("user_id = ? AND product_id = ? AND state = ?", userID, productID, models.CartLineActive).
		First(&line).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *GormRepo) GetActiveLine(ctx context.Context, userID, lineID uint) (*models.CartLine, error) {
	var line models.CartLine
	if err := r.DB.WithContext(ctx).
		Preload("Product").
		Where("id = ? AND user_id = ? AND state = ?", lineID, userID, models.CartLineActive).
		First(&line).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *GormRepo) CreateCartLine(ctx context.Context, line *models.CartLine) error {
	return r.DB.WithContext(ctx).Omit("Product").Create(line).Error
}

func (r *GormRepo) UpdateLineQuantity(ctx context.Context, lineID uint, qty int) error {
	return r.DB.WithContext(ctx).Model(&models.CartLine{}).
		Where("id = ? AND state = ?", lineID, models.CartLineActive).
		Update("quantity", qty).Error
}

func (r *GormRepo) DeleteCartLine(ctx context.Context, userID, lineID uint) (int64, error) {
	res := r.DB.WithContext(ctx).
		Where("id = ? AND user_id = ? AND state = ?", lineID, userID, models.CartLineActive).
		Delete(&models.CartLine{})
	return res.RowsAffected, res.Error
}

func (r *GormRepo) DeleteActiveLinesForProduct(ctx context.Context, productID uint) (int64, error) {
	res := r.DB.WithContext(ctx).
		Where("product_id = ? AND state = ?", productID, models.CartLineActive).
		Delete(&models.CartLine{})
	return res.RowsAffected, res.Error
}

// CancelActiveLinesForProduct moves every active line holding the product to
// cancelled.
func (r *GormRepo) CancelActiveLinesForProduct(ctx context.Context, productID uint) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.CartLine{}).
		Where("product_id = ? AND state = ?", productID, models.CartLineActive).
		Update("state", models.CartLineCancelled)
	return res.RowsAffected, res.Error
}

// MarkLineConverted flips an active line to converted. Returns 0 rows when
// the line was no longer active.
func (r *GormRepo) MarkLineConverted(ctx context.Context, lineID uint) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.CartLine{}).
		Where("id = ? AND state = ?", lineID, models.CartLineActive).
		Update("state", models.CartLineConverted)
	return res.RowsAffected, res.Error
}
