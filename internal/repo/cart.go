package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

// GetOrCreateCart returns the user's single cart, creating it on first use.
// Concurrent first calls converge on the same row through the unique user_id.
func (r *GormRepo) GetOrCreateCart(ctx context.Context, userID uint) (*models.Cart, error) {
	db := r.DB.WithContext(ctx)

	fresh := models.Cart{UserID: userID}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&fresh).Error; err != nil {
		return nil, err
	}

	var cart models.Cart
	if err := db.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormRepo) CartItems(ctx context.Context, cartID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.DB.WithContext(ctx).Where("cart_id = ?", cartID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) FindCartItem(ctx context.Context, cartID, productID uint) (*models.CartItem, error) {
	var item models.CartItem
	err := forUpdate(r.DB.WithContext(ctx)).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) CreateCartItem(ctx context.Context, item *models.CartItem) error {
	return r.DB.WithContext(ctx).Create(item).Error
}

func (r *GormRepo) SetCartItemQuantity(ctx context.Context, itemID uint, quantity int) error {
	return r.DB.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Update("quantity", quantity).Error
}

// DeleteCartItem removes a line only if it belongs to the given cart.
func (r *GormRepo) DeleteCartItem(ctx context.Context, cartID, itemID uint) error {
	res := r.DB.WithContext(ctx).Where("id = ? AND cart_id = ?", itemID, cartID).Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) ClearCart(ctx context.Context, cartID uint) error {
	return r.DB.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}
