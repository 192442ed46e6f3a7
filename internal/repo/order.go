package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *GormRepo) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	return r.DB.WithContext(ctx).Create(item).Error
}

func (r *GormRepo) MarkOrderPaid(ctx context.Context, orderID uint, transactionID, paymentURL string) error {
	return r.DB.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"status":         models.OrderStatusPaid,
			"transaction_id": transactionID,
			"payment_url":    paymentURL,
		}).Error
}

// TransitionOrderStatus moves an order from one status to another and reports
// whether a row actually changed. A stale "from" leaves the order untouched.
func (r *GormRepo) TransitionOrderStatus(ctx context.Context, orderID uint, from, to string) (bool, error) {
	res := r.DB.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepo) GetOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders returns the user's orders newest first, with their lines.
func (r *GormRepo) ListOrders(ctx context.Context, userID uint) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
