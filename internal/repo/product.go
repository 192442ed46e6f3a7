package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *GormRepo) ListProducts(ctx context.Context, offset, limit int) (int64, []models.Product, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Product{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Product, 0, limit)
	if err := r.DB.WithContext(ctx).Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

// SearchProducts is a portable substring match on name and description used
// when no search index is configured.
func (r *GormRepo) SearchProducts(ctx context.Context, q string, offset, limit int) (int64, []models.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return 0, []models.Product{}, nil
	}
	pattern := "%" + strings.ToLower(q) + "%"
	where := "LOWER(name) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ?"

	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Product{}).Where(where, pattern, pattern).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Product, 0, limit)
	if err := r.DB.WithContext(ctx).
		Where(where, pattern, pattern).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

// ProductsByIDs returns the products that still exist, keyed by id.
func (r *GormRepo) ProductsByIDs(ctx context.Context, ids []uint) (map[uint]models.Product, error) {
	return r.productsByIDs(r.DB.WithContext(ctx), ids)
}

// LockProducts is ProductsByIDs with the rows locked until the surrounding
// transaction ends. Rows are locked in ascending id order so two checkouts
// touching the same products cannot deadlock.
func (r *GormRepo) LockProducts(ctx context.Context, ids []uint) (map[uint]models.Product, error) {
	return r.productsByIDs(forUpdate(r.DB.WithContext(ctx)), ids)
}

func (r *GormRepo) LockProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := forUpdate(r.DB.WithContext(ctx)).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *GormRepo) productsByIDs(db *gorm.DB, ids []uint) (map[uint]models.Product, error) {
	out := make(map[uint]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var products []models.Product
	if err := db.Where("id IN ?", ids).Order("id ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, prod *models.Product) error {
	return r.DB.WithContext(ctx).Create(prod).Error
}

// UpdateProductFields writes only the given columns, leaving stock untouched
// unless it is among them.
func (r *GormRepo) UpdateProductFields(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(fields).Error
}

func (r *GormRepo) DeleteProduct(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DecrementStock subtracts qty only while enough stock is left, so stock can
// never drop below zero even if an earlier read was stale.
func (r *GormRepo) DecrementStock(ctx context.Context, id uint, qty int) error {
	res := r.DB.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStockConflict
	}
	return nil
}
