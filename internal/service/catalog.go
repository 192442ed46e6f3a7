package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type CatalogService struct {
	Repo   *repo.GormRepo
	Events mykafka.Publisher
	// Index is optional; without it search falls back to the database.
	Index ProductIndexer
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product not found: %w", ErrNotFound)
	}
	return p, err
}

func (s *CatalogService) ListProducts(ctx context.Context, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.ListProducts(ctx, offset, limit)
}

func (s *CatalogService) SearchProducts(ctx context.Context, q string, offset, limit int) (int64, []models.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return 0, nil, fmt.Errorf("query is required: %w", ErrValidation)
	}

	if s.Index != nil {
		total, ids, err := s.Index.Search(ctx, q, offset, limit)
		if err == nil {
			products, err := s.Repo.ProductsByIDs(ctx, ids)
			if err != nil {
				return 0, nil, err
			}
			out := make([]models.Product, 0, len(ids))
			for _, id := range ids {
				if p, ok := products[id]; ok {
					out = append(out, p)
				}
			}
			return total, out, nil
		}
		logging.FromContext(ctx).Warn("search_index_failed", "error", err)
	}

	return s.Repo.SearchProducts(ctx, q, offset, limit)
}

func (s *CatalogService) CreateProduct(ctx context.Context, userID uint, req transport.CreateProductRequest) (*models.Product, error) {
	name := strings.TrimSpace(req.Name)
	if err := validateProduct(name, req.Price, req.Stock); err != nil {
		return nil, err
	}

	p := models.Product{
		Name:        name,
		Description: req.Description,
		Price:       req.Price.Round(2),
		Stock:       req.Stock,
		CreatedBy:   userID,
	}
	if err := s.Repo.CreateProduct(ctx, &p); err != nil {
		return nil, err
	}

	s.afterWrite(ctx, "product_created", p)
	return &p, nil
}

// PatchProduct applies the fields present in req. Only the product's creator
// may change it. The row stays locked from the ownership check to the write
// so a concurrent checkout cannot have its stock decrement overwritten.
func (s *CatalogService) PatchProduct(ctx context.Context, userID, id uint, req transport.PatchProductRequest) (*models.Product, error) {
	var updated *models.Product
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		p, err := tx.LockProduct(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("product not found: %w", ErrNotFound)
		}
		if err != nil {
			return err
		}
		if p.CreatedBy != userID {
			return fmt.Errorf("not your product: %w", ErrForbidden)
		}

		fields := map[string]any{}
		if req.Name != nil {
			p.Name = strings.TrimSpace(*req.Name)
			fields["name"] = p.Name
		}
		if req.Description != nil {
			p.Description = req.Description
			fields["description"] = *req.Description
		}
		if req.Price != nil {
			p.Price = req.Price.Round(2)
			fields["price"] = p.Price
		}
		if req.Stock != nil {
			p.Stock = *req.Stock
			fields["stock"] = p.Stock
		}
		if err := validateProduct(p.Name, p.Price, p.Stock); err != nil {
			return err
		}

		if err := tx.UpdateProductFields(ctx, id, fields); err != nil {
			return err
		}
		updated, err = tx.GetProduct(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, "product_updated", *updated)
	return updated, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, userID, id uint) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("product not found: %w", ErrNotFound)
		}
		return err
	}

	if s.Index != nil {
		if err := s.Index.DeleteProduct(ctx, id); err != nil {
			logging.FromContext(ctx).Warn("search_index_delete_failed", "product_id", id, "error", err)
		}
	}
	publish(ctx, s.Events, mykafka.TopicProductEvents, strconv.FormatUint(uint64(id), 10), map[string]any{
		"type":      "product_deleted",
		"productID": id,
	})
	return nil
}

func (s *CatalogService) owned(ctx context.Context, userID, id uint) (*models.Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.CreatedBy != userID {
		return nil, fmt.Errorf("not your product: %w", ErrForbidden)
	}
	return p, nil
}

func (s *CatalogService) afterWrite(ctx context.Context, eventType string, p models.Product) {
	if s.Index != nil {
		if err := s.Index.IndexProduct(ctx, p); err != nil {
			logging.FromContext(ctx).Warn("search_index_failed", "product_id", p.ID, "error", err)
		}
	}
	publish(ctx, s.Events, mykafka.TopicProductEvents, strconv.FormatUint(uint64(p.ID), 10), map[string]any{
		"type":      eventType,
		"productID": p.ID,
		"name":      p.Name,
		"price":     p.Price.StringFixed(2),
		"stock":     p.Stock,
	})
}

func validateProduct(name string, price decimal.Decimal, stock int) error {
	if name == "" {
		return fmt.Errorf("name is required: %w", ErrValidation)
	}
	if price.IsNegative() {
		return fmt.Errorf("price cannot be negative: %w", ErrValidation)
	}
	if stock < 0 {
		return fmt.Errorf("stock cannot be negative: %w", ErrValidation)
	}
	return nil
}
