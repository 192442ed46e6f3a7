package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type CartService struct {
	Repo   *repo.GormRepo
	Events mykafka.Publisher
}

func (s *CartService) GetOrCreateCart(ctx context.Context, userID uint) (*models.Cart, error) {
	return s.Repo.GetOrCreateCart(ctx, userID)
}

// AddItem puts quantity units of a product in the user's cart, merging with
// an existing line. The product row stays locked while stock is checked so
// the cart never holds more than is on the shelf.
func (s *CartService) AddItem(ctx context.Context, userID, productID uint, quantity int) (*transport.CartView, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1: %w", ErrValidation)
	}

	var lineQty int
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		product, err := tx.LockProduct(ctx, productID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("product not found: %w", ErrNotFound)
		}
		if err != nil {
			return err
		}
		if product.Stock < quantity {
			return &StockError{ProductID: product.ID, Name: product.Name, Available: product.Stock, Requested: quantity}
		}

		cart, err := tx.GetOrCreateCart(ctx, userID)
		if err != nil {
			return err
		}

		item, err := tx.FindCartItem(ctx, cart.ID, productID)
		switch {
		case err == nil:
			lineQty = item.Quantity + quantity
			if lineQty > product.Stock {
				return &StockError{
					ProductID: product.ID,
					Name:      product.Name,
					Available: product.Stock,
					Requested: quantity,
					InCart:    item.Quantity,
				}
			}
			return tx.SetCartItemQuantity(ctx, item.ID, lineQty)
		case errors.Is(err, gorm.ErrRecordNotFound):
			lineQty = quantity
			return tx.CreateCartItem(ctx, &models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: quantity})
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Events, mykafka.TopicCartEvents, strconv.FormatUint(uint64(userID), 10), map[string]any{
		"type":      "cart_item_added",
		"userID":    userID,
		"productID": productID,
		"quantity":  lineQty,
	})
	return s.View(ctx, userID)
}

// RemoveItem deletes a line from the caller's own cart. Lines of other carts
// are reported as not found.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uint) (*transport.CartView, error) {
	cart, err := s.Repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.DeleteCartItem(ctx, cart.ID, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("item not in your cart: %w", ErrNotFound)
		}
		return nil, err
	}

	publish(ctx, s.Events, mykafka.TopicCartEvents, strconv.FormatUint(uint64(userID), 10), map[string]any{
		"type":   "cart_item_removed",
		"userID": userID,
		"itemID": itemID,
	})
	return s.View(ctx, userID)
}

func (s *CartService) Clear(ctx context.Context, userID uint) error {
	cart, err := s.Repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return err
	}
	return s.Repo.ClearCart(ctx, cart.ID)
}

// View computes the cart from the live catalog on every call.
func (s *CartService) View(ctx context.Context, userID uint) (*transport.CartView, error) {
	cart, err := s.Repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.Repo.CartItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	products, err := s.Repo.ProductsByIDs(ctx, cartProductIDs(items))
	if err != nil {
		return nil, err
	}
	view := buildCartView(items, products)
	return &view, nil
}
