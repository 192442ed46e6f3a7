package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
)

const WebhookStatusPaid = "paid"

type CheckoutService struct {
	Repo     *repo.GormRepo
	Gateway  payment.Gateway
	Currency string
	Events   mykafka.Publisher
}

// Checkout turns the user's cart into a paid order. Stock checks, order rows,
// stock decrements and the cart wipe share one transaction; the gateway is
// called inside it, so a refused payment leaves nothing behind.
func (s *CheckoutService) Checkout(ctx context.Context, userID uint) (*transport.CheckoutResponse, error) {
	l := logging.FromContext(ctx).With("svc", "checkout", "user_id", userID)

	var (
		order    models.Order
		result   payment.Result
		captured bool
	)
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		cart, err := tx.GetOrCreateCart(ctx, userID)
		if err != nil {
			return err
		}
		items, err := tx.CartItems(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		products, err := tx.LockProducts(ctx, cartProductIDs(items))
		if err != nil {
			return err
		}
		for _, it := range items {
			p, ok := products[it.ProductID]
			if !ok {
				return fmt.Errorf("product %d: %w", it.ProductID, ErrProductGone)
			}
			if p.Stock < it.Quantity {
				return &StockError{ProductID: p.ID, Name: p.Name, Available: p.Stock, Requested: it.Quantity, AtCheckout: true}
			}
		}

		view := buildCartView(items, products)
		order = models.Order{
			UserID:     userID,
			TotalPrice: view.TotalPrice,
			Status:     models.OrderStatusPending,
		}
		if err := tx.CreateOrder(ctx, &order); err != nil {
			return err
		}

		for _, it := range items {
			p := products[it.ProductID]
			snapshot := models.OrderItem{
				OrderID:      order.ID,
				ProductID:    p.ID,
				ProductName:  p.Name,
				ProductPrice: p.Price,
				Quantity:     it.Quantity,
			}
			if err := tx.CreateOrderItem(ctx, &snapshot); err != nil {
				return err
			}
			if err := tx.DecrementStock(ctx, p.ID, it.Quantity); err != nil {
				if errors.Is(err, repo.ErrStockConflict) {
					available := 0
					if cur, err := tx.GetProduct(ctx, p.ID); err == nil {
						available = cur.Stock
					}
					return &StockError{ProductID: p.ID, Name: p.Name, Available: available, Requested: it.Quantity, AtCheckout: true}
				}
				return err
			}
		}

		result = s.Gateway.CreatePayment(ctx, order.ID, order.TotalPrice, s.Currency)
		if !result.Success {
			return &GatewayError{Message: result.Message}
		}
		captured = true

		if err := tx.MarkOrderPaid(ctx, order.ID, result.TransactionID, result.PaymentURL); err != nil {
			return err
		}
		order.Status = models.OrderStatusPaid
		order.TransactionID = result.TransactionID
		order.PaymentURL = result.PaymentURL

		return tx.ClearCart(ctx, cart.ID)
	})
	if err != nil {
		if captured {
			// The provider holds the money but the order is gone.
			l.Error("checkout_commit_failed",
				"reconciliation_required", true,
				"order_id", order.ID,
				"transaction_id", result.TransactionID,
				"total", order.TotalPrice.StringFixed(2),
				"error", err,
			)
			metrics.ReconciliationRequired.Inc()
			metrics.CheckoutTotal.WithLabelValues(metrics.CheckoutReconciliation).Inc()
			return nil, fmt.Errorf("order %d, transaction %s: %w", order.ID, result.TransactionID, ErrReconciliation)
		}
		metrics.CheckoutTotal.WithLabelValues(checkoutOutcome(err)).Inc()
		return nil, err
	}

	metrics.CheckoutTotal.WithLabelValues(metrics.CheckoutOK).Inc()
	l.Info("checkout_completed", "order_id", order.ID, "total", order.TotalPrice.StringFixed(2))

	publish(ctx, s.Events, mykafka.TopicOrderEvents, strconv.FormatUint(uint64(order.ID), 10), map[string]any{
		"type":          "order_paid",
		"orderID":       order.ID,
		"userID":        userID,
		"total":         order.TotalPrice.StringFixed(2),
		"transactionID": order.TransactionID,
	})

	return &transport.CheckoutResponse{
		OrderID:    order.ID,
		Status:     order.Status,
		PaymentURL: result.PaymentURL,
		Message:    result.Message,
	}, nil
}

// HandleWebhook applies a provider callback. Only "paid" for a pending order
// changes anything; unknown orders and repeats are acknowledged silently.
func (s *CheckoutService) HandleWebhook(ctx context.Context, orderID uint, status string) error {
	l := logging.FromContext(ctx).With("svc", "webhook", "order_id", orderID, "status", status)

	if orderID == 0 || status != WebhookStatusPaid {
		metrics.WebhookTotal.WithLabelValues("ignored").Inc()
		return nil
	}

	order, err := s.Repo.GetOrder(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		l.Info("webhook_unknown_order")
		metrics.WebhookTotal.WithLabelValues("unknown_order").Inc()
		return nil
	}
	if err != nil {
		return err
	}
	if order.Status != models.OrderStatusPending {
		metrics.WebhookTotal.WithLabelValues("duplicate").Inc()
		return nil
	}

	if order.TransactionID != "" && !s.Gateway.VerifyPayment(ctx, order.TransactionID) {
		l.Warn("webhook_unverified", "transaction_id", order.TransactionID)
		metrics.WebhookTotal.WithLabelValues("unverified").Inc()
		return nil
	}

	moved, err := s.Repo.TransitionOrderStatus(ctx, orderID, models.OrderStatusPending, models.OrderStatusPaid)
	if err != nil {
		return err
	}
	if !moved {
		metrics.WebhookTotal.WithLabelValues("duplicate").Inc()
		return nil
	}

	metrics.WebhookTotal.WithLabelValues("paid").Inc()
	l.Info("webhook_order_paid")
	publish(ctx, s.Events, mykafka.TopicOrderEvents, strconv.FormatUint(uint64(orderID), 10), map[string]any{
		"type":    "order_paid",
		"orderID": orderID,
		"userID":  order.UserID,
		"source":  "webhook",
	})
	return nil
}

func (s *CheckoutService) ListOrders(ctx context.Context, userID uint) ([]transport.OrderView, error) {
	orders, err := s.Repo.ListOrders(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.OrderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, buildOrderView(o))
	}
	return out, nil
}

func checkoutOutcome(err error) string {
	switch {
	case errors.Is(err, ErrEmptyCart):
		return metrics.CheckoutEmptyCart
	case errors.Is(err, ErrInsufficientStock):
		return metrics.CheckoutOutOfStock
	case errors.Is(err, ErrProductGone):
		return metrics.CheckoutProductGone
	case errors.Is(err, ErrGateway):
		return metrics.CheckoutGatewayFailed
	default:
		return metrics.CheckoutError
	}
}
