package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrProductGone       = errors.New("product no longer exists")
	ErrGateway           = errors.New("payment gateway failed")
	ErrReconciliation    = errors.New("payment captured but order was not saved")
)

// StockError reports a quantity the catalog cannot cover.
type StockError struct {
	ProductID uint
	Name      string
	Available int
	Requested int
	// InCart is the quantity already in the cart when adding merged lines.
	InCart int
	// AtCheckout marks a failure found while re-validating the cart.
	AtCheckout bool
}

func (e *StockError) Error() string {
	switch {
	case e.AtCheckout:
		return fmt.Sprintf("'%s' only has %d in stock, you requested %d", e.Name, e.Available, e.Requested)
	case e.InCart > 0:
		return fmt.Sprintf("only %d in stock, you already have %d in cart", e.Available, e.InCart)
	default:
		return fmt.Sprintf("only %d items in stock", e.Available)
	}
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// GatewayError carries the provider's own explanation of a failed payment.
type GatewayError struct {
	Message string
}

func (e *GatewayError) Error() string { return "payment gateway failed: " + e.Message }

func (e *GatewayError) Unwrap() error { return ErrGateway }
