// Package payment talks to the payment provider that captures checkout totals.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Result is what a gateway reports for one payment attempt. Failures are
// reported through Success=false and Message, never through a Go error.
type Result struct {
	Success       bool
	PaymentURL    string
	TransactionID string
	Message       string
}

type Gateway interface {
	CreatePayment(ctx context.Context, orderID uint, total decimal.Decimal, currency string) Result
	VerifyPayment(ctx context.Context, transactionID string) bool
}
