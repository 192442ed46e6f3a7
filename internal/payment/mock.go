package payment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// MockGateway approves every payment. Used when no provider credentials are
// configured.
type MockGateway struct{}

func (MockGateway) CreatePayment(_ context.Context, orderID uint, total decimal.Decimal, currency string) Result {
	return Result{
		Success:       true,
		PaymentURL:    fmt.Sprintf("/checkout/success?order_id=%d", orderID),
		TransactionID: fmt.Sprintf("mock_txn_%d", orderID),
		Message:       fmt.Sprintf("Mock payment of %s %s created", total.StringFixed(2), currency),
	}
}

func (MockGateway) VerifyPayment(context.Context, string) bool {
	return true
}
