package httpserver

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/testutil"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type decliningGateway struct{}

func (decliningGateway) CreatePayment(context.Context, uint, decimal.Decimal, string) payment.Result {
	return payment.Result{Message: "card declined"}
}

func (decliningGateway) VerifyPayment(context.Context, string) bool { return false }

func TestCheckout_HappyPath(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.register(t, "alice")
	owner := testutil.CreateUser(t, env.DB, "owner")
	p := testutil.CreateProduct(t, env.DB, owner.ID, "Widget", "10.00", 5)

	rec := env.doJSONRequest(t, http.MethodPost, "/checkout", nil, alice)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "cart is empty")

	rec = env.doJSONRequest(t, http.MethodPost, "/cart", map[string]any{"product_id": p.ID, "quantity": 2}, alice)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.doJSONRequest(t, http.MethodPost, "/checkout", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[transport.CheckoutResponse](t, rec)
	assert.Equal(t, models.OrderStatusPaid, res.Status)
	assert.Equal(t, "/checkout/success?order_id="+itoa(res.OrderID), res.PaymentURL)

	rec = env.doJSONRequest(t, http.MethodGet, "/checkout/orders", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	orders := decode[[]transport.OrderView](t, rec)
	require.Len(t, orders, 1)
	assert.Equal(t, "20.00", orders[0].TotalPrice.StringFixed(2))
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, "20.00", orders[0].Items[0].Subtotal.StringFixed(2))

	rec = env.doJSONRequest(t, http.MethodGet, "/checkout/success", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckout_GatewayDeclineIs502(t *testing.T) {
	env := newTestEnv(t, decliningGateway{})
	alice := env.register(t, "alice")
	owner := testutil.CreateUser(t, env.DB, "owner")
	p := testutil.CreateProduct(t, env.DB, owner.ID, "Widget", "10.00", 5)

	rec := env.doJSONRequest(t, http.MethodPost, "/cart", map[string]any{"product_id": p.ID, "quantity": 2}, alice)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.doJSONRequest(t, http.MethodPost, "/checkout", nil, alice)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "card declined")

	var stored models.Product
	require.NoError(t, env.DB.First(&stored, p.ID).Error)
	assert.Equal(t, 5, stored.Stock)
}

func TestWebhook_AlwaysAcknowledges(t *testing.T) {
	env := newTestEnv(t, nil)
	u := testutil.CreateUser(t, env.DB, "alice")
	order := models.Order{UserID: u.ID, TotalPrice: decimal.NewFromInt(5), Status: models.OrderStatusPending}
	require.NoError(t, env.DB.Create(&order).Error)

	for _, body := range []map[string]any{
		{"order_id": 424242, "status": "paid"},
		{"order_id": itoa(order.ID), "status": "paid"},
		{"order_id": order.ID, "status": "paid"},
		{"status": "paid"},
	} {
		rec := env.doJSONRequest(t, http.MethodPost, "/checkout/webhook", body, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	}

	var stored models.Order
	require.NoError(t, env.DB.First(&stored, order.ID).Error)
	assert.Equal(t, models.OrderStatusPaid, stored.Status)
}
