package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/testutil"
)

func TestCheckout_Success(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, env.DB, "alice")
	p := testutil.CreateProduct(t, env.DB, u.ID, "Widget", "10.00", 5)

	_, err := env.Cart.AddItem(ctx, u.ID, p.ID, 2)
	require.NoError(t, err)

	res, err := env.Checkout.Checkout(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, res.Status)
	assert.NotZero(t, res.OrderID)
	assert.Contains(t, res.PaymentURL, "order_id=")

	var order models.Order
	require.NoError(t, env.DB.Preload("Items").First(&order, res.OrderID).Error)
	assert.Equal(t, "20.00", order.TotalPrice.StringFixed(2))
	assert.Equal(t, models.OrderStatusPaid, order.Status)
	assert.NotEmpty(t, order.TransactionID)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Widget", order.Items[0].ProductName)
	assert.Equal(t, "10.00", order.Items[0].ProductPrice.StringFixed(2))
	assert.Equal(t, 2, order.Items[0].Quantity)

	assert.Equal(t, 3, env.stock(t, p.ID))

	view, err := env.Cart.View(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	assert.Equal(t, []string{"order_paid"}, env.Events.Types(mykafka.TopicOrderEvents))
}

func TestCheckout_InsufficientStockAtCheckout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, env.DB, "alice")
	p := testutil.CreateProduct(t, env.DB, u.ID, "Widget", "10.00", 1)
	env.putInCart(t, u.ID, p.ID, 3)

	_, err := env.Checkout.Checkout(ctx, u.ID)
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Contains(t, err.Error(), "1")
	assert.Equal(t, "'Widget' only has 1 in stock, you requested 3", err.Error())

	assert.Zero(t, env.count(t, &models.Order{}))
	assert.Equal(t, 1, env.stock(t, p.ID))
	assert.EqualValues(t, 0, env.Gateway.created.Load())
}

func TestCheckout_EmptyCart(t *testing.T) {
	env := newTestEnv(t)
	u := testutil.CreateUser(t, env.DB, "alice")

	_, err := env.Checkout.Checkout(context.Background(), u.ID)
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, env.count(t, &models.Order{}))
}

func TestCheckout_ProductGone(t *testing.T) {
	env := newTestEnv(t)
	u := testutil.CreateUser(t, env.DB, "alice")
	keep := testutil.CreateProduct(t, env.DB, u.ID, "Keep", "1.00", 5)
	gone := testutil.CreateProduct(t, env.DB, u.ID, "Gone", "1.00", 5)
	env.putInCart(t, u.ID, keep.ID, 1)
	env.putInCart(t, u.ID, gone.ID, 1)
	require.NoError(t, env.DB.Delete(&models.Product{}, gone.ID).Error)

	_, err := env.Checkout.Checkout(context.Background(), u.ID)
	require.ErrorIs(t, err, ErrProductGone)
	assert.Equal(t, 5, env.stock(t, keep.ID))
	assert.Zero(t, env.count(t, &models.Order{}))
}

func TestCheckout_GatewayFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.Gateway.fail = true
	env.Gateway.message = "card declined"

	u := testutil.CreateUser(t, env.DB, "alice")
	p := testutil.CreateProduct(t, env.DB, u.ID, "Widget", "10.00", 5)
	_, err := env.Cart.AddItem(ctx, u.ID, p.ID, 2)
	require.NoError(t, err)

	_, err = env.Checkout.Checkout(ctx, u.ID)
	require.ErrorIs(t, err, ErrGateway)
	var ge *GatewayError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "card declined", ge.Message)

	assert.Equal(t, 5, env.stock(t, p.ID))
	assert.Zero(t, env.count(t, &models.Order{}))
	assert.Zero(t, env.count(t, &models.OrderItem{}))

	view, err := env.Cart.View(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.Empty(t, env.Events.Types(mykafka.TopicOrderEvents))
}

func TestCheckout_CommitFailureAfterCaptureNeedsReconciliation(t *testing.T) {
	env := newTestEnv(t)
	u := testutil.CreateUser(t, env.DB, "alice")
	p := testutil.CreateProduct(t, env.DB, u.ID, "Widget", "10.00", 5)
	env.putInCart(t, u.ID, p.ID, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Approve the payment, then pull the rug from under the transaction.
	env.Gateway.onCreate = cancel

	_, err := env.Checkout.Checkout(ctx, u.ID)
	require.ErrorIs(t, err, ErrReconciliation)

	assert.Equal(t, 5, env.stock(t, p.ID))
	assert.Zero(t, env.count(t, &models.Order{}))
}

func TestCheckout_SnapshotSurvivesCatalogChanges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, env.DB, "alice")
	p := testutil.CreateProduct(t, env.DB, u.ID, "Widget", "10.00", 5)
	env.putInCart(t, u.ID, p.ID, 1)

	_, err := env.Checkout.Checkout(ctx, u.ID)
	require.NoError(t, err)

	require.NoError(t, env.DB.Model(&models.Product{}).Where("id = ?", p.ID).
		Updates(map[string]any{"name": "Renamed", "price": decimal.RequireFromString("99.00")}).Error)

	orders, err := env.Checkout.ListOrders(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "Widget", orders[0].Items[0].ProductName)
	assert.Equal(t, "10.00", orders[0].Items[0].ProductPrice.StringFixed(2))

	require.NoError(t, env.DB.Delete(&models.Product{}, p.ID).Error)

	orders, err = env.Checkout.ListOrders(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, "Widget", orders[0].Items[0].ProductName)
	assert.Equal(t, "10.00", orders[0].Items[0].Subtotal.StringFixed(2))
}

func TestCheckout_ConcurrentCheckoutsNeverOversell(t *testing.T) {
	env := newTestEnv(t)
	env.Checkout.Events = nil
	owner := testutil.CreateUser(t, env.DB, "owner")
	p := testutil.CreateProduct(t, env.DB, owner.ID, "Last one", "5.00", 1)

	const buyers = 4
	users := make([]models.User, buyers)
	for i := range users {
		users[i] = testutil.CreateUser(t, env.DB, "buyer"+string(rune('a'+i)))
		env.putInCart(t, users[i].ID, p.ID, 1)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for _, u := range users {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			_, err := env.Checkout.Checkout(context.Background(), userID)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrInsufficientStock)
		}(u.ID)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, env.stock(t, p.ID))
	assert.EqualValues(t, 1, env.count(t, &models.Order{}))
}

func TestListOrders_NewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, env.DB, "alice")
	other := testutil.CreateUser(t, env.DB, "bob")

	older := models.Order{UserID: u.ID, TotalPrice: decimal.NewFromInt(1), Status: models.OrderStatusPaid, CreatedAt: time.Now().UTC().Add(-time.Hour)}
	newer := models.Order{UserID: u.ID, TotalPrice: decimal.NewFromInt(2), Status: models.OrderStatusPaid, CreatedAt: time.Now().UTC()}
	foreign := models.Order{UserID: other.ID, TotalPrice: decimal.NewFromInt(3), Status: models.OrderStatusPaid}
	require.NoError(t, env.DB.Create(&older).Error)
	require.NoError(t, env.DB.Create(&newer).Error)
	require.NoError(t, env.DB.Create(&foreign).Error)

	orders, err := env.Checkout.ListOrders(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, newer.ID, orders[0].ID)
	assert.Equal(t, older.ID, orders[1].ID)
	assert.NotNil(t, orders[0].Items)
}

func TestHandleWebhook(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, env.DB, "alice")

	order := models.Order{UserID: u.ID, TotalPrice: decimal.NewFromInt(5), Status: models.OrderStatusPending, TransactionID: "inv-1"}
	require.NoError(t, env.DB.Create(&order).Error)

	status := func() string {
		var o models.Order
		require.NoError(t, env.DB.First(&o, order.ID).Error)
		return o.Status
	}

	require.NoError(t, env.Checkout.HandleWebhook(ctx, 9999, WebhookStatusPaid))
	require.NoError(t, env.Checkout.HandleWebhook(ctx, order.ID, "failed"))
	assert.Equal(t, models.OrderStatusPending, status())

	env.Gateway.verified = false
	require.NoError(t, env.Checkout.HandleWebhook(ctx, order.ID, WebhookStatusPaid))
	assert.Equal(t, models.OrderStatusPending, status())

	env.Gateway.verified = true
	require.NoError(t, env.Checkout.HandleWebhook(ctx, order.ID, WebhookStatusPaid))
	assert.Equal(t, models.OrderStatusPaid, status())

	require.NoError(t, env.Checkout.HandleWebhook(ctx, order.ID, WebhookStatusPaid))
	assert.Equal(t, models.OrderStatusPaid, status())
	assert.Equal(t, []string{"order_paid"}, env.Events.Types(mykafka.TopicOrderEvents))
}

func TestCheckout_StockConflictReportsCurrentStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, env.DB, "alice")
	p := testutil.CreateProduct(t, env.DB, u.ID, "Widget", "10.00", 5)
	env.putInCart(t, u.ID, p.ID, 4)

	// stock drops to 2 after checkout has validated the line
	afterFirstProductRead(t, env.DB, func(conn *gorm.DB) {
		require.NoError(t, (&repo.GormRepo{DB: conn}).DecrementStock(ctx, p.ID, 3))
	})

	_, err := env.Checkout.Checkout(ctx, u.ID)
	require.ErrorIs(t, err, ErrInsufficientStock)
	var stockErr *StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 4, stockErr.Requested)

	assert.Zero(t, env.count(t, &models.Order{}))
	assert.Equal(t, 5, env.stock(t, p.ID))
	assert.EqualValues(t, 0, env.Gateway.created.Load())
}
