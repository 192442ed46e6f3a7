package service

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/testutil"
)

type fakeGateway struct {
	fail     bool
	message  string
	verified bool
	onCreate func()
	created  atomic.Int32
}

func (g *fakeGateway) CreatePayment(ctx context.Context, orderID uint, total decimal.Decimal, currency string) payment.Result {
	g.created.Add(1)
	if g.onCreate != nil {
		g.onCreate()
	}
	if g.fail {
		return payment.Result{Message: g.message}
	}
	return payment.MockGateway{}.CreatePayment(ctx, orderID, total, currency)
}

func (g *fakeGateway) VerifyPayment(context.Context, string) bool {
	return g.verified
}

type testEnv struct {
	DB       *gorm.DB
	Repo     *repo.GormRepo
	Events   *mykafka.Recorder
	Gateway  *fakeGateway
	Cart     *CartService
	Checkout *CheckoutService
	Catalog  *CatalogService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	r := &repo.GormRepo{DB: db}
	events := &mykafka.Recorder{}
	gw := &fakeGateway{verified: true}

	return &testEnv{
		DB:       db,
		Repo:     r,
		Events:   events,
		Gateway:  gw,
		Cart:     &CartService{Repo: r, Events: events},
		Checkout: &CheckoutService{Repo: r, Gateway: gw, Currency: "UZS", Events: events},
		Catalog:  &CatalogService{Repo: r, Events: events},
	}
}

func (e *testEnv) stock(t *testing.T, productID uint) int {
	t.Helper()

	var p models.Product
	require.NoError(t, e.DB.First(&p, productID).Error)
	return p.Stock
}

func (e *testEnv) count(t *testing.T, model any) int64 {
	t.Helper()

	var n int64
	require.NoError(t, e.DB.Model(model).Count(&n).Error)
	return n
}

// putInCart writes a cart line directly, bypassing the stock check.
func (e *testEnv) putInCart(t *testing.T, userID, productID uint, qty int) models.CartItem {
	t.Helper()

	cart, err := e.Repo.GetOrCreateCart(context.Background(), userID)
	require.NoError(t, err)
	item := models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: qty}
	require.NoError(t, e.DB.Create(&item).Error)
	return item
}

// afterFirstProductRead runs fn once, on the connection of the first query
// that reads the products table after registration. It lets a test land a
// write between a service's read and its own write.
func afterFirstProductRead(t *testing.T, db *gorm.DB, fn func(conn *gorm.DB)) {
	t.Helper()

	var fired atomic.Bool
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:after_product_read", func(tx *gorm.DB) {
		if tx.Statement.Table != "products" || tx.Error != nil || !fired.CompareAndSwap(false, true) {
			return
		}
		fn(tx.Session(&gorm.Session{NewDB: true}))
	}))
}
