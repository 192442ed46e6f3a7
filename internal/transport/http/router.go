package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
)

type Deps struct {
	DB              *gorm.DB
	AuthHandler     *AuthHTTP
	ProductHandler  *ProductHTTP
	CartHandler     *CartHTTP
	CheckoutHandler *CheckoutHTTP
	Authenticator   authmw.Authenticator
	// Metrics, when set, is served on /metrics.
	Metrics http.Handler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", d.ready)
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}

	requireLogin := []echo.MiddlewareFunc{
		authmw.RequireLogin(d.Authenticator),
		csrf.Middleware(csrf.Config{SessionCookie: authmw.AccessCookieName}),
	}

	auth := e.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)

	products := e.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/search", d.ProductHandler.Search)
	products.GET("/:id", d.ProductHandler.GetProduct)
	products.POST("", d.ProductHandler.CreateProduct, requireLogin...)
	products.PUT("/:id", d.ProductHandler.PatchProduct, requireLogin...)
	products.PATCH("/:id", d.ProductHandler.PatchProduct, requireLogin...)
	products.DELETE("/:id", d.ProductHandler.DeleteProduct, requireLogin...)

	cart := e.Group("/cart", requireLogin...)
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.DELETE("/:item_id", d.CartHandler.RemoveFromCart)

	checkout := e.Group("/checkout")
	checkout.POST("", d.CheckoutHandler.Checkout, requireLogin...)
	checkout.GET("/orders", d.CheckoutHandler.ListOrders, requireLogin...)
	checkout.POST("/webhook", d.CheckoutHandler.Webhook)
	checkout.GET("/success", d.CheckoutHandler.Success)
}

func (d *Deps) ready(c echo.Context) error {
	if d.DB == nil {
		return c.NoContent(http.StatusOK)
	}
	sqlDB, err := d.DB.DB()
	if err != nil {
		return c.NoContent(http.StatusServiceUnavailable)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return c.NoContent(http.StatusServiceUnavailable)
	}
	return c.NoContent(http.StatusOK)
}
