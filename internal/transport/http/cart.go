package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	view, err := h.Svc.View(ctx, userID)
	if err != nil {
		return httpError(l, "get_cart_error", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var req transport.AddToCartRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_cart_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.ProductID == 0 {
		l.Warn("add_to_cart_error", "status", 400)
		return echo.NewHTTPError(http.StatusBadRequest, "product_id required")
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	view, err := h.Svc.AddItem(ctx, userID, req.ProductID, qty)
	if err != nil {
		return httpError(l, "add_to_cart_error", err)
	}

	l.Info("item added to cart", "product_id", req.ProductID, "quantity", qty)
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) RemoveFromCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	itemID, err := parseID(c, "item_id")
	if err != nil {
		return err
	}

	view, err := h.Svc.RemoveItem(ctx, userID, itemID)
	if err != nil {
		return httpError(l, "remove_from_cart_error", err)
	}
	return c.JSON(http.StatusOK, view)
}
