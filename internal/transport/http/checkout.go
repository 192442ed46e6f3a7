package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type CheckoutHTTP struct {
	Svc *service.CheckoutService
}

func (h *CheckoutHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	res, err := h.Svc.Checkout(ctx, userID)
	if err != nil {
		return httpError(l, "checkout_error", err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *CheckoutHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.orders")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	orders, err := h.Svc.ListOrders(ctx, userID)
	if err != nil {
		return httpError(l, "list_orders_error", err)
	}
	return c.JSON(http.StatusOK, orders)
}

// Webhook acknowledges every well-formed callback so the provider stops
// retrying; only storage failures are reported back.
func (h *CheckoutHTTP) Webhook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.webhook")

	var req transport.WebhookRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("webhook_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.HandleWebhook(ctx, uint(req.OrderID), req.Status); err != nil {
		return httpError(l, "webhook_error", err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (h *CheckoutHTTP) Success(c echo.Context) error {
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Payment successful! You can close this page."})
}
