package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Checkout outcomes used as the "result" label.
const (
	CheckoutOK             = "ok"
	CheckoutEmptyCart      = "empty_cart"
	CheckoutOutOfStock     = "out_of_stock"
	CheckoutProductGone    = "product_gone"
	CheckoutGatewayFailed  = "gateway_failed"
	CheckoutReconciliation = "reconciliation"
	CheckoutError          = "error"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "Duration of HTTP requests in ms.",
			Buckets:   []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600},
		},
		[]string{"method", "path"},
	)

	CheckoutTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Checkout attempts by result.",
		},
		[]string{"result"},
	)

	// ReconciliationRequired counts payments that were captured by the
	// gateway while the order transaction failed to commit.
	ReconciliationRequired = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_reconciliation_required_total",
			Help:      "Captured payments whose order could not be committed.",
		},
	)

	WebhookTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_webhook_total",
			Help:      "Payment provider callbacks by outcome.",
		},
		[]string{"outcome"},
	)
)

func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if status < 400 {
					status = http.StatusInternalServerError
				}
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}

			httpRequests.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
			httpDuration.WithLabelValues(c.Request().Method, path).Observe(float64(time.Since(start).Milliseconds()))
			return err
		}
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
