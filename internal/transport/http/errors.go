package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/service"
)

// httpError maps a service error to an HTTP error and logs it once.
func httpError(l *slog.Logger, event string, err error) error {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		l.Error(event, "status", status, "error", err)
	} else {
		l.Warn(event, "status", status, "reason", msg, "error", err)
	}
	return echo.NewHTTPError(status, msg)
}

func classify(err error) (int, string) {
	var (
		stockErr   *service.StockError
		gatewayErr *service.GatewayError
	)
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, trimSentinel(err, service.ErrValidation)
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, trimSentinel(err, service.ErrNotFound)
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, trimSentinel(err, service.ErrForbidden)
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, trimSentinel(err, service.ErrConflict)
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, trimSentinel(err, service.ErrUnauthorized)
	case errors.As(err, &stockErr):
		return http.StatusBadRequest, stockErr.Error()
	case errors.Is(err, service.ErrEmptyCart), errors.Is(err, service.ErrProductGone):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &gatewayErr):
		return http.StatusBadGateway, gatewayErr.Error()
	case errors.Is(err, service.ErrReconciliation):
		return http.StatusInternalServerError, "payment was taken but the order could not be saved, support has been notified"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// trimSentinel drops the ": <sentinel>" suffix added by %w wrapping.
func trimSentinel(err, sentinel error) string {
	msg := err.Error()
	if trimmed, ok := strings.CutSuffix(msg, ": "+sentinel.Error()); ok && trimmed != "" {
		return trimmed
	}
	return msg
}

func parseID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return uint(id), nil
}

// currentUser returns the caller set by RequireLogin, or 401 when the route
// runs without it.
func currentUser(c echo.Context) (uint, error) {
	userID, ok := authmw.UserID(c)
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}
	return userID, nil
}
