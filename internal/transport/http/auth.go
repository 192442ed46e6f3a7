package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	tok, err := h.Svc.Register(ctx, req)
	if err != nil {
		return httpError(l, "register_error", err)
	}

	l.Info("user registered", "username", req.Username)
	c.SetCookie(accessCookie(tok))
	return c.JSON(http.StatusCreated, tok)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	tok, err := h.Svc.Login(ctx, req)
	if err != nil {
		return httpError(l, "login_error", err)
	}
	c.SetCookie(accessCookie(tok))
	return c.JSON(http.StatusOK, tok)
}

// accessCookie mirrors the bearer token for browser clients.
func accessCookie(tok *transport.TokenResponse) *http.Cookie {
	return &http.Cookie{
		Name:     authmw.AccessCookieName,
		Value:    tok.AccessToken,
		Path:     "/",
		Expires:  time.Unix(tok.ExpiresAt, 0),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}
