package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
)

const (
	UserIDKey        = "user_id"
	AccessCookieName = "accessToken"
)

type Authenticator interface {
	Authenticate(token string) (uint, error)
}

// RequireLogin rejects requests without a valid access token. The token is
// read from the Authorization header, falling back to the access cookie.
func RequireLogin(a Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if token == "" {
				if ck, err := c.Cookie(AccessCookieName); err == nil {
					token = ck.Value
				}
			}
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
			}

			userID, err := a.Authenticate(token)
			if err != nil {
				logging.FromContext(c.Request().Context()).Debug("auth_rejected", "error", err)
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
			}

			c.Set(UserIDKey, userID)
			return next(c)
		}
	}
}

// UserID returns the caller set by RequireLogin.
func UserID(c echo.Context) (uint, bool) {
	id, ok := c.Get(UserIDKey).(uint)
	return id, ok && id != 0
}

// BearerToken extracts the token from an "Authorization: Bearer" header, or
// returns "" for any other scheme.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
