package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticAuth map[string]uint

func (s staticAuth) Authenticate(token string) (uint, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return 0, errors.New("bad token")
}

func run(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, uint, error) {
	t.Helper()

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen uint
	h := RequireLogin(staticAuth{"good": 7})(func(c echo.Context) error {
		seen, _ = UserID(c)
		return c.NoContent(http.StatusOK)
	})
	err := h(c)
	return rec, seen, err
}

func TestRequireLogin_BearerHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer good")

	rec, uid, err := run(t, req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 7, uid)
}

func TestRequireLogin_CookieFallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: "good"})

	_, uid, err := run(t, req)
	require.NoError(t, err)
	assert.EqualValues(t, 7, uid)
}

func TestRequireLogin_Rejects(t *testing.T) {
	cases := map[string]func(r *http.Request){
		"missing":   func(r *http.Request) {},
		"bad token": func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer nope") },
		"no scheme": func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "good") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/cart", nil)
			mutate(req)

			_, _, err := run(t, req)
			var he *echo.HTTPError
			require.ErrorAs(t, err, &he)
			assert.Equal(t, http.StatusUnauthorized, he.Code)
		})
	}
}
