package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEcho() *echo.Echo {
	e := echo.New()
	e.Use(Middleware(Config{SkipPrefixes: []string{"/api/v1/auth/"}}))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.GET("/api/v1/cart", ok)
	e.POST("/api/v1/cart/checkout", ok)
	e.POST("/api/v1/auth/login", ok)
	return e
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCSRF(t *testing.T) {
	e := newEcho()

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	token := rec.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, token)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, token, cookies[0].Value)

	// no header
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/checkout", nil)
	req.AddCookie(cookies[0])
	assert.Equal(t, http.StatusForbidden, serve(e, req).Code)

	// wrong header
	req = httptest.NewRequest(http.MethodPost, "/api/v1/cart/checkout", nil)
	req.AddCookie(cookies[0])
	req.Header.Set("X-CSRF-Token", "forged")
	assert.Equal(t, http.StatusForbidden, serve(e, req).Code)

	// cross-site origin
	req = httptest.NewRequest(http.MethodPost, "/api/v1/cart/checkout", nil)
	req.AddCookie(cookies[0])
	req.Header.Set("X-CSRF-Token", token)
	req.Header.Set("Origin", "https://evil.example")
	assert.Equal(t, http.StatusForbidden, serve(e, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/cart/checkout", nil)
	req.AddCookie(cookies[0])
	req.Header.Set("X-CSRF-Token", token)
	req.Header.Set("Origin", "http://example.com")
	assert.Equal(t, http.StatusOK, serve(e, req).Code)

	assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)).Code)
}
