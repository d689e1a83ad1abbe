package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func csrfNext(c echo.Context) error { return c.NoContent(http.StatusOK) }

func TestCSRFIssueOnSafeMethod(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/shop/products", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, CSRF()(csrfNext)(e.NewContext(req, rec)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get(csrfHeaderName))

	var issued string
	for _, c := range rec.Result().Cookies() {
		if c.Name == csrfCookieName {
			issued = c.Value
		}
	}
	require.NotEmpty(t, issued)
}

func TestCSRFRejectsMutationWithoutToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/shop/cart", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Host = "example.com"
	rec := httptest.NewRecorder()

	err := CSRF()(csrfNext)(e.NewContext(req, rec))

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusForbidden, he.Code)
}

func TestCSRFAcceptsMatchingTokenPair(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/shop/cart", nil)
	req.Host = "example.com"
	req.Header.Set("Origin", "http://example.com")
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "tok123"})
	req.Header.Set(csrfHeaderName, "tok123")
	rec := httptest.NewRecorder()

	require.NoError(t, CSRF()(csrfNext)(e.NewContext(req, rec)))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCSRFRejectsCrossOrigin(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/shop/cart", nil)
	req.Host = "shop.example.com"
	req.Header.Set("Origin", "http://evil.example.net")
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "tok123"})
	req.Header.Set(csrfHeaderName, "tok123")
	rec := httptest.NewRecorder()

	err := CSRF()(csrfNext)(e.NewContext(req, rec))

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusForbidden, he.Code)
}

func TestCSRFSkipsExemptPath(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/shop/webhook", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, CSRF("/api/shop/webhook")(csrfNext)(e.NewContext(req, rec)))
	require.Equal(t, http.StatusOK, rec.Code)
}
