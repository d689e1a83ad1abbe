package httpserver

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/liushenghao/taixuan_shop/internal/models"
	"github.com/liushenghao/taixuan_shop/internal/payments"
	"github.com/liushenghao/taixuan_shop/internal/service"
)

func jsonRequest(t *testing.T, path, body string, userID uint, email string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("userID", userID)
	c.Set("email", email)
	return c, rec
}

const shippingJSON = `{"name":"Li Wei","email":"liwei@example.com","line1":"88 Nanjing Road","city":"Shanghai","country":"CN"}`

// A body with no billing block must bind, validate and fall back to the
// shipping address, not bounce with a 400.
func TestCreateCheckoutSessionWithoutBillingInfo(t *testing.T) {
	r := newTestRepo(t)
	prod := models.Product{Name: "jade seal", Price: 1000, Stock: 4, IsActive: true}
	require.NoError(t, r.DB.Create(&prod).Error)

	h := &CheckoutHandler{Svc: &service.CheckoutService{
		Repo: r,
		Provider: &scriptedProvider{create: func(payments.SessionParams) (*payments.Session, error) {
			return &payments.Session{ID: "cs_wire_1", URL: "https://pay.example/s"}, nil
		}},
	}}

	body := fmt.Sprintf(`{"items":[{"product_id":%d,"quantity":1}],"shipping_info":%s}`, prod.ID, shippingJSON)
	c, rec := jsonRequest(t, "/api/shop/create-checkout-session", body, 9, "liwei@example.com")

	require.NoError(t, h.CreateCheckoutSession(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var order models.Order
	require.NoError(t, r.DB.First(&order).Error)
	require.Equal(t, order.ShippingInfo, order.BillingInfo)
	require.Equal(t, "Li Wei", order.BillingInfo.Name)
}

func TestCreateOrderWithoutBillingInfo(t *testing.T) {
	r := newTestRepo(t)
	prod := models.Product{Name: "incense set", Price: 600, Stock: 2, IsActive: true}
	require.NoError(t, r.DB.Create(&prod).Error)

	h := &OrderHandler{Svc: &service.OrderService{Repo: r}}

	body := fmt.Sprintf(`{"items":[{"product_id":%d,"quantity":1}],"shipping_info":%s}`, prod.ID, shippingJSON)
	c, rec := jsonRequest(t, "/api/shop/orders", body, 9, "liwei@example.com")

	require.NoError(t, h.CreateOrder(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var order models.Order
	require.NoError(t, r.DB.First(&order).Error)
	require.Equal(t, order.ShippingInfo, order.BillingInfo)
	require.Equal(t, "Shanghai", order.BillingInfo.City)
}

// An explicit billing block still wins over the shipping fallback.
func TestCreateCheckoutSessionWithBillingInfo(t *testing.T) {
	r := newTestRepo(t)
	prod := models.Product{Name: "brass bell", Price: 900, Stock: 3, IsActive: true}
	require.NoError(t, r.DB.Create(&prod).Error)

	h := &CheckoutHandler{Svc: &service.CheckoutService{
		Repo: r,
		Provider: &scriptedProvider{create: func(payments.SessionParams) (*payments.Session, error) {
			return &payments.Session{ID: "cs_wire_2", URL: "https://pay.example/s"}, nil
		}},
	}}

	billing := `{"name":"Zhang San","email":"zhangsan@example.com","line1":"1 Peace Ave","city":"Beijing","country":"CN"}`
	body := fmt.Sprintf(`{"items":[{"product_id":%d,"quantity":1}],"shipping_info":%s,"billing_info":%s}`,
		prod.ID, shippingJSON, billing)
	c, rec := jsonRequest(t, "/api/shop/create-checkout-session", body, 9, "liwei@example.com")

	require.NoError(t, h.CreateCheckoutSession(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var order models.Order
	require.NoError(t, r.DB.First(&order).Error)
	require.Equal(t, "Beijing", order.BillingInfo.City)
	require.Equal(t, "Shanghai", order.ShippingInfo.City)
}
