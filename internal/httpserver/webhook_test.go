package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/liushenghao/taixuan_shop/internal/models"
	"github.com/liushenghao/taixuan_shop/internal/payments"
	"github.com/liushenghao/taixuan_shop/internal/repo"
	"github.com/liushenghao/taixuan_shop/internal/service"
)

func newTestRepo(t *testing.T) *repo.GormRepo {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Product{}, &models.User{}, &models.RefreshToken{},
		&models.CartItem{}, &models.Order{}, &models.OrderItem{},
		&models.WebhookEvent{},
	))
	return repo.New(db)
}

// verifyFunc lets a test script the provider's verification outcome.
type verifyFunc func(payload []byte, sigHeader string) (*payments.Event, error)

type scriptedProvider struct {
	verify verifyFunc
	create func(payments.SessionParams) (*payments.Session, error)
}

func (p *scriptedProvider) CreateCheckoutSession(_ context.Context, params payments.SessionParams) (*payments.Session, error) {
	if p.create == nil {
		return nil, fmt.Errorf("not scripted")
	}
	return p.create(params)
}

func (p *scriptedProvider) VerifyEvent(payload []byte, sigHeader string) (*payments.Event, error) {
	return p.verify(payload, sigHeader)
}

func webhookRequest(body, signature string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/shop/webhook", strings.NewReader(body))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandleWebhookBadSignature(t *testing.T) {
	r := newTestRepo(t)
	h := &WebhookHandler{
		Svc: &service.WebhookService{Repo: r},
		Provider: &scriptedProvider{verify: func([]byte, string) (*payments.Event, error) {
			return nil, payments.ErrBadSignature
		}},
	}

	c, _ := webhookRequest(`{}`, "garbage")
	err := h.HandleWebhook(c)

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusBadRequest, he.Code)

	// Nothing was recorded as processed.
	var n int64
	require.NoError(t, r.DB.Model(&models.WebhookEvent{}).Count(&n).Error)
	require.Zero(t, n)
}

func TestHandleWebhookMissingSecret(t *testing.T) {
	h := &WebhookHandler{
		Svc: &service.WebhookService{Repo: newTestRepo(t)},
		Provider: &scriptedProvider{verify: func([]byte, string) (*payments.Event, error) {
			return nil, payments.ErrNotConfigured
		}},
	}

	c, _ := webhookRequest(`{}`, "any")
	err := h.HandleWebhook(c)

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusInternalServerError, he.Code)
}

func TestHandleWebhookAppliesEvent(t *testing.T) {
	r := newTestRepo(t)

	prod := models.Product{Name: "compass", Price: 100, Stock: 3, IsActive: true}
	require.NoError(t, r.DB.Create(&prod).Error)
	order := models.Order{
		UserID: 1, Email: "a@b.cn", Status: models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending, Total: 100, Currency: "cny",
		Items: []models.OrderItem{{ProductID: prod.ID, Name: prod.Name, UnitPrice: 100, Quantity: 1}},
	}
	require.NoError(t, r.DB.Create(&order).Error)

	h := &WebhookHandler{
		Svc: &service.WebhookService{Repo: r},
		Provider: &scriptedProvider{verify: func(_ []byte, sig string) (*payments.Event, error) {
			if sig != "valid-sig" {
				return nil, payments.ErrBadSignature
			}
			return &payments.Event{
				ID:       "evt_http_1",
				Type:     payments.EventCheckoutCompleted,
				Metadata: map[string]string{"order_id": fmt.Sprint(order.ID)},
			}, nil
		}},
	}

	c, rec := webhookRequest(`{"id":"evt_http_1"}`, "valid-sig")
	require.NoError(t, h.HandleWebhook(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"received":true}`, rec.Body.String())

	var got models.Order
	require.NoError(t, r.DB.First(&got, order.ID).Error)
	require.Equal(t, models.OrderStatusPaid, got.Status)
}

func TestHandleWebhookUnknownOrder(t *testing.T) {
	h := &WebhookHandler{
		Svc: &service.WebhookService{Repo: newTestRepo(t)},
		Provider: &scriptedProvider{verify: func([]byte, string) (*payments.Event, error) {
			return &payments.Event{
				ID:       "evt_http_2",
				Type:     payments.EventCheckoutCompleted,
				Metadata: map[string]string{"order_id": "8888"},
			}, nil
		}},
	}

	c, _ := webhookRequest(`{}`, "valid-sig")
	err := h.HandleWebhook(c)

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusNotFound, he.Code)
}
