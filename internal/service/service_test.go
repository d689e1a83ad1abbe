package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/liushenghao/taixuan_shop/internal/models"
	"github.com/liushenghao/taixuan_shop/internal/payments"
	"github.com/liushenghao/taixuan_shop/internal/repo"
)

func newTestRepo(t *testing.T) *repo.GormRepo {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Product{},
		&models.User{},
		&models.RefreshToken{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.WebhookEvent{},
	))

	return repo.New(db)
}

func seedProduct(t *testing.T, r *repo.GormRepo, p models.Product) *models.Product {
	t.Helper()
	if p.Name == "" {
		p.Name = fmt.Sprintf("product-%d", p.ID)
	}
	if p.Currency == "" {
		p.Currency = "cny"
	}
	require.NoError(t, r.DB.Create(&p).Error)
	return &p
}

func productStock(t *testing.T, r *repo.GormRepo, id uint) uint {
	t.Helper()
	var p models.Product
	require.NoError(t, r.DB.First(&p, id).Error)
	return p.Stock
}

func cartCount(t *testing.T, r *repo.GormRepo, userID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, r.DB.Model(&models.CartItem{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

// fakeProvider stands in for the payment processor. Signature "valid-sig"
// verifies; anything else fails closed.
type fakeProvider struct {
	sessions   []payments.SessionParams
	createErr  error
	nextEvents map[string]*payments.Event
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, params payments.SessionParams) (*payments.Session, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.sessions = append(f.sessions, params)
	return &payments.Session{
		ID:  fmt.Sprintf("cs_test_%d", len(f.sessions)),
		URL: "https://pay.example/session",
	}, nil
}

func (f *fakeProvider) VerifyEvent(payload []byte, sigHeader string) (*payments.Event, error) {
	if sigHeader != "valid-sig" {
		return nil, payments.ErrBadSignature
	}
	ev, ok := f.nextEvents[string(payload)]
	if !ok {
		return nil, fmt.Errorf("no fake event for payload %q", payload)
	}
	return ev, nil
}
