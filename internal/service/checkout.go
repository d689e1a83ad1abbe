package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/liushenghao/taixuan_shop/internal/logging"
	"github.com/liushenghao/taixuan_shop/internal/models"
	"github.com/liushenghao/taixuan_shop/internal/mykafka"
	"github.com/liushenghao/taixuan_shop/internal/payments"
	"github.com/liushenghao/taixuan_shop/internal/repo"
	"github.com/liushenghao/taixuan_shop/internal/transport"
)

type CheckoutService struct {
	Repo     *repo.GormRepo
	Provider payments.Provider
	Producer *mykafka.Producer
	BaseURL  string
}

// validateLines re-fetches every submitted product, builds the order snapshot
// and the processor line items. Any missing, inactive or under-stocked line
// fails the whole request; there is no partial success.
func (s *CheckoutService) validateLines(ctx context.Context, items []transport.CheckoutItem, locale string) ([]models.OrderItem, []payments.LineItem, int64, string, error) {
	snapshot := make([]models.OrderItem, 0, len(items))
	lines := make([]payments.LineItem, 0, len(items))
	var total int64
	currency := "cny"

	for _, it := range items {
		prod, err := s.Repo.GetActiveProduct(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, 0, "", fmt.Errorf("%w: product %d", ErrNotFound, it.ProductID)
			}
			return nil, nil, 0, "", err
		}
		if !prod.IsDigital && prod.Stock < it.Quantity {
			return nil, nil, 0, "", fmt.Errorf("%w: only %d of %q in stock", ErrValidation, prod.Stock, prod.Name)
		}

		unit := EffectivePrice(prod.Price, prod.Discount)
		image := ""
		if len(prod.Images) > 0 {
			image = prod.Images[0]
		}

		snapshot = append(snapshot, models.OrderItem{
			ProductID: prod.ID,
			Name:      prod.Name,
			NameEn:    prod.NameEn,
			Image:     image,
			UnitPrice: unit,
			Quantity:  it.Quantity,
			IsDigital: prod.IsDigital,
		})

		name := prod.Name
		if locale == "en" && prod.NameEn != "" {
			name = prod.NameEn
		}
		lines = append(lines, payments.LineItem{
			Name:      name,
			Images:    httpImages(prod.Images),
			UnitPrice: unit,
			Quantity:  it.Quantity,
			Currency:  prod.Currency,
		})

		total += unit * int64(it.Quantity)
		currency = prod.Currency
	}

	return snapshot, lines, total, currency, nil
}

// httpImages keeps only image URLs the processor will accept. Malformed
// entries are dropped, not rejected.
func httpImages(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
			out = append(out, u)
		}
	}
	return out
}

// CreateSession persists a pending order and opens a hosted payment session
// for it. The order is written before the processor call so a record exists
// even when the processor is unreachable.
func (s *CheckoutService) CreateSession(ctx context.Context, userID uint, req transport.CheckoutRequest) (*transport.CheckoutResponse, error) {
	snapshot, lines, total, currency, err := s.validateLines(ctx, req.Items, req.Locale)
	if err != nil {
		return nil, err
	}

	billing := req.ShippingInfo
	if req.BillingInfo != nil {
		billing = *req.BillingInfo
	}

	order := &models.Order{
		UserID:        userID,
		Email:         req.ShippingInfo.Email,
		Items:         snapshot,
		ShippingInfo:  req.ShippingInfo,
		BillingInfo:   billing,
		Total:         total,
		Currency:      currency,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
	}
	if err := s.Repo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	sess, err := s.Provider.CreateCheckoutSession(ctx, payments.SessionParams{
		Lines:         lines,
		SuccessURL:    s.BaseURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.BaseURL + "/checkout/cancel",
		CustomerEmail: order.Email,
		Metadata: map[string]string{
			"order_id": strconv.FormatUint(uint64(order.ID), 10),
			"user_id":  strconv.FormatUint(uint64(userID), 10),
		},
	})
	if err != nil {
		// The pending order stays behind on purpose; support can follow up.
		return nil, err
	}

	order.SessionID = sess.ID
	if err := s.Repo.SaveOrder(ctx, order); err != nil {
		return nil, err
	}

	s.publish(ctx, map[string]any{
		"type":    "checkout_session_created",
		"userID":  userID,
		"orderID": order.ID,
		"session": sess.ID,
	})

	return &transport.CheckoutResponse{
		SessionID: sess.ID,
		URL:       sess.URL,
		OrderID:   order.ID,
	}, nil
}

func (s *CheckoutService) publish(ctx context.Context, event map[string]any) {
	if err := s.Producer.PublishEvent(ctx, "order_events", fmt.Sprint(event["orderID"]), event); err != nil {
		logging.FromContext(ctx).Error("kafka publish failed", "topic", "order_events", "error", err)
	}
}
