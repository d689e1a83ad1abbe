package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/liushenghao/taixuan_shop/internal/logging"
	"github.com/liushenghao/taixuan_shop/internal/models"
	"github.com/liushenghao/taixuan_shop/internal/mykafka"
	"github.com/liushenghao/taixuan_shop/internal/repo"
	"github.com/liushenghao/taixuan_shop/internal/transport"
)

type OrderService struct {
	Repo     *repo.GormRepo
	Producer *mykafka.Producer
}

// allowedTransitions is the forward chain plus the cancel/refund branches
// from pending and paid.
var allowedTransitions = map[string][]string{
	models.OrderStatusPending:    {models.OrderStatusPaid, models.OrderStatusCancelled, models.OrderStatusRefunded},
	models.OrderStatusPaid:       {models.OrderStatusProcessing, models.OrderStatusCancelled, models.OrderStatusRefunded},
	models.OrderStatusProcessing: {models.OrderStatusShipped},
	models.OrderStatusShipped:    {models.OrderStatusDelivered},
	models.OrderStatusDelivered:  {models.OrderStatusCompleted},
}

func transitionAllowed(from, to string) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s *OrderService) publish(ctx context.Context, event map[string]any) {
	if err := s.Producer.PublishEvent(ctx, "order_events", fmt.Sprint(event["orderID"]), event); err != nil {
		logging.FromContext(ctx).Error("kafka publish failed", "topic", "order_events", "error", err)
	}
}

// decrementStock takes quantity off a physical product and bumps its sold
// count, conditionally so a concurrent purchase cannot drive stock negative.
func decrementStock(tx *gorm.DB, item models.OrderItem) error {
	if item.IsDigital {
		res := tx.Model(&models.Product{}).
			Where("id = ?", item.ProductID).
			Update("sold_count", gorm.Expr("sold_count + ?", item.Quantity))
		return res.Error
	}

	res := tx.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", item.ProductID, item.Quantity).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock - ?", item.Quantity),
			"sold_count": gorm.Expr("sold_count + ?", item.Quantity),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: product %d is out of stock", ErrValidation, item.ProductID)
	}
	return nil
}

// CreateOrder is the direct flow: snapshot, decrement stock at creation time
// and clear the cart, all in one transaction. Orders created here never touch
// the payment processor.
func (s *OrderService) CreateOrder(ctx context.Context, userID uint, email string, req transport.CreateOrderRequest) (*models.Order, error) {
	snapshot := make([]models.OrderItem, 0, len(req.Items))
	var total int64
	currency := "cny"

	for _, it := range req.Items {
		prod, err := s.Repo.GetActiveProduct(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: product %d", ErrNotFound, it.ProductID)
			}
			return nil, err
		}
		if !prod.IsDigital && prod.Stock < it.Quantity {
			return nil, fmt.Errorf("%w: only %d of %q in stock", ErrValidation, prod.Stock, prod.Name)
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
		total += unit * int64(it.Quantity)
		currency = prod.Currency
	}

	billing := req.ShippingInfo
	if req.BillingInfo != nil {
		billing = *req.BillingInfo
	}

	order := &models.Order{
		UserID:        userID,
		Email:         email,
		Items:         snapshot,
		ShippingInfo:  req.ShippingInfo,
		BillingInfo:   billing,
		Total:         total,
		Currency:      currency,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		StockAdjusted: true,
	}

	txErr := s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range snapshot {
			if err := decrementStock(tx, item); err != nil {
				return err
			}
		}
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
	})
	if txErr != nil {
		return nil, txErr
	}

	s.publish(ctx, map[string]any{
		"type":    "order_created",
		"userID":  userID,
		"orderID": order.ID,
		"total":   order.Total,
	})
	return order, nil
}

func (s *OrderService) ListOrdersForUser(ctx context.Context, userID uint, offset, limit int) (int64, []models.Order, error) {
	return s.Repo.ListOrdersByUser(ctx, userID, offset, limit)
}

// GetOrderForUser enforces ownership as an authorization check: a foreign
// order id yields forbidden, not a masked not-found.
func (s *OrderService) GetOrderForUser(ctx context.Context, userID uint, orderID uint) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, err
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("%w: order %d belongs to another user", ErrForbidden, orderID)
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, status string, offset, limit int) (int64, []models.Order, error) {
	return s.Repo.ListOrders(ctx, status, offset, limit)
}

func (s *OrderService) GetOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, err
	}
	return order, nil
}

// PatchOrder applies an admin status change. Lifecycle timestamps are set
// exactly once; replays of the same transition are conflicts.
func (s *OrderService) PatchOrder(ctx context.Context, orderID uint, req transport.PatchOrderRequest) (*models.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if req.Status != nil && *req.Status != order.Status {
		to := *req.Status
		if !transitionAllowed(order.Status, to) {
			return nil, fmt.Errorf("%w: cannot move order from %s to %s", ErrConflict, order.Status, to)
		}

		now := time.Now().UTC()
		switch to {
		case models.OrderStatusPaid:
			if order.PaidAt == nil {
				order.PaidAt = &now
			}
			order.PaymentStatus = models.PaymentStatusPaid
		case models.OrderStatusShipped:
			if order.ShippedAt == nil {
				order.ShippedAt = &now
			}
		case models.OrderStatusDelivered:
			if order.DeliveredAt == nil {
				order.DeliveredAt = &now
			}
		case models.OrderStatusRefunded:
			order.PaymentStatus = models.PaymentStatusRefunded
		}
		order.Status = to
	}

	if req.PaymentStatus != nil {
		switch *req.PaymentStatus {
		case models.PaymentStatusPending, models.PaymentStatusPaid,
			models.PaymentStatusFailed, models.PaymentStatusRefunded:
			order.PaymentStatus = *req.PaymentStatus
		default:
			return nil, fmt.Errorf("%w: unknown payment status %q", ErrValidation, *req.PaymentStatus)
		}
	}

	if err := s.Repo.SaveOrder(ctx, order); err != nil {
		return nil, err
	}

	s.publish(ctx, map[string]any{
		"type":    "order_updated",
		"orderID": order.ID,
		"status":  order.Status,
	})
	return order, nil
}
