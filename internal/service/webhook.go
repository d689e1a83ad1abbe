package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/liushenghao/taixuan_shop/internal/logging"
	"github.com/liushenghao/taixuan_shop/internal/mailer"
	"github.com/liushenghao/taixuan_shop/internal/models"
	"github.com/liushenghao/taixuan_shop/internal/mykafka"
	"github.com/liushenghao/taixuan_shop/internal/payments"
	"github.com/liushenghao/taixuan_shop/internal/repo"
)

// WebhookService applies payment-outcome notifications to orders. Handlers
// must be safe against processor-side redelivery: every applied event id is
// recorded, and a replay is acknowledged without re-running its effects.
type WebhookService struct {
	Repo     *repo.GormRepo
	Producer *mykafka.Producer
	Mailer   *mailer.Mailer
}

func (s *WebhookService) publish(ctx context.Context, event map[string]any) {
	if err := s.Producer.PublishEvent(ctx, "order_events", fmt.Sprint(event["orderID"]), event); err != nil {
		logging.FromContext(ctx).Error("kafka publish failed", "topic", "order_events", "error", err)
	}
}

func orderIDFromEvent(ev *payments.Event) (uint, error) {
	raw := ev.Metadata["order_id"]
	if raw == "" {
		return 0, fmt.Errorf("%w: event %s carries no order_id", ErrValidation, ev.ID)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad order_id %q", ErrValidation, raw)
	}
	return uint(id), nil
}

// claimEvent records the processor event id. A second delivery of the same
// id reports claimed=false and the caller acknowledges without side effects.
func claimEvent(tx *gorm.DB, ev *payments.Event, orderID uint) (bool, error) {
	rec := models.WebhookEvent{
		EventID:     ev.ID,
		EventType:   ev.Type,
		OrderID:     orderID,
		ProcessedAt: time.Now().UTC(),
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *WebhookService) HandleEvent(ctx context.Context, ev *payments.Event) error {
	l := logging.FromContext(ctx).With("event_id", ev.ID, "event_type", ev.Type)

	switch ev.Type {
	case payments.EventCheckoutCompleted:
		return s.handleCompleted(ctx, ev)
	case payments.EventCheckoutExpired:
		return s.handleExpired(ctx, ev)
	case payments.EventPaymentFailed:
		l.Warn("payment failed upstream, no order mutation")
		return nil
	default:
		l.Info("ignoring unhandled event type")
		return nil
	}
}

func (s *WebhookService) handleCompleted(ctx context.Context, ev *payments.Event) error {
	orderID, err := orderIDFromEvent(ev)
	if err != nil {
		return err
	}

	order, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return err
	}

	l := logging.FromContext(ctx).With("order_id", orderID)
	applied := false

	txErr := s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claimed, err := claimEvent(tx, ev, orderID)
		if err != nil {
			return err
		}
		if !claimed {
			l.Info("webhook replay, already processed")
			return nil
		}

		// Conditional transition: only a still-pending row moves, so two
		// distinct completed events racing on one order cannot both apply.
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, models.OrderStatusPending).
			Updates(map[string]any{
				"status":         models.OrderStatusPaid,
				"payment_status": models.PaymentStatusPaid,
				"paid_at":        time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			l.Warn("completed event for non-pending order, skipping")
			return nil
		}

		if ev.SessionID != "" {
			err := tx.Model(&models.Order{}).
				Where("id = ? AND session_id = ?", orderID, "").
				Update("session_id", ev.SessionID).Error
			if err != nil {
				return err
			}
		}

		// Same claim pattern for the decrement: whoever flips the flag owns
		// the stock adjustment, so a direct-flow order is never hit twice.
		res = tx.Model(&models.Order{}).
			Where("id = ? AND stock_adjusted = ?", orderID, false).
			Update("stock_adjusted", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			for _, item := range order.Items {
				if err := decrementStock(tx, item); err != nil {
					// The money already moved; an oversold line is an ops
					// problem, not a reason to bounce the webhook.
					if errors.Is(err, ErrValidation) {
						l.Warn("stock underflow on paid order", "product_id", item.ProductID, "error", err)
						continue
					}
					return err
				}
			}
		}

		if err := tx.Where("user_id = ?", order.UserID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}

		applied = true
		return nil
	})
	if txErr != nil {
		return txErr
	}
	if !applied {
		return nil
	}

	// Side effects after commit, both best-effort: the processor must still
	// get its 200 or it will retry delivery indefinitely.
	if err := s.Mailer.SendOrderConfirmation(ctx, order); err != nil {
		l.Error("confirmation mail failed", "error", err)
	}
	s.publish(ctx, map[string]any{
		"type":    "order_paid",
		"orderID": order.ID,
		"userID":  order.UserID,
		"total":   order.Total,
	})
	return nil
}

// handleExpired cancels a pending order. The status guard keeps a late or
// out-of-order expiry from regressing an already-paid order.
func (s *WebhookService) handleExpired(ctx context.Context, ev *payments.Event) error {
	orderID, err := orderIDFromEvent(ev)
	if err != nil {
		return err
	}

	order, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return err
	}

	l := logging.FromContext(ctx).With("order_id", orderID)
	applied := false

	txErr := s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claimed, err := claimEvent(tx, ev, orderID)
		if err != nil {
			return err
		}
		if !claimed {
			l.Info("webhook replay, already processed")
			return nil
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, models.OrderStatusPending).
			Updates(map[string]any{
				"status":         models.OrderStatusCancelled,
				"payment_status": models.PaymentStatusFailed,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			l.Info("expiry for non-pending order, skipping")
			return nil
		}
		applied = true
		return nil
	})
	if txErr != nil {
		return txErr
	}
	if applied {
		s.publish(ctx, map[string]any{
			"type":    "order_expired",
			"orderID": order.ID,
			"userID":  order.UserID,
		})
	}
	return nil
}
