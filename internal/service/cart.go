package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/liushenghao/taixuan_shop/internal/logging"
	"github.com/liushenghao/taixuan_shop/internal/models"
	"github.com/liushenghao/taixuan_shop/internal/mykafka"
	"github.com/liushenghao/taixuan_shop/internal/repo"
	"github.com/liushenghao/taixuan_shop/internal/transport"
)

type CartService struct {
	Repo     *repo.GormRepo
	Producer *mykafka.Producer
}

func (s *CartService) publish(ctx context.Context, event map[string]any) {
	if err := s.Producer.PublishEvent(ctx, "cart_events", fmt.Sprint(event["userID"]), event); err != nil {
		logging.FromContext(ctx).Error("kafka publish failed", "topic", "cart_events", "error", err)
	}
}

// GetCart resolves every row against the live catalog. The cart is lazy:
// a user with no rows simply gets an empty view, never an error.
func (s *CartService) GetCart(ctx context.Context, userID uint) (*transport.CartView, error) {
	items, err := s.Repo.GetCartItems(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &transport.CartView{Items: make([]transport.CartEntry, 0, len(items))}
	for _, it := range items {
		entry := transport.CartEntry{ProductID: it.ProductID, Quantity: it.Quantity}

		prod, err := s.Repo.GetActiveProduct(ctx, it.ProductID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			entry.Unavailable = true
		} else {
			entry.Product = prod
			entry.UnitPrice = EffectivePrice(prod.Price, prod.Discount)
			entry.LineTotal = entry.UnitPrice * int64(it.Quantity)
			view.Subtotal += entry.LineTotal
		}
		view.Items = append(view.Items, entry)
	}

	return view, nil
}

func (s *CartService) AddItem(ctx context.Context, userID uint, req transport.AddCartItemRequest) (*models.CartItem, error) {
	quantity := req.Quantity
	if quantity < 1 {
		quantity = 1
	}

	prod, err := s.Repo.GetActiveProduct(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, req.ProductID)
		}
		return nil, err
	}

	item, err := s.Repo.GetCartItem(ctx, userID, req.ProductID)
	switch {
	case err == nil:
		if req.SetAbsolute {
			item.Quantity = quantity
		} else {
			item.Quantity += quantity
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		item = &models.CartItem{UserID: userID, ProductID: req.ProductID, Quantity: quantity}
	default:
		return nil, err
	}

	if !prod.IsDigital && prod.Stock < item.Quantity {
		return nil, fmt.Errorf("%w: only %d of %q in stock", ErrValidation, prod.Stock, prod.Name)
	}

	if item.ID == 0 {
		err = s.Repo.CreateCartItem(ctx, item)
	} else {
		err = s.Repo.SaveCartItem(ctx, item)
	}
	if err != nil {
		return nil, err
	}

	s.publish(ctx, map[string]any{
		"type":      "cart_item_added",
		"userID":    userID,
		"productID": req.ProductID,
		"quantity":  item.Quantity,
	})
	return item, nil
}

// RemoveItem succeeds whether or not the product is in the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID uint) (*transport.CartView, error) {
	if err := s.Repo.DeleteCartItem(ctx, userID, productID); err != nil {
		return nil, err
	}

	s.publish(ctx, map[string]any{
		"type":      "cart_item_removed",
		"userID":    userID,
		"productID": productID,
	})
	return s.GetCart(ctx, userID)
}
