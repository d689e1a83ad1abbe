package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/liushenghao/taixuan_shop/internal/logging"
	"github.com/liushenghao/taixuan_shop/internal/service"
	"github.com/liushenghao/taixuan_shop/internal/service/token"
	"github.com/liushenghao/taixuan_shop/internal/transport"
)

type CartHandler struct {
	Svc *service.CartService
}

func requireUserID(c echo.Context) (uint, error) {
	id, ok := token.UserID(c)
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "missing session")
	}
	return id, nil
}

func (h *CartHandler) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")

	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	view, err := h.Svc.GetCart(ctx, userID)
	if err != nil {
		l.Error("get_cart_failed", "user_id", userID, "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	var req transport.AddCartItemRequest
	if err := bind(c, &req); err != nil {
		l.Warn("add_cart_failed", "reason", "invalid body", "error", err)
		return err
	}

	item, err := h.Svc.AddItem(ctx, userID, req)
	if err != nil {
		l.Warn("add_cart_failed", "user_id", userID, "product_id", req.ProductID, "error", err)
		return httpError(err)
	}

	l.Info("add_cart_success", "user_id", userID, "product_id", req.ProductID)
	return c.JSON(http.StatusOK, item)
}

func (h *CartHandler) RemoveFromCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove")

	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	var req transport.RemoveCartItemRequest
	if err := bind(c, &req); err != nil {
		l.Warn("remove_cart_failed", "reason", "invalid body", "error", err)
		return err
	}

	view, err := h.Svc.RemoveItem(ctx, userID, req.ProductID)
	if err != nil {
		l.Error("remove_cart_failed", "user_id", userID, "product_id", req.ProductID, "error", err)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, view)
}
