package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/liushenghao/taixuan_shop/internal/logging"
	"github.com/liushenghao/taixuan_shop/internal/service"
	"github.com/liushenghao/taixuan_shop/internal/transport"
)

type CheckoutHandler struct {
	Svc *service.CheckoutService
}

func (h *CheckoutHandler) CreateCheckoutSession(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.create_session")

	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	var req transport.CheckoutRequest
	if err := bind(c, &req); err != nil {
		l.Warn("create_session_failed", "reason", "invalid body", "error", err)
		return err
	}

	resp, err := h.Svc.CreateSession(ctx, userID, req)
	if err != nil {
		l.Error("create_session_failed", "user_id", userID, "error", err)
		return httpError(err)
	}

	l.Info("create_session_success", "user_id", userID, "order_id", resp.OrderID)
	return c.JSON(http.StatusOK, resp)
}
