package httpserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/liushenghao/taixuan_shop/internal/logging"
	"github.com/liushenghao/taixuan_shop/internal/payments"
	"github.com/liushenghao/taixuan_shop/internal/service"
)

type WebhookHandler struct {
	Svc      *service.WebhookService
	Provider payments.Provider
}

// HandleWebhook verifies and applies a processor notification. Anything the
// business logic accepts must answer 200, or the processor keeps retrying.
func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "webhook")

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		l.Warn("webhook_failed", "reason", "unreadable body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}

	ev, err := h.Provider.VerifyEvent(payload, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payments.ErrNotConfigured) {
			l.Error("webhook_failed", "reason", "missing webhook secret", "error", err)
			return httpError(err)
		}
		l.Warn("webhook_failed", "reason", "bad signature", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "signature verification failed")
	}

	if err := h.Svc.HandleEvent(ctx, ev); err != nil {
		l.Error("webhook_failed", "event_id", ev.ID, "event_type", ev.Type, "error", err)
		return httpError(err)
	}

	l.Info("webhook_success", "event_id", ev.ID, "event_type", ev.Type)
	return c.JSON(http.StatusOK, map[string]any{"received": true})
}
