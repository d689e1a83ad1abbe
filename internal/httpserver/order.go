package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/liushenghao/taixuan_shop/internal/logging"
	"github.com/liushenghao/taixuan_shop/internal/service"
	"github.com/liushenghao/taixuan_shop/internal/service/token"
	"github.com/liushenghao/taixuan_shop/internal/transport"
	"github.com/liushenghao/taixuan_shop/internal/util"
)

type OrderHandler struct {
	Svc *service.OrderService
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create")

	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	var req transport.CreateOrderRequest
	if err := bind(c, &req); err != nil {
		l.Warn("create_order_failed", "reason", "invalid body", "error", err)
		return err
	}

	order, err := h.Svc.CreateOrder(ctx, userID, token.Email(c), req)
	if err != nil {
		l.Warn("create_order_failed", "user_id", userID, "error", err)
		return httpError(err)
	}

	l.Info("create_order_success", "user_id", userID, "order_id", order.ID)
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) ListMyOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_mine")

	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("limit"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, orders, err := h.Svc.ListOrdersForUser(ctx, userID, offset, limit)
	if err != nil {
		l.Error("list_orders_failed", "user_id", userID, "error", err)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": orders,
		"meta": transport.PageMeta{
			Page:       page,
			Size:       limit,
			Total:      total,
			TotalPages: util.TotalPages(total, limit),
		},
	})
}

func (h *OrderHandler) GetMyOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_mine")

	userID, err := requireUserID(c)
	if err != nil {
		return err
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	order, err := h.Svc.GetOrderForUser(ctx, userID, id)
	if err != nil {
		l.Warn("get_order_failed", "user_id", userID, "order_id", id, "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) AdminListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.admin_list")

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("limit"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, orders, err := h.Svc.ListOrders(ctx, c.QueryParam("status"), offset, limit)
	if err != nil {
		l.Error("admin_list_orders_failed", "error", err)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": orders,
		"meta": transport.PageMeta{
			Page:       page,
			Size:       limit,
			Total:      total,
			TotalPages: util.TotalPages(total, limit),
		},
	})
}

func (h *OrderHandler) AdminGetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.admin_get")

	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	order, err := h.Svc.GetOrder(ctx, id)
	if err != nil {
		l.Warn("admin_get_order_failed", "order_id", id, "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) AdminPatchOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.admin_patch")

	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var req transport.PatchOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("admin_patch_order_failed", "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.PatchOrder(ctx, id, req)
	if err != nil {
		l.Warn("admin_patch_order_failed", "order_id", id, "error", err)
		return httpError(err)
	}

	l.Info("admin_patch_order_success", "order_id", id, "status", order.Status)
	return c.JSON(http.StatusOK, order)
}
