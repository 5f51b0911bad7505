package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/apparel-storefront/internal/model"
	"github.com/iliyamo/apparel-storefront/internal/queue"
	"github.com/iliyamo/apparel-storefront/internal/repository"
	"github.com/iliyamo/apparel-storefront/internal/service"
)

// ListOrders handles GET /api/admin/orders with optional ?status= and
// ?search= filters, or one order with items, address and payment via ?id=.
func (h *AdminHandler) ListOrders(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	if c.QueryParam("id") != "" {
		id, err := queryID(c)
		if err != nil {
			return badRequest(c, err.Error())
		}
		o, err := h.Repos.Orders.GetByID(ctx, id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"order": o})
	}
	f := repository.OrderFilter{Search: c.QueryParam("search")}
	if raw := c.QueryParam("status"); raw != "" && raw != "all" {
		st, ok := model.ParseOrderStatus(raw)
		if !ok {
			return badRequest(c, "unknown status")
		}
		f.Status = st
	}
	orders, err := h.Repos.Orders.List(ctx, f)
	if err != nil {
		return respondError(c, err)
	}
	stats, err := h.Repos.Orders.Stats(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": orders, "stats": stats})
}

type orderStatusReq struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

// UpdateOrder handles PATCH /api/admin/orders?id=. Any known status may be
// set; CONFIRMED, SHIPPED, DELIVERED and CANCELLED stamp their timestamp.
func (h *AdminHandler) UpdateOrder(c echo.Context) error {
	id, err := queryID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req orderStatusReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	st, ok := model.ParseOrderStatus(req.Status)
	if !ok {
		return badRequest(c, "status must be one of PENDING, CONFIRMED, PROCESSING, SHIPPED, DELIVERED, CANCELLED, REFUNDED")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	at := h.now()
	o, err := h.Repos.Orders.UpdateStatus(ctx, id, st, req.Notes, at)
	if err != nil {
		return respondError(c, err)
	}
	service.Emit(ctx, h.Events, queue.NewOrderEvent(queue.OrderStatusChanged, o, at))
	return c.JSON(http.StatusOK, echo.Map{"order": o})
}

// DeleteOrder handles DELETE /api/admin/orders?id=. Only cancelled orders
// can be deleted.
func (h *AdminHandler) DeleteOrder(c echo.Context) error {
	id, err := queryID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Repos.Orders.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
