package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/apparel-storefront/internal/metrics"
	"github.com/iliyamo/apparel-storefront/internal/model"
	"github.com/iliyamo/apparel-storefront/internal/queue"
	"github.com/iliyamo/apparel-storefront/internal/repository"
	"github.com/iliyamo/apparel-storefront/internal/service"
)

// ListPayments handles GET /api/admin/payments, filtered by ?status=,
// ?method= and ?search=, or one payment via ?id=.
func (h *AdminHandler) ListPayments(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	if c.QueryParam("id") != "" {
		id, err := queryID(c)
		if err != nil {
			return badRequest(c, err.Error())
		}
		p, err := h.Repos.Payments.GetByID(ctx, id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"payment": p})
	}
	f := repository.PaymentFilter{Search: c.QueryParam("search")}
	if raw := c.QueryParam("status"); raw != "" && raw != "all" {
		st, ok := model.ParsePaymentStatus(raw)
		if !ok {
			return badRequest(c, "unknown status")
		}
		f.Status = st
	}
	if raw := c.QueryParam("method"); raw != "" && raw != "all" {
		m := model.PaymentMethod(strings.ToUpper(raw))
		if !model.ValidPaymentMethod(m) {
			return badRequest(c, "unknown method")
		}
		f.Method = m
	}
	payments, err := h.Repos.Payments.List(ctx, f)
	if err != nil {
		return respondError(c, err)
	}
	stats, err := h.Repos.Payments.Stats(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"payments": payments, "stats": stats})
}

type paymentReq struct {
	Action        string           `json:"action"`
	RefundAmount  *decimal.Decimal `json:"refundAmount"`
	Reason        *string          `json:"reason"`
	Status        *string          `json:"status"`
	TransactionID *string          `json:"transactionId"`
}

// UpdatePayment handles PATCH /api/admin/payments?id=. With
// "action": "refund" it records a full or partial refund and marks the
// order REFUNDED; otherwise it updates status and transaction id.
func (h *AdminHandler) UpdatePayment(c echo.Context) error {
	id, err := queryID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req paymentReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	at := h.now()

	if strings.EqualFold(req.Action, "refund") {
		var amount *decimal.Decimal
		if req.RefundAmount != nil {
			a := model.Money(*req.RefundAmount)
			amount = &a
		}
		p, err := h.Repos.Payments.Refund(ctx, id, amount, trimmed(req.Reason), at)
		if err != nil {
			return respondError(c, err)
		}
		metrics.Refunds.Inc()
		if o, err := h.Repos.Orders.GetByID(ctx, p.OrderID); err == nil {
			ev := queue.NewOrderEvent(queue.PaymentRefunded, o, at)
			ev.RefundAmount = p.RefundAmount
			service.Emit(ctx, h.Events, ev)
		}
		return c.JSON(http.StatusOK, echo.Map{"payment": p})
	}
	if req.Action != "" {
		return badRequest(c, "unknown action")
	}

	var patch repository.PaymentPatch
	if req.Status != nil {
		st, ok := model.ParsePaymentStatus(*req.Status)
		if !ok {
			return badRequest(c, "unknown status")
		}
		if st == model.PaymentRefunded || st == model.PaymentPartiallyRefunded {
			return badRequest(c, "use action refund to refund a payment")
		}
		patch.Status = &st
	}
	if req.TransactionID != nil {
		tid := strings.TrimSpace(*req.TransactionID)
		patch.TransactionID = &tid
	}
	if patch.Status == nil && patch.TransactionID == nil {
		return badRequest(c, "nothing to update")
	}
	p, err := h.Repos.Payments.Update(ctx, id, patch, at)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"payment": p})
}
