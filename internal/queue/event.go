// Package queue defines the order event payload and the background
// consumers that append order events to an audit log.
package queue

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/apparel-storefront/internal/model"
)

// Event types.
const (
	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status_changed"
	PaymentRefunded    = "payment.refunded"
)

// OrderEvent is published after checkout, status changes and refunds. It
// carries enough for a consumer to log or notify without reading the
// database.
type OrderEvent struct {
	Type         string           `json:"type"`
	OrderID      uint64           `json:"order_id"`
	OrderNumber  string           `json:"order_number"`
	UserID       uint64           `json:"user_id"`
	Status       string           `json:"status"`
	Total        decimal.Decimal  `json:"total"`
	ItemCount    int              `json:"item_count"`
	RefundAmount *decimal.Decimal `json:"refund_amount,omitempty"` // total refunded so far
	At           time.Time        `json:"at"`
}

// NewOrderEvent builds an event of type typ from o.
func NewOrderEvent(typ string, o *model.Order, at time.Time) OrderEvent {
	count := 0
	for _, it := range o.Items {
		count += it.Quantity
	}
	if count == 0 {
		count = o.ItemCount
	}
	return OrderEvent{
		Type:        typ,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Status:      string(o.Status),
		Total:       o.Total,
		ItemCount:   count,
		At:          at.UTC(),
	}
}

// Key partitions events by order so one order's events stay ordered.
func (e OrderEvent) Key() string {
	return fmt.Sprintf("order.%d", e.OrderID)
}

// Line renders e as a single log line.
func (e OrderEvent) Line() string {
	line := fmt.Sprintf("[%s] %s | order_id=%d | order=%s | user_id=%d | status=%s | total=%s | items=%d",
		e.At.Format(time.RFC3339), e.Type, e.OrderID, e.OrderNumber, e.UserID, e.Status, e.Total.StringFixed(2), e.ItemCount)
	if e.RefundAmount != nil {
		line += " | refund=" + e.RefundAmount.StringFixed(2)
	}
	return line + "\n"
}
