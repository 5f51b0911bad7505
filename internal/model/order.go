package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order. The happy path is
// PENDING → CONFIRMED → PROCESSING → SHIPPED → DELIVERED; CANCELLED and
// REFUNDED are side branches. Admins may move an order to any status.
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderConfirmed  OrderStatus = "CONFIRMED"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
	OrderRefunded   OrderStatus = "REFUNDED"
)

// OrderStatuses lists every status in pipeline order.
var OrderStatuses = []OrderStatus{
	OrderPending, OrderConfirmed, OrderProcessing, OrderShipped,
	OrderDelivered, OrderCancelled, OrderRefunded,
}

// ParseOrderStatus normalizes s and reports whether it names a known status.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range OrderStatuses {
		if st == known {
			return st, true
		}
	}
	return "", false
}

// Order is a placed order. Items and the shipping address are snapshots
// taken at purchase time and do not follow later catalog or address edits.
type Order struct {
	ID           uint64          `gorm:"primaryKey" json:"id"`
	OrderNumber  string          `gorm:"size:32;uniqueIndex;not null" json:"orderNumber"`
	UserID       uint64          `gorm:"not null;index" json:"userId"`
	Status       OrderStatus     `gorm:"size:16;not null;index" json:"status"`
	Subtotal     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	Discount     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"discount"`
	ShippingCost decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"shippingCost"`
	Tax          decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"tax"`
	Total        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	CouponCode   *string         `gorm:"size:64" json:"couponCode"`
	Notes        *string         `gorm:"type:text" json:"notes"`
	PaidAt       *time.Time      `json:"paidAt"`
	ShippedAt    *time.Time      `json:"shippedAt"`
	DeliveredAt  *time.Time      `json:"deliveredAt"`
	CancelledAt  *time.Time      `json:"cancelledAt"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`

	Items   []OrderItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Address *OrderAddress `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"address,omitempty"`
	Payment *Payment      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"payment,omitempty"`

	CustomerEmail string `gorm:"-" json:"customerEmail,omitempty"`
	ItemCount     int    `gorm:"-" json:"itemCount"`
}

func (Order) TableName() string { return "orders" }

// ApplyOrderStatus moves o to status and stamps the matching timestamp:
// CONFIRMED sets PaidAt, SHIPPED sets ShippedAt, DELIVERED sets DeliveredAt
// and CANCELLED sets CancelledAt. Re-entering a status overwrites its stamp.
func ApplyOrderStatus(o *Order, status OrderStatus, now time.Time) {
	o.Status = status
	stamp := now
	switch status {
	case OrderConfirmed:
		o.PaidAt = &stamp
	case OrderShipped:
		o.ShippedAt = &stamp
	case OrderDelivered:
		o.DeliveredAt = &stamp
	case OrderCancelled:
		o.CancelledAt = &stamp
	}
}

// Deletable reports whether an admin may delete the order.
func (o *Order) Deletable() bool { return o.Status == OrderCancelled }

// OrderItem is a line of an order with the product data copied at purchase.
type OrderItem struct {
	ID           uint64          `gorm:"primaryKey" json:"id"`
	OrderID      uint64          `gorm:"not null;index" json:"orderId"`
	ProductID    *uint64         `gorm:"index" json:"productId"`
	VariantID    *uint64         `json:"variantId"`
	ProductName  string          `gorm:"size:200;not null" json:"productName"`
	ProductImage *string         `gorm:"size:500" json:"productImage"`
	SKU          string          `gorm:"column:sku;size:100" json:"sku"`
	Size         string          `gorm:"size:16" json:"size"`
	Color        string          `gorm:"size:50" json:"color"`
	Price        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Quantity     int             `gorm:"not null" json:"quantity"`
}

func (OrderItem) TableName() string { return "order_items" }

// LineTotal is price × quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderAddress is the shipping address snapshot of an order.
type OrderAddress struct {
	ID         uint64  `gorm:"primaryKey" json:"-"`
	OrderID    uint64  `gorm:"not null;uniqueIndex" json:"-"`
	FullName   string  `gorm:"size:120;not null" json:"fullName"`
	Phone      *string `gorm:"size:32" json:"phone"`
	Line1      string  `gorm:"size:200;not null" json:"line1"`
	Line2      *string `gorm:"size:200" json:"line2"`
	City       string  `gorm:"size:100;not null" json:"city"`
	State      *string `gorm:"size:100" json:"state"`
	PostalCode string  `gorm:"size:20;not null" json:"postalCode"`
	Country    string  `gorm:"size:2;not null" json:"country"`
}

func (OrderAddress) TableName() string { return "order_addresses" }

// SnapshotAddress copies a saved address into an order address.
func SnapshotAddress(a *Address) *OrderAddress {
	return &OrderAddress{
		FullName:   a.FullName,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

// Pricing holds the store-wide shipping and tax settings applied at
// checkout. A zero FreeShippingThreshold disables free shipping.
type Pricing struct {
	FreeShippingThreshold decimal.Decimal
	ShippingFlatRate      decimal.Decimal
	TaxRate               decimal.Decimal // fraction, 0.08 for 8%
}

// Totals computes shipping, tax and the grand total for an order. Tax is
// charged on the discounted subtotal; shipping is free once the discounted
// subtotal reaches the threshold.
func (p Pricing) Totals(subtotal, discount decimal.Decimal) (shipping, tax, total decimal.Decimal) {
	net := subtotal.Sub(discount)
	if net.IsNegative() {
		net = decimal.Zero
	}
	shipping = p.ShippingFlatRate
	if p.FreeShippingThreshold.IsPositive() && net.GreaterThanOrEqual(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	if subtotal.IsZero() {
		shipping = decimal.Zero
	}
	tax = Money(net.Mul(p.TaxRate))
	total = Money(net.Add(shipping).Add(tax))
	return Money(shipping), tax, total
}

// NewOrderNumber returns a human-friendly unique order reference such as
// ORD-20260314-9F2C4A1B.
func NewOrderNumber(now time.Time) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "ORD-" + now.UTC().Format("20060102") + "-" + id[:8]
}
