package model

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CouponType string

const (
	CouponPercentage CouponType = "PERCENTAGE"
	CouponFixed      CouponType = "FIXED"
)

// CouponStatus is derived at read time and never stored.
type CouponStatus string

const (
	CouponActive   CouponStatus = "active"
	CouponInactive CouponStatus = "inactive"
	CouponExpired  CouponStatus = "expired"
	CouponUpcoming CouponStatus = "upcoming"
	CouponUsedUp   CouponStatus = "used_up"
)

// Coupon is a time-windowed, usage-limited discount code.
type Coupon struct {
	ID          uint64           `gorm:"primaryKey" json:"id"`
	Code        string           `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Description *string          `gorm:"size:255" json:"description"`
	Type        CouponType       `gorm:"size:16;not null" json:"type"`
	Value       decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"value"`
	MinPurchase *decimal.Decimal `gorm:"type:decimal(10,2)" json:"minPurchase"`
	MaxDiscount *decimal.Decimal `gorm:"type:decimal(10,2)" json:"maxDiscount"`
	UsageLimit  *int             `json:"usageLimit"`
	UsedCount   int              `gorm:"not null;default:0" json:"usedCount"`
	StartDate   time.Time        `gorm:"not null" json:"startDate"`
	EndDate     time.Time        `gorm:"not null" json:"endDate"`
	IsActive    bool             `gorm:"not null" json:"isActive"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`

	Status CouponStatus `gorm:"-" json:"status"`
}

func (Coupon) TableName() string { return "coupons" }

// NormalizeCouponCode trims and upper-cases a code.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ComputeCouponStatus derives a coupon's display status. A used-up coupon
// reports used_up even when expired; an expired one reports expired even
// when not yet started.
func ComputeCouponStatus(now, startDate, endDate time.Time, isActive bool, usedCount int, usageLimit *int) CouponStatus {
	isExpired := endDate.Before(now)
	isUpcoming := startDate.After(now)
	isUsedUp := usageLimit != nil && usedCount >= *usageLimit
	switch {
	case isUsedUp:
		return CouponUsedUp
	case isExpired:
		return CouponExpired
	case isUpcoming:
		return CouponUpcoming
	case isActive:
		return CouponActive
	default:
		return CouponInactive
	}
}

// ComputeStatus evaluates the coupon's status at now.
func (c *Coupon) ComputeStatus(now time.Time) CouponStatus {
	return ComputeCouponStatus(now, c.StartDate, c.EndDate, c.IsActive, c.UsedCount, c.UsageLimit)
}

var (
	ErrCouponMinPurchase = errors.New("order subtotal is below the coupon minimum")
	ErrCouponNotActive   = errors.New("coupon is not active")
)

// Discount computes the discount granted on subtotal. Percentage discounts
// are capped by MaxDiscount; no discount exceeds the subtotal itself.
func (c *Coupon) Discount(subtotal decimal.Decimal) (decimal.Decimal, error) {
	if c.MinPurchase != nil && subtotal.LessThan(*c.MinPurchase) {
		return decimal.Zero, ErrCouponMinPurchase
	}
	var d decimal.Decimal
	switch c.Type {
	case CouponPercentage:
		d = subtotal.Mul(c.Value).Div(decimal.NewFromInt(100))
		if c.MaxDiscount != nil && d.GreaterThan(*c.MaxDiscount) {
			d = *c.MaxDiscount
		}
	default:
		d = c.Value
	}
	if d.GreaterThan(subtotal) {
		d = subtotal
	}
	if d.IsNegative() {
		d = decimal.Zero
	}
	return Money(d), nil
}

// Redeem checks that the coupon can be used at now for subtotal and returns
// the discount.
func (c *Coupon) Redeem(subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if c.ComputeStatus(now) != CouponActive {
		return decimal.Zero, ErrCouponNotActive
	}
	return c.Discount(subtotal)
}
