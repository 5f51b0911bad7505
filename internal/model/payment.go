package model

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	MethodCard           PaymentMethod = "CARD"
	MethodPayPal         PaymentMethod = "PAYPAL"
	MethodBankTransfer   PaymentMethod = "BANK_TRANSFER"
	MethodCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
)

// ValidPaymentMethod reports whether m is a supported method.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case MethodCard, MethodPayPal, MethodBankTransfer, MethodCashOnDelivery:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "PENDING"
	PaymentProcessing        PaymentStatus = "PROCESSING"
	PaymentCompleted         PaymentStatus = "COMPLETED"
	PaymentFailed            PaymentStatus = "FAILED"
	PaymentRefunded          PaymentStatus = "REFUNDED"
	PaymentPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
)

// ParsePaymentStatus normalizes s and reports whether it names a known status.
func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	st := PaymentStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case PaymentPending, PaymentProcessing, PaymentCompleted, PaymentFailed, PaymentRefunded, PaymentPartiallyRefunded:
		return st, true
	}
	return "", false
}

// Payment is the single payment record of an order.
type Payment struct {
	ID            uint64           `gorm:"primaryKey" json:"id"`
	OrderID       uint64           `gorm:"not null;uniqueIndex" json:"orderId"`
	Amount        decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"amount"`
	Method        PaymentMethod    `gorm:"size:24;not null" json:"method"`
	Status        PaymentStatus    `gorm:"size:24;not null;index" json:"status"`
	TransactionID *string          `gorm:"size:100" json:"transactionId"`
	RefundAmount  *decimal.Decimal `gorm:"type:decimal(10,2)" json:"refundAmount"`
	RefundReason  *string          `gorm:"size:500" json:"refundReason"`
	RefundedAt    *time.Time       `json:"refundedAt"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`

	OrderNumber   string `gorm:"-" json:"orderNumber,omitempty"`
	CustomerEmail string `gorm:"-" json:"customerEmail,omitempty"`
}

func (Payment) TableName() string { return "payments" }

var (
	// ErrAlreadyRefunded is returned when a fully refunded payment is refunded again.
	ErrAlreadyRefunded = errors.New("payment already fully refunded")
	// ErrInvalidRefundAmount is returned for non-positive amounts or amounts
	// above what is still refundable.
	ErrInvalidRefundAmount = errors.New("invalid refund amount")
)

// Refundable is the part of the payment not yet refunded.
func (p *Payment) Refundable() decimal.Decimal {
	if p.RefundAmount == nil {
		return p.Amount
	}
	return p.Amount.Sub(*p.RefundAmount)
}

// ApplyRefund records a refund of amount, or of everything still refundable
// when amount is nil. Refunds accumulate in RefundAmount; the payment becomes
// PARTIALLY_REFUNDED while the accumulated amount is below Amount and
// REFUNDED once it reaches it.
func (p *Payment) ApplyRefund(amount *decimal.Decimal, reason *string, now time.Time) error {
	if p.Status == PaymentRefunded {
		return ErrAlreadyRefunded
	}
	remaining := p.Refundable()
	amt := remaining
	if amount != nil {
		amt = *amount
	}
	if !amt.IsPositive() || amt.GreaterThan(remaining) {
		return ErrInvalidRefundAmount
	}
	total := amt
	if p.RefundAmount != nil {
		total = p.RefundAmount.Add(amt)
	}
	p.RefundAmount = &total
	if total.LessThan(p.Amount) {
		p.Status = PaymentPartiallyRefunded
	} else {
		p.Status = PaymentRefunded
	}
	if reason != nil {
		p.RefundReason = reason
	}
	stamp := now
	p.RefundedAt = &stamp
	return nil
}
