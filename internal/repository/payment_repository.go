package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/apparel-storefront/internal/model"
)

// PaymentRepo stores the one payment attached to each order.
type PaymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentSelect = `SELECT p.id, p.order_id, p.amount, p.method, p.status, p.transaction_id,
	p.refund_amount, p.refund_reason, p.refunded_at, p.created_at, p.updated_at,
	COALESCE(o.order_number, ''), COALESCE(u.email, '')
	FROM payments p LEFT JOIN orders o ON o.id = p.order_id LEFT JOIN users u ON u.id = o.user_id`

func scanPayment(row interface{ Scan(...any) error }, p *model.Payment) error {
	return row.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.Status, &p.TransactionID,
		&p.RefundAmount, &p.RefundReason, &p.RefundedAt, &p.CreatedAt, &p.UpdatedAt,
		&p.OrderNumber, &p.CustomerEmail)
}

type PaymentFilter struct {
	Status model.PaymentStatus
	Method model.PaymentMethod
	Search string // order number or customer email
}

func (r *PaymentRepo) List(ctx context.Context, f PaymentFilter) ([]model.Payment, error) {
	q := paymentSelect + " WHERE 1=1"
	var args []any
	if f.Status != "" {
		q += " AND p.status = ?"
		args = append(args, f.Status)
	}
	if f.Method != "" {
		q += " AND p.method = ?"
		args = append(args, f.Method)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q += " AND (o.order_number LIKE ? OR u.email LIKE ?)"
		args = append(args, likeArg(s), likeArg(s))
	}
	q += " ORDER BY p.created_at DESC, p.id DESC"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Payment{}
	for rows.Next() {
		var p model.Payment
		if err := scanPayment(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type PaymentStats struct {
	Total     int             `json:"total"`
	Completed int             `json:"completed"`
	Pending   int             `json:"pending"`
	Refunded  int             `json:"refunded"`
	Collected decimal.Decimal `json:"collected"`
	Refunds   decimal.Decimal `json:"refunds"`
}

// Stats summarises payments. Refunded counts full and partial refunds.
func (r *PaymentRepo) Stats(ctx context.Context) (PaymentStats, error) {
	var (
		s                  PaymentStats
		collected, refunds decimal.NullDecimal
	)
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*),
		COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),0),
		COALESCE(SUM(CASE WHEN status IN (?, ?) THEN 1 ELSE 0 END),0),
		COALESCE(SUM(CASE WHEN status IN (?, ?) THEN 1 ELSE 0 END),0),
		SUM(CASE WHEN status IN (?, ?, ?) THEN amount ELSE 0 END),
		SUM(refund_amount)
		FROM payments`,
		model.PaymentCompleted,
		model.PaymentPending, model.PaymentProcessing,
		model.PaymentRefunded, model.PaymentPartiallyRefunded,
		model.PaymentCompleted, model.PaymentRefunded, model.PaymentPartiallyRefunded).
		Scan(&s.Total, &s.Completed, &s.Pending, &s.Refunded, &collected, &refunds)
	s.Collected = model.Money(collected.Decimal)
	s.Refunds = model.Money(refunds.Decimal)
	return s, err
}

func (r *PaymentRepo) GetByID(ctx context.Context, id uint64) (*model.Payment, error) {
	var p model.Payment
	if err := scanPayment(r.db.QueryRowContext(ctx, paymentSelect+" WHERE p.id = ?", id), &p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// PaymentPatch updates bookkeeping fields set by the admin when a payment
// is settled outside the store.
type PaymentPatch struct {
	Status        *model.PaymentStatus
	TransactionID *string
}

func (r *PaymentRepo) Update(ctx context.Context, id uint64, p PaymentPatch, at time.Time) (*model.Payment, error) {
	sets := []string{"updated_at=?"}
	args := []any{at}
	if p.Status != nil {
		sets = append(sets, "status=?")
		args = append(args, *p.Status)
	}
	if p.TransactionID != nil {
		sets = append(sets, "transaction_id=?")
		args = append(args, *p.TransactionID)
	}
	args = append(args, id)
	if err := affectedOrNotFound(r.db.ExecContext(ctx, "UPDATE payments SET "+strings.Join(sets, ",")+" WHERE id=?", args...)); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Refund records a full or partial refund and moves the owning order to
// REFUNDED, both in one transaction. A nil amount refunds whatever is
// left. Refunds accumulate; a payment that is already fully refunded
// yields model.ErrAlreadyRefunded.
func (r *PaymentRepo) Refund(ctx context.Context, id uint64, amount *decimal.Decimal, reason *string, at time.Time) (*model.Payment, error) {
	var out *model.Payment
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var p model.Payment
		if err := scanPayment(tx.QueryRowContext(ctx, paymentSelect+" WHERE p.id = ?", id), &p); err != nil {
			return notFound(err)
		}
		if err := p.ApplyRefund(amount, reason, at); err != nil {
			return err
		}
		p.UpdatedAt = at
		if _, err := tx.ExecContext(ctx,
			"UPDATE payments SET status=?, refund_amount=?, refund_reason=?, refunded_at=?, updated_at=? WHERE id=?",
			p.Status, p.RefundAmount, p.RefundReason, p.RefundedAt, p.UpdatedAt, p.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "UPDATE orders SET status=?, updated_at=? WHERE id=?",
			model.OrderRefunded, at, p.OrderID); err != nil {
			return err
		}
		out = &p
		return nil
	})
	return out, err
}
