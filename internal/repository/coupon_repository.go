package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/apparel-storefront/internal/model"
)

// CouponRepo stores discount codes. Codes are kept upper-case and unique.
type CouponRepo struct {
	db *sql.DB
}

func NewCouponRepo(db *sql.DB) *CouponRepo { return &CouponRepo{db: db} }

const couponSelect = `SELECT id, code, description, type, value, min_purchase, max_discount, usage_limit, used_count,
	start_date, end_date, is_active, created_at, updated_at FROM coupons`

func scanCoupon(row interface{ Scan(...any) error }, c *model.Coupon) error {
	return row.Scan(&c.ID, &c.Code, &c.Description, &c.Type, &c.Value, &c.MinPurchase, &c.MaxDiscount, &c.UsageLimit,
		&c.UsedCount, &c.StartDate, &c.EndDate, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
}

func getCoupon(ctx context.Context, q execer, where string, args ...any) (*model.Coupon, error) {
	var c model.Coupon
	if err := scanCoupon(q.QueryRowContext(ctx, couponSelect+where, args...), &c); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// List returns coupons newest first. Status is left for the caller to
// derive against its own clock.
func (r *CouponRepo) List(ctx context.Context, search string) ([]model.Coupon, error) {
	q := couponSelect
	var args []any
	if s := strings.TrimSpace(search); s != "" {
		q += " WHERE code LIKE ? OR description LIKE ?"
		args = append(args, likeArg(s), likeArg(s))
	}
	q += " ORDER BY created_at DESC, id DESC"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Coupon{}
	for rows.Next() {
		var c model.Coupon
		if err := scanCoupon(rows, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CouponRepo) GetByID(ctx context.Context, id uint64) (*model.Coupon, error) {
	return getCoupon(ctx, r.db, " WHERE id = ?", id)
}

func (r *CouponRepo) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	return getCoupon(ctx, r.db, " WHERE code = ?", model.NormalizeCouponCode(code))
}

func (r *CouponRepo) Create(ctx context.Context, c *model.Coupon) error {
	c.Code = model.NormalizeCouponCode(c.Code)
	ts := now()
	res, err := r.db.ExecContext(ctx, `INSERT INTO coupons (code, description, type, value, min_purchase, max_discount, usage_limit,
		used_count, start_date, end_date, is_active, created_at, updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.Code, c.Description, c.Type, c.Value, c.MinPurchase, c.MaxDiscount, c.UsageLimit,
		0, c.StartDate.UTC(), c.EndDate.UTC(), c.IsActive, ts, ts)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID, c.UsedCount, c.CreatedAt, c.UpdatedAt = uint64(id), 0, ts, ts
	return nil
}

// CouponPatch lists the columns an update may touch; nil leaves the column
// alone. The Clear flags null out the optional limits.
type CouponPatch struct {
	Code             *string
	Description      *string
	Type             *model.CouponType
	Value            *decimal.Decimal
	MinPurchase      *decimal.Decimal
	ClearMinPurchase bool
	MaxDiscount      *decimal.Decimal
	ClearMaxDiscount bool
	UsageLimit       *int
	ClearUsageLimit  bool
	StartDate        *time.Time
	EndDate          *time.Time
	IsActive         *bool
}

func (r *CouponRepo) Update(ctx context.Context, id uint64, p CouponPatch) error {
	sets := []string{"updated_at=?"}
	args := []any{now()}
	add := func(col string, v any) {
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if p.Code != nil {
		add("code", model.NormalizeCouponCode(*p.Code))
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.Type != nil {
		add("type", *p.Type)
	}
	if p.Value != nil {
		add("value", *p.Value)
	}
	switch {
	case p.ClearMinPurchase:
		add("min_purchase", nil)
	case p.MinPurchase != nil:
		add("min_purchase", *p.MinPurchase)
	}
	switch {
	case p.ClearMaxDiscount:
		add("max_discount", nil)
	case p.MaxDiscount != nil:
		add("max_discount", *p.MaxDiscount)
	}
	switch {
	case p.ClearUsageLimit:
		add("usage_limit", nil)
	case p.UsageLimit != nil:
		add("usage_limit", *p.UsageLimit)
	}
	if p.StartDate != nil {
		add("start_date", p.StartDate.UTC())
	}
	if p.EndDate != nil {
		add("end_date", p.EndDate.UTC())
	}
	if p.IsActive != nil {
		add("is_active", *p.IsActive)
	}
	args = append(args, id)
	res, err := r.db.ExecContext(ctx, "UPDATE coupons SET "+strings.Join(sets, ",")+" WHERE id=?", args...)
	if isDuplicateKey(err) {
		return ErrDuplicate
	}
	return affectedOrNotFound(res, err)
}

func (r *CouponRepo) Delete(ctx context.Context, id uint64) error {
	return affectedOrNotFound(r.db.ExecContext(ctx, "DELETE FROM coupons WHERE id=?", id))
}
