package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/apparel-storefront/internal/model"
)

// ErrOrderNotDeletable is returned when deleting an order that has not
// been cancelled.
var ErrOrderNotDeletable = errors.New("only cancelled orders can be deleted")

// ErrEmptyCart is returned by Checkout when no line has a positive quantity.
var ErrEmptyCart = errors.New("cart is empty")

// MaxLineQuantity caps the units of one variant in a single order, after
// duplicate lines are merged.
const MaxLineQuantity = 999

// ErrQuantityTooLarge is returned by Checkout when a line asks for more
// than MaxLineQuantity units.
var ErrQuantityTooLarge = fmt.Errorf("quantity cannot exceed %d per item", MaxLineQuantity)

// OrderRepo stores orders, their line snapshots and shipping address.
type OrderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

const orderSelect = `SELECT o.id, o.order_number, o.user_id, o.status, o.subtotal, o.discount, o.shipping_cost, o.tax, o.total,
	o.coupon_code, o.notes, o.paid_at, o.shipped_at, o.delivered_at, o.cancelled_at, o.created_at, o.updated_at,
	COALESCE(u.email, ''),
	(SELECT COALESCE(SUM(i.quantity), 0) FROM order_items i WHERE i.order_id = o.id)
	FROM orders o LEFT JOIN users u ON u.id = o.user_id`

func scanOrder(row interface{ Scan(...any) error }, o *model.Order) error {
	return row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.Subtotal, &o.Discount, &o.ShippingCost, &o.Tax, &o.Total,
		&o.CouponCode, &o.Notes, &o.PaidAt, &o.ShippedAt, &o.DeliveredAt, &o.CancelledAt, &o.CreatedAt, &o.UpdatedAt,
		&o.CustomerEmail, &o.ItemCount)
}

type OrderFilter struct {
	Status model.OrderStatus
	Search string // order number or customer email
	UserID uint64
}

// List returns orders newest first. Line items are not loaded.
func (r *OrderRepo) List(ctx context.Context, f OrderFilter) ([]model.Order, error) {
	q := orderSelect + " WHERE 1=1"
	var args []any
	if f.Status != "" {
		q += " AND o.status = ?"
		args = append(args, f.Status)
	}
	if f.UserID != 0 {
		q += " AND o.user_id = ?"
		args = append(args, f.UserID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q += " AND (o.order_number LIKE ? OR u.email LIKE ?)"
		args = append(args, likeArg(s), likeArg(s))
	}
	q += " ORDER BY o.created_at DESC, o.id DESC"
	return r.query(ctx, r.db, q, args...)
}

func (r *OrderRepo) query(ctx context.Context, q execer, query string, args ...any) ([]model.Order, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Order{}
	for rows.Next() {
		var o model.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListByUser returns the customer's orders with their lines.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Order, error) {
	orders, err := r.List(ctx, OrderFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	for i := range orders {
		items, err := loadOrderItems(ctx, r.db, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

type OrderStats struct {
	Total    int                       `json:"total"`
	ByStatus map[model.OrderStatus]int `json:"byStatus"`
	Revenue  decimal.Decimal           `json:"revenue"`
}

// Stats counts orders per status. Revenue sums the totals of orders that
// were neither cancelled nor refunded.
func (r *OrderRepo) Stats(ctx context.Context) (OrderStats, error) {
	s := OrderStats{ByStatus: map[model.OrderStatus]int{}}
	for _, st := range model.OrderStatuses {
		s.ByStatus[st] = 0
	}
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM orders GROUP BY status")
	if err != nil {
		return s, err
	}
	for rows.Next() {
		var (
			st model.OrderStatus
			n  int
		)
		if err := rows.Scan(&st, &n); err != nil {
			rows.Close()
			return s, err
		}
		s.ByStatus[st] = n
		s.Total += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return s, err
	}
	var rev decimal.NullDecimal
	err = r.db.QueryRowContext(ctx, "SELECT SUM(total) FROM orders WHERE status NOT IN (?, ?)",
		model.OrderCancelled, model.OrderRefunded).Scan(&rev)
	s.Revenue = model.Money(rev.Decimal)
	return s, err
}

// GetByID loads an order with items, shipping address and payment.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	return getOrder(ctx, r.db, id)
}

func getOrder(ctx context.Context, q execer, id uint64) (*model.Order, error) {
	var o model.Order
	if err := scanOrder(q.QueryRowContext(ctx, orderSelect+" WHERE o.id = ?", id), &o); err != nil {
		return nil, notFound(err)
	}
	items, err := loadOrderItems(ctx, q, id)
	if err != nil {
		return nil, err
	}
	o.Items = items

	var a model.OrderAddress
	err = q.QueryRowContext(ctx, `SELECT id, order_id, full_name, phone, line1, line2, city, state, postal_code, country
		FROM order_addresses WHERE order_id = ?`, id).
		Scan(&a.ID, &a.OrderID, &a.FullName, &a.Phone, &a.Line1, &a.Line2, &a.City, &a.State, &a.PostalCode, &a.Country)
	switch {
	case err == nil:
		o.Address = &a
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}

	var p model.Payment
	err = scanPayment(q.QueryRowContext(ctx, paymentSelect+" WHERE p.order_id = ?", id), &p)
	switch {
	case err == nil:
		o.Payment = &p
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}
	return &o, nil
}

func loadOrderItems(ctx context.Context, q execer, orderID uint64) ([]model.OrderItem, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, order_id, product_id, variant_id, product_name, product_image, sku, size, color, price, quantity
		FROM order_items WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.OrderItem{}
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.VariantID, &it.ProductName, &it.ProductImage,
			&it.SKU, &it.Size, &it.Color, &it.Price, &it.Quantity); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// UpdateStatus sets the order status, stamping the matching timestamp, and
// optionally replaces the admin notes. Any status may follow any other.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id uint64, status model.OrderStatus, notes *string, at time.Time) (*model.Order, error) {
	var out *model.Order
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		o, err := getOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		model.ApplyOrderStatus(o, status, at)
		if notes != nil {
			o.Notes = notes
		}
		o.UpdatedAt = at
		if _, err := tx.ExecContext(ctx, `UPDATE orders SET status=?, notes=?, paid_at=?, shipped_at=?, delivered_at=?, cancelled_at=?, updated_at=?
			WHERE id=?`, o.Status, o.Notes, o.PaidAt, o.ShippedAt, o.DeliveredAt, o.CancelledAt, o.UpdatedAt, id); err != nil {
			return err
		}
		out = o
		return nil
	})
	return out, err
}

// Delete removes a cancelled order with its lines, address and payment.
func (r *OrderRepo) Delete(ctx context.Context, id uint64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var status model.OrderStatus
		if err := tx.QueryRowContext(ctx, "SELECT status FROM orders WHERE id = ?", id).Scan(&status); err != nil {
			return notFound(err)
		}
		if !(&model.Order{Status: status}).Deletable() {
			return ErrOrderNotDeletable
		}
		for _, q := range []string{
			"DELETE FROM order_items WHERE order_id = ?",
			"DELETE FROM order_addresses WHERE order_id = ?",
			"DELETE FROM payments WHERE order_id = ?",
			"DELETE FROM orders WHERE id = ?",
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// CheckoutLine is one cart entry.
type CheckoutLine struct {
	VariantID uint64
	Quantity  int
}

type CheckoutInput struct {
	UserID     uint64
	Lines      []CheckoutLine
	AddressID  uint64
	CouponCode string
	Method     model.PaymentMethod
	Notes      *string
	Pricing    model.Pricing
	Now        time.Time
}

// Checkout turns a cart into a PENDING order with a PENDING payment. Stock
// is decremented and the coupon's used count incremented in the same
// transaction; any failure leaves the catalog untouched.
func (r *OrderRepo) Checkout(ctx context.Context, in CheckoutInput) (*model.Order, error) {
	lines, err := mergeLines(in.Lines)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	at := in.Now.UTC()
	var out *model.Order
	err = withTx(ctx, r.db, func(tx *sql.Tx) error {
		addr, err := getAddress(ctx, tx, in.AddressID, in.UserID)
		if err != nil {
			return fmt.Errorf("address %d: %w", in.AddressID, err)
		}

		o := &model.Order{
			OrderNumber: model.NewOrderNumber(at),
			UserID:      in.UserID,
			Status:      model.OrderPending,
			Notes:       in.Notes,
			CreatedAt:   at,
			UpdatedAt:   at,
		}
		subtotal := decimal.Zero
		for _, l := range lines {
			it, err := reserveLine(ctx, tx, l)
			if err != nil {
				return err
			}
			subtotal = subtotal.Add(it.LineTotal())
			o.Items = append(o.Items, it)
		}
		o.Subtotal = model.Money(subtotal)
		o.Discount = decimal.Zero

		if code := model.NormalizeCouponCode(in.CouponCode); code != "" {
			d, err := redeemCoupon(ctx, tx, code, o.Subtotal, at)
			if err != nil {
				return err
			}
			o.Discount = d
			o.CouponCode = &code
		}
		o.ShippingCost, o.Tax, o.Total = in.Pricing.Totals(o.Subtotal, o.Discount)

		res, err := tx.ExecContext(ctx, `INSERT INTO orders (order_number, user_id, status, subtotal, discount, shipping_cost, tax, total,
			coupon_code, notes, created_at, updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
			o.OrderNumber, o.UserID, o.Status, o.Subtotal, o.Discount, o.ShippingCost, o.Tax, o.Total,
			o.CouponCode, o.Notes, at, at)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		o.ID = uint64(id)

		for i := range o.Items {
			it := &o.Items[i]
			it.OrderID = o.ID
			res, err := tx.ExecContext(ctx, `INSERT INTO order_items (order_id, product_id, variant_id, product_name, product_image, sku, size, color, price, quantity)
				VALUES (?,?,?,?,?,?,?,?,?,?)`,
				it.OrderID, it.ProductID, it.VariantID, it.ProductName, it.ProductImage, it.SKU, it.Size, it.Color, it.Price, it.Quantity)
			if err != nil {
				return err
			}
			iid, err := res.LastInsertId()
			if err != nil {
				return err
			}
			it.ID = uint64(iid)
			o.ItemCount += it.Quantity
		}

		snap := model.SnapshotAddress(addr)
		snap.OrderID = o.ID
		if _, err := tx.ExecContext(ctx, `INSERT INTO order_addresses (order_id, full_name, phone, line1, line2, city, state, postal_code, country)
			VALUES (?,?,?,?,?,?,?,?,?)`,
			snap.OrderID, snap.FullName, snap.Phone, snap.Line1, snap.Line2, snap.City, snap.State, snap.PostalCode, snap.Country); err != nil {
			return err
		}
		o.Address = snap

		pay := &model.Payment{OrderID: o.ID, Amount: o.Total, Method: in.Method, Status: model.PaymentPending, CreatedAt: at, UpdatedAt: at}
		res, err = tx.ExecContext(ctx, `INSERT INTO payments (order_id, amount, method, status, created_at, updated_at) VALUES (?,?,?,?,?,?)`,
			pay.OrderID, pay.Amount, pay.Method, pay.Status, at, at)
		if err != nil {
			return err
		}
		pid, err := res.LastInsertId()
		if err != nil {
			return err
		}
		pay.ID = uint64(pid)
		pay.OrderNumber = o.OrderNumber
		o.Payment = pay
		out = o
		return nil
	})
	return out, err
}

func mergeLines(in []CheckoutLine) ([]CheckoutLine, error) {
	idx := map[uint64]int{}
	var out []CheckoutLine
	for _, l := range in {
		if l.Quantity <= 0 || l.VariantID == 0 {
			continue
		}
		if l.Quantity > MaxLineQuantity {
			return nil, ErrQuantityTooLarge
		}
		if i, ok := idx[l.VariantID]; ok {
			// both operands are capped, so the sum cannot wrap
			if out[i].Quantity > MaxLineQuantity-l.Quantity {
				return nil, ErrQuantityTooLarge
			}
			out[i].Quantity += l.Quantity
			continue
		}
		idx[l.VariantID] = len(out)
		out = append(out, l)
	}
	return out, nil
}

// reserveLine prices one cart line from the live catalog and takes the
// quantity out of stock.
func reserveLine(ctx context.Context, tx *sql.Tx, l CheckoutLine) (model.OrderItem, error) {
	var (
		p   model.Product
		v   model.ProductVariant
		img sql.NullString
	)
	err := tx.QueryRowContext(ctx, `SELECT v.id, v.size, v.color, v.sku, v.stock,
		p.id, p.name, p.price, p.sale_price, p.is_on_sale,
		(SELECT i.url FROM product_images i WHERE i.product_id = p.id ORDER BY i.is_primary DESC, i.sort_order, i.id LIMIT 1)
		FROM product_variants v JOIN products p ON p.id = v.product_id
		WHERE v.id = ? AND p.is_active = ?`, l.VariantID, true).
		Scan(&v.ID, &v.Size, &v.Color, &v.SKU, &v.Stock, &p.ID, &p.Name, &p.Price, &p.SalePrice, &p.IsOnSale, &img)
	if err != nil {
		return model.OrderItem{}, fmt.Errorf("variant %d: %w", l.VariantID, notFound(err))
	}
	res, err := tx.ExecContext(ctx, "UPDATE product_variants SET stock = stock - ? WHERE id = ? AND stock >= ?",
		l.Quantity, v.ID, l.Quantity)
	if err != nil {
		return model.OrderItem{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.OrderItem{}, err
	} else if n == 0 {
		return model.OrderItem{}, fmt.Errorf("%s (%s/%s): %d left: %w", p.Name, v.Size, v.Color, v.Stock, ErrInsufficientStock)
	}
	it := model.OrderItem{
		ProductID:   &p.ID,
		VariantID:   &v.ID,
		ProductName: p.Name,
		SKU:         v.SKU,
		Size:        v.Size,
		Color:       v.Color,
		Price:       model.Money(p.EffectivePrice()),
		Quantity:    l.Quantity,
	}
	if img.Valid {
		it.ProductImage = &img.String
	}
	return it, nil
}

// redeemCoupon validates the code against subtotal and consumes one use.
// The usage limit is re-checked by the UPDATE so two concurrent checkouts
// cannot both take the last use.
func redeemCoupon(ctx context.Context, tx *sql.Tx, code string, subtotal decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	c, err := getCoupon(ctx, tx, " WHERE code = ?", code)
	if err != nil {
		return decimal.Zero, fmt.Errorf("coupon %s: %w", code, err)
	}
	d, err := c.Redeem(subtotal, at)
	if err != nil {
		return decimal.Zero, err
	}
	res, err := tx.ExecContext(ctx,
		"UPDATE coupons SET used_count = used_count + 1, updated_at = ? WHERE id = ? AND (usage_limit IS NULL OR used_count < usage_limit)",
		at, c.ID)
	if err != nil {
		return decimal.Zero, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return decimal.Zero, err
	} else if n == 0 {
		return decimal.Zero, model.ErrCouponNotActive
	}
	return d, nil
}
