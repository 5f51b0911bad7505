package repository_test

import (
	"context"
	"database/sql"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/apparel-storefront/internal/model"
	"github.com/iliyamo/apparel-storefront/internal/repository"
	"github.com/iliyamo/apparel-storefront/internal/testutil"
)

var testPricing = model.Pricing{
	FreeShippingThreshold: decimal.NewFromInt(100),
	ShippingFlatRate:      dec("9.99"),
	TaxRate:               decimal.Zero,
}

type checkoutFixture struct {
	db      *sql.DB
	userID  uint64
	address *model.Address
	product *model.Product
}

func newCheckoutFixture(t *testing.T) checkoutFixture {
	t.Helper()
	db := testutil.NewDB(t)
	uid := newUser(t, db, "ada@example.com")
	cat := newCategory(t, db, "Tees", nil)
	return checkoutFixture{
		db:      db,
		userID:  uid,
		address: newAddress(t, db, uid, "home", true),
		product: newProduct(t, db, cat.ID, "TEE01", "20", 5, "S", "M"),
	}
}

func (f checkoutFixture) stock(t *testing.T, variantID uint64) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow("SELECT stock FROM product_variants WHERE id = ?", variantID).Scan(&n))
	return n
}

func newCoupon(t *testing.T, db *sql.DB, code string, value string, limit *int) *model.Coupon {
	t.Helper()
	now := time.Now().UTC()
	c := &model.Coupon{
		Code:       code,
		Type:       model.CouponPercentage,
		Value:      dec(value),
		UsageLimit: limit,
		StartDate:  now.Add(-24 * time.Hour),
		EndDate:    now.Add(24 * time.Hour),
		IsActive:   true,
	}
	require.NoError(t, repository.NewCouponRepo(db).Create(context.Background(), c))
	return c
}

func TestCheckoutCreatesPendingOrder(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	repo := repository.NewOrderRepo(f.db)
	small, medium := f.product.Variants[0], f.product.Variants[1]
	newCoupon(t, f.db, "TEST10", "10", nil)

	o, err := repo.Checkout(ctx, repository.CheckoutInput{
		UserID:     f.userID,
		Lines:      []repository.CheckoutLine{{VariantID: small.ID, Quantity: 2}, {VariantID: medium.ID, Quantity: 1}, {VariantID: small.ID, Quantity: 1}},
		AddressID:  f.address.ID,
		CouponCode: " test10 ",
		Method:     model.MethodCard,
		Pricing:    testPricing,
		Now:        time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, o.Status)
	assert.True(t, o.Subtotal.Equal(dec("80")), o.Subtotal.String())
	assert.True(t, o.Discount.Equal(dec("8")), o.Discount.String())
	assert.True(t, o.ShippingCost.Equal(dec("9.99")))
	assert.True(t, o.Total.Equal(dec("81.99")), o.Total.String())
	require.NotNil(t, o.CouponCode)
	assert.Equal(t, "TEST10", *o.CouponCode)
	assert.Equal(t, 4, o.ItemCount)

	assert.Equal(t, 2, f.stock(t, small.ID))
	assert.Equal(t, 4, f.stock(t, medium.ID))

	got, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "TEE01-S-BLA", got.Items[0].SKU)
	assert.Equal(t, 3, got.Items[0].Quantity)
	require.NotNil(t, got.Address)
	assert.Equal(t, "London", got.Address.City)
	require.NotNil(t, got.Payment)
	assert.Equal(t, model.PaymentPending, got.Payment.Status)
	assert.True(t, got.Payment.Amount.Equal(o.Total))
	assert.Equal(t, "ada@example.com", got.CustomerEmail)

	c, err := repository.NewCouponRepo(f.db).GetByCode(ctx, "TEST10")
	require.NoError(t, err)
	assert.Equal(t, 1, c.UsedCount)

	mine, err := repo.ListByUser(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Len(t, mine[0].Items, 2)
}

func TestCheckoutInsufficientStockRollsBack(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	small, medium := f.product.Variants[0], f.product.Variants[1]
	newCoupon(t, f.db, "TEST10", "10", nil)

	_, err := repository.NewOrderRepo(f.db).Checkout(ctx, repository.CheckoutInput{
		UserID:     f.userID,
		Lines:      []repository.CheckoutLine{{VariantID: small.ID, Quantity: 1}, {VariantID: medium.ID, Quantity: 6}},
		AddressID:  f.address.ID,
		CouponCode: "TEST10",
		Method:     model.MethodCard,
		Pricing:    testPricing,
		Now:        time.Now(),
	})
	assert.ErrorIs(t, err, repository.ErrInsufficientStock)
	assert.Equal(t, 5, f.stock(t, small.ID))
	assert.Equal(t, 5, f.stock(t, medium.ID))

	var orders int
	require.NoError(t, f.db.QueryRow("SELECT COUNT(*) FROM orders").Scan(&orders))
	assert.Zero(t, orders)
}

func TestCheckoutRejectsOversizedQuantities(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	small := f.product.Variants[0]

	for name, lines := range map[string][]repository.CheckoutLine{
		"wrapping sum": {{VariantID: small.ID, Quantity: math.MaxInt}, {VariantID: small.ID, Quantity: math.MaxInt}},
		"single line":  {{VariantID: small.ID, Quantity: repository.MaxLineQuantity + 1}},
		"merged lines": {{VariantID: small.ID, Quantity: repository.MaxLineQuantity}, {VariantID: small.ID, Quantity: 1}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := repository.NewOrderRepo(f.db).Checkout(ctx, repository.CheckoutInput{
				UserID:    f.userID,
				Lines:     lines,
				AddressID: f.address.ID,
				Method:    model.MethodCard,
				Pricing:   testPricing,
				Now:       time.Now(),
			})
			assert.ErrorIs(t, err, repository.ErrQuantityTooLarge)
			assert.Equal(t, 5, f.stock(t, small.ID))
		})
	}

	var orders int
	require.NoError(t, f.db.QueryRow("SELECT COUNT(*) FROM orders").Scan(&orders))
	assert.Zero(t, orders)
}

func TestCheckoutCouponUsageLimit(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	repo := repository.NewOrderRepo(f.db)
	one := 1
	newCoupon(t, f.db, "ONCE", "50", &one)

	in := repository.CheckoutInput{
		UserID:     f.userID,
		Lines:      []repository.CheckoutLine{{VariantID: f.product.Variants[0].ID, Quantity: 1}},
		AddressID:  f.address.ID,
		CouponCode: "ONCE",
		Method:     model.MethodPayPal,
		Pricing:    testPricing,
		Now:        time.Now(),
	}
	_, err := repo.Checkout(ctx, in)
	require.NoError(t, err)

	_, err = repo.Checkout(ctx, in)
	assert.ErrorIs(t, err, model.ErrCouponNotActive)
	assert.Equal(t, 4, f.stock(t, f.product.Variants[0].ID))

	c, err := repository.NewCouponRepo(f.db).GetByCode(ctx, "once")
	require.NoError(t, err)
	assert.Equal(t, model.CouponUsedUp, c.ComputeStatus(time.Now()))
}

func TestCheckoutRejectsForeignAddress(t *testing.T) {
	f := newCheckoutFixture(t)
	other := newUser(t, f.db, "eve@example.com")
	_, err := repository.NewOrderRepo(f.db).Checkout(context.Background(), repository.CheckoutInput{
		UserID:    other,
		Lines:     []repository.CheckoutLine{{VariantID: f.product.Variants[0].ID, Quantity: 1}},
		AddressID: f.address.ID,
		Method:    model.MethodCard,
		Pricing:   testPricing,
		Now:       time.Now(),
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func placeOrder(t *testing.T, f checkoutFixture) *model.Order {
	t.Helper()
	o, err := repository.NewOrderRepo(f.db).Checkout(context.Background(), repository.CheckoutInput{
		UserID:    f.userID,
		Lines:     []repository.CheckoutLine{{VariantID: f.product.Variants[0].ID, Quantity: 5}},
		AddressID: f.address.ID,
		Method:    model.MethodCard,
		Pricing:   testPricing,
		Now:       time.Now(),
	})
	require.NoError(t, err)
	return o
}

func TestOrderStatusStampsAndDelete(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	repo := repository.NewOrderRepo(f.db)
	o := placeOrder(t, f)

	shipAt := o.CreatedAt.Add(time.Minute)
	got, err := repo.UpdateStatus(ctx, o.ID, model.OrderShipped, strPtr("DHL 123"), shipAt)
	require.NoError(t, err)
	require.NotNil(t, got.ShippedAt)
	assert.False(t, got.ShippedAt.Before(got.CreatedAt))

	reloaded, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderShipped, reloaded.Status)
	require.NotNil(t, reloaded.ShippedAt)
	assert.WithinDuration(t, shipAt, *reloaded.ShippedAt, time.Second)
	assert.Equal(t, "DHL 123", *reloaded.Notes)

	assert.ErrorIs(t, repo.Delete(ctx, o.ID), repository.ErrOrderNotDeletable)

	_, err = repo.UpdateStatus(ctx, o.ID, model.OrderCancelled, nil, shipAt.Add(time.Minute))
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, o.ID))
	_, err = repo.GetByID(ctx, o.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.UpdateStatus(ctx, o.ID, model.OrderShipped, nil, shipAt)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestOrderStats(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	repo := repository.NewOrderRepo(f.db)
	o := placeOrder(t, f)

	s, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Total)
	assert.Equal(t, 1, s.ByStatus[model.OrderPending])
	assert.True(t, s.Revenue.Equal(o.Total), s.Revenue.String())

	list, err := repo.List(ctx, repository.OrderFilter{Search: "ada@"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	list, err = repo.List(ctx, repository.OrderFilter{Status: model.OrderDelivered})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPaymentRefundCascadesToOrder(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	payments := repository.NewPaymentRepo(f.db)
	orders := repository.NewOrderRepo(f.db)
	o := placeOrder(t, f) // 5 x 20 = 100, free shipping

	completed := model.PaymentCompleted
	_, err := payments.Update(ctx, o.Payment.ID, repository.PaymentPatch{Status: &completed}, time.Now())
	require.NoError(t, err)

	part := dec("40")
	p, err := payments.Refund(ctx, o.Payment.ID, &part, strPtr("late delivery"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPartiallyRefunded, p.Status)
	got, err := orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderRefunded, got.Status)

	p, err = payments.Refund(ctx, o.Payment.ID, nil, nil, time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.PaymentRefunded, p.Status)
	assert.True(t, p.RefundAmount.Equal(o.Total))

	_, err = payments.Refund(ctx, o.Payment.ID, nil, nil, time.Now())
	assert.ErrorIs(t, err, model.ErrAlreadyRefunded)

	stats, err := payments.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Refunded)
	assert.True(t, stats.Refunds.Equal(o.Total))

	_, err = payments.Refund(ctx, 424242, nil, nil, time.Now())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPaymentRefundTooMuch(t *testing.T) {
	f := newCheckoutFixture(t)
	o := placeOrder(t, f)
	tooMuch := o.Total.Add(decimal.NewFromInt(1))
	_, err := repository.NewPaymentRepo(f.db).Refund(context.Background(), o.Payment.ID, &tooMuch, nil, time.Now())
	assert.ErrorIs(t, err, model.ErrInvalidRefundAmount)

	got, err := repository.NewOrderRepo(f.db).GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, got.Status)
}
