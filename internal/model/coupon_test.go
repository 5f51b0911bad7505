package model_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/apparel-storefront/internal/model"
)

func intPtr(i int) *int { return &i }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestComputeCouponStatusPrecedence(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-48 * time.Hour)
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)
	future := now.Add(48 * time.Hour)

	cases := []struct {
		name       string
		start, end time.Time
		active     bool
		used       int
		limit      *int
		want       model.CouponStatus
	}{
		{"used up beats everything", yesterday, tomorrow, true, 1, intPtr(1), model.CouponUsedUp},
		{"used up beats expired", past, yesterday, true, 5, intPtr(5), model.CouponUsedUp},
		{"expired beats upcoming", tomorrow, yesterday, true, 0, nil, model.CouponExpired},
		{"upcoming beats inactive", tomorrow, future, false, 0, nil, model.CouponUpcoming},
		{"active in window", yesterday, tomorrow, true, 0, intPtr(10), model.CouponActive},
		{"inactive in window", yesterday, tomorrow, false, 0, nil, model.CouponInactive},
		{"no limit never used up", yesterday, tomorrow, true, 1000, nil, model.CouponActive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := model.ComputeCouponStatus(now, tc.start, tc.end, tc.active, tc.used, tc.limit)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCouponStatusFollowsClock(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	c := model.Coupon{
		Code:      "TEST10",
		Type:      model.CouponPercentage,
		Value:     decimal.NewFromInt(10),
		StartDate: now.Add(-24 * time.Hour),
		EndDate:   now.Add(24 * time.Hour),
		IsActive:  true,
	}
	assert.Equal(t, model.CouponActive, c.ComputeStatus(now))
	assert.Equal(t, model.CouponExpired, c.ComputeStatus(now.Add(25*time.Hour)))
}

func TestCouponDiscount(t *testing.T) {
	pct := model.Coupon{Type: model.CouponPercentage, Value: decimal.NewFromInt(20), MaxDiscount: decPtr("15")}
	d, err := pct.Discount(decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.NewFromInt(10)), d.String())

	d, err = pct.Discount(decimal.NewFromInt(200))
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.NewFromInt(15)), "capped by maxDiscount, got %s", d)

	fixed := model.Coupon{Type: model.CouponFixed, Value: decimal.NewFromInt(30), MinPurchase: decPtr("20")}
	d, err = fixed.Discount(decimal.NewFromInt(25))
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.NewFromInt(25)), "never more than subtotal, got %s", d)

	_, err = fixed.Discount(decimal.NewFromInt(10))
	assert.ErrorIs(t, err, model.ErrCouponMinPurchase)
}

func TestCouponRedeemRequiresActive(t *testing.T) {
	now := time.Now().UTC()
	c := model.Coupon{
		Type:       model.CouponFixed,
		Value:      decimal.NewFromInt(5),
		StartDate:  now.Add(-time.Hour),
		EndDate:    now.Add(time.Hour),
		IsActive:   true,
		UsageLimit: intPtr(2),
		UsedCount:  2,
	}
	_, err := c.Redeem(decimal.NewFromInt(100), now)
	assert.ErrorIs(t, err, model.ErrCouponNotActive)

	c.UsedCount = 1
	d, err := c.Redeem(decimal.NewFromInt(100), now)
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.NewFromInt(5)))
}

func TestNormalizeCouponCode(t *testing.T) {
	assert.Equal(t, "SUMMER25", model.NormalizeCouponCode("  summer25 "))
}
