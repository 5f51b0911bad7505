package model_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/apparel-storefront/internal/model"
)

func TestBuildVariantsCrossProduct(t *testing.T) {
	sizes := []string{"s", "M", "l"}
	colors := []model.ColorOption{
		{Name: "Black", Hex: "#000000"},
		{Name: "White", Hex: "#FFFFFF"},
	}
	vs, err := model.BuildVariants("TEE01", sizes, colors, 7)
	require.NoError(t, err)
	require.Len(t, vs, len(sizes)*len(colors))

	skus := map[string]bool{}
	for _, v := range vs {
		assert.False(t, skus[v.SKU], "duplicate sku %s", v.SKU)
		skus[v.SKU] = true
		assert.Equal(t, 7, v.Stock)
	}
	assert.True(t, skus["TEE01-S-BLA"])
	assert.True(t, skus["TEE01-L-WHI"])
}

func TestBuildVariantsSkipsBlanksAndDuplicates(t *testing.T) {
	vs, err := model.BuildVariants("P", []string{"M", " m ", ""}, []model.ColorOption{{Name: "Red"}, {Name: "red"}, {Name: " "}}, -3)
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, "P-M-RED", vs[0].SKU)
	assert.Equal(t, 0, vs[0].Stock)
}

func TestBuildVariantsCodeCollision(t *testing.T) {
	_, err := model.BuildVariants("P", []string{"M"}, []model.ColorOption{{Name: "Blue"}, {Name: "Blush"}}, 1)
	assert.ErrorIs(t, err, model.ErrVariantSKUCollision)

	vs, err := model.BuildVariants("P", []string{"M"}, []model.ColorOption{{Name: "Blue"}, {Name: "Blush", Code: "BSH"}}, 1)
	require.NoError(t, err)
	assert.Equal(t, "P-M-BSH", vs[1].SKU)
}

func TestColorCodeShortName(t *testing.T) {
	assert.Equal(t, "OX", model.ColorOption{Name: "ox"}.ColorCode())
	assert.Equal(t, "NAV", model.ColorOption{Name: "Navy Blue"}.ColorCode())
}

func TestEffectivePrice(t *testing.T) {
	p := model.Product{Price: decimal.NewFromInt(40), SalePrice: decPtr("30")}
	assert.True(t, p.EffectivePrice().Equal(decimal.NewFromInt(40)))
	p.IsOnSale = true
	assert.True(t, p.EffectivePrice().Equal(decimal.NewFromInt(30)))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "linen-summer-shirt", model.Slugify("  Linen Summer   Shirt! "))
	assert.Equal(t, "t-shirts-tops", model.Slugify("T-Shirts & Tops"))
}

func TestBannerStatus(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	b := model.Banner{IsActive: true}
	assert.Equal(t, model.BannerLive, b.ComputeStatus(now))
	b.StartDate = &future
	assert.Equal(t, model.BannerScheduled, b.ComputeStatus(now))
	b.StartDate, b.EndDate = nil, &past
	assert.Equal(t, model.BannerExpired, b.ComputeStatus(now))
	b.EndDate, b.IsActive = nil, false
	assert.Equal(t, model.BannerInactive, b.ComputeStatus(now))
}

func TestReviewStatus(t *testing.T) {
	r := model.Review{}
	assert.Equal(t, model.ReviewPending, r.ComputeStatus())
	r.IsApproved = true
	assert.Equal(t, model.ReviewApproved, r.ComputeStatus())
}
