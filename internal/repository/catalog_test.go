package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/apparel-storefront/internal/model"
	"github.com/iliyamo/apparel-storefront/internal/repository"
	"github.com/iliyamo/apparel-storefront/internal/testutil"
)

func TestCategoryDeleteGuard(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := repository.NewCategoryRepo(db)

	men := newCategory(t, db, "Men", nil)
	shirts := newCategory(t, db, "Shirts", &men.ID)
	newProduct(t, db, shirts.ID, "SH01", "30", 5)

	err := repo.Delete(ctx, men.ID)
	var inUse *repository.InUseError
	require.True(t, errors.As(err, &inUse))
	assert.Equal(t, 1, inUse.Counts["subcategories"])
	assert.Contains(t, err.Error(), "1 subcategories")

	err = repo.Delete(ctx, shirts.ID)
	require.True(t, errors.As(err, &inUse))
	assert.Equal(t, 1, inUse.Counts["products"])

	got, err := repo.GetByID(ctx, shirts.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ProductCount)

	_, err = repo.GetByID(ctx, men.ID)
	require.NoError(t, err, "a guarded delete leaves the row")

	empty := newCategory(t, db, "Empty", nil)
	require.NoError(t, repo.Delete(ctx, empty.ID))
	_, err = repo.GetByID(ctx, empty.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, empty.ID), repository.ErrNotFound)
}

func TestCategorySlugUnique(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewCategoryRepo(db)
	c := newCategory(t, db, "New Arrivals", nil)
	assert.Equal(t, "new-arrivals", c.Slug)

	err := repo.Create(context.Background(), &model.Category{Name: "New  Arrivals"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestCategoryUpdate(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := repository.NewCategoryRepo(db)
	parent := newCategory(t, db, "Women", nil)
	c := newCategory(t, db, "Dresses", nil)

	name := "Summer Dresses"
	require.NoError(t, repo.Update(ctx, c.ID, repository.CategoryPatch{Name: &name, ParentID: &parent.ID}))
	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, parent.ID, *got.ParentID)

	require.NoError(t, repo.Update(ctx, c.ID, repository.CategoryPatch{ClearParent: true}))
	got, err = repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ParentID)

	assert.ErrorIs(t, repo.Update(ctx, 9999, repository.CategoryPatch{Name: &name}), repository.ErrNotFound)
}

func TestProductCreateWithVariants(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := repository.NewProductRepo(db)
	cat := newCategory(t, db, "Tees", nil)

	sizes := []string{"S", "M", "L", "XL"}
	colors := []model.ColorOption{{Name: "Black"}, {Name: "White"}, {Name: "Olive"}}
	vs, err := model.BuildVariants("TEE01", sizes, colors, 4)
	require.NoError(t, err)
	p := &model.Product{Name: "Classic Tee", SKU: "TEE01", Price: dec("25"), CategoryID: cat.ID, IsActive: true, Variants: vs}
	require.NoError(t, repo.Create(ctx, p))
	assert.Equal(t, "classic-tee", p.Slug)

	got, err := repo.GetBySlug(ctx, "classic-tee", true)
	require.NoError(t, err)
	require.Len(t, got.Variants, len(sizes)*len(colors))
	assert.Equal(t, 48, got.TotalStock)
	assert.Equal(t, "Tees", got.CategoryName)
	skus := map[string]bool{}
	for _, v := range got.Variants {
		assert.Regexp(t, `^TEE01-(S|M|L|XL)-(BLA|WHI|OLI)$`, v.SKU)
		skus[v.SKU] = true
	}
	assert.Len(t, skus, 12)
}

func TestProductCreateDuplicateRollsBack(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := repository.NewProductRepo(db)
	cat := newCategory(t, db, "Tees", nil)
	newProduct(t, db, cat.ID, "TEE01", "25", 1)

	vs, err := model.BuildVariants("TEE02", []string{"M"}, []model.ColorOption{{Name: "Red"}}, 1)
	require.NoError(t, err)
	dup := &model.Product{Name: "Product TEE01", SKU: "TEE02", Price: dec("10"), CategoryID: cat.ID, Variants: vs}
	assert.ErrorIs(t, repo.Create(ctx, dup), repository.ErrDuplicate)

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM product_variants WHERE sku = ?", "TEE02-M-RED").Scan(&n))
	assert.Zero(t, n)
}

func TestProductListFilters(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := repository.NewProductRepo(db)

	men := newCategory(t, db, "Men", nil)
	shirts := newCategory(t, db, "Shirts", &men.ID)
	women := newCategory(t, db, "Women", nil)
	newProduct(t, db, shirts.ID, "A1", "10", 3)
	newProduct(t, db, men.ID, "A2", "40", 3)
	newProduct(t, db, women.ID, "B1", "20", 3)

	sale := true
	_, err := db.Exec("UPDATE products SET is_on_sale = ?, sale_price = ? WHERE sku = ?", true, "15", "B1")
	require.NoError(t, err)

	list, total, err := repo.List(ctx, repository.ProductFilter{CategorySlug: "men", ActiveOnly: true, Sort: "price_asc"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, list, 2)
	assert.Equal(t, "A1", list[0].SKU)
	assert.Len(t, list[0].Variants, 1)
	assert.Len(t, list[0].Images, 1)

	list, total, err = repo.List(ctx, repository.ProductFilter{OnSale: &sale})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.True(t, list[0].EffectivePrice().Equal(dec("15")))

	list, total, err = repo.List(ctx, repository.ProductFilter{Limit: 2, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, list, 1)

	_, total, err = repo.List(ctx, repository.ProductFilter{Search: "b1"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestProductStatsStockLevels(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := repository.NewProductRepo(db)
	cat := newCategory(t, db, "Tees", nil)
	newProduct(t, db, cat.ID, "P1", "10", 0)
	newProduct(t, db, cat.ID, "P2", "10", 2, "S", "M")
	newProduct(t, db, cat.ID, "P3", "10", 50)

	s, err := repo.Stats(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 3, s.Active)
	assert.Equal(t, 1, s.OutOfStock)
	assert.Equal(t, 1, s.LowStock)
}

func TestProductUpdateAndDelete(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := repository.NewProductRepo(db)
	cat := newCategory(t, db, "Tees", nil)
	p := newProduct(t, db, cat.ID, "P1", "10", 1)

	price := dec("12.50")
	imgs := []model.ProductImage{{URL: "https://img.example.com/a.jpg"}, {URL: "https://img.example.com/b.jpg", IsPrimary: true}}
	require.NoError(t, repo.Update(ctx, p.ID, repository.ProductPatch{
		Price:        &price,
		Images:       &imgs,
		VariantStock: map[uint64]int{p.Variants[0].ID: 9},
	}))
	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(price))
	require.Len(t, got.Images, 2)
	assert.True(t, got.Images[0].IsPrimary)
	assert.Equal(t, 9, got.TotalStock)

	require.NoError(t, repo.Delete(ctx, p.ID))
	_, err = repo.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM product_variants WHERE product_id = ?", p.ID).Scan(&n))
	assert.Zero(t, n)
}
