package repository_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/apparel-storefront/internal/model"
	"github.com/iliyamo/apparel-storefront/internal/repository"
)

func strPtr(s string) *string { return &s }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newUser(t *testing.T, db *sql.DB, email string) uint64 {
	t.Helper()
	id, err := repository.NewUserRepo(db).Create(context.Background(), email, "secret123", nil, model.RoleCustomer, bcrypt.MinCost)
	require.NoError(t, err)
	return id
}

func newCategory(t *testing.T, db *sql.DB, name string, parent *uint64) *model.Category {
	t.Helper()
	c := &model.Category{Name: name, ParentID: parent, IsActive: true}
	require.NoError(t, repository.NewCategoryRepo(db).Create(context.Background(), c))
	return c
}

// newProduct creates a product with one variant per size in black.
func newProduct(t *testing.T, db *sql.DB, categoryID uint64, sku, price string, stock int, sizes ...string) *model.Product {
	t.Helper()
	if len(sizes) == 0 {
		sizes = []string{"M"}
	}
	vs, err := model.BuildVariants(sku, sizes, []model.ColorOption{{Name: "Black", Hex: "#000000"}}, stock)
	require.NoError(t, err)
	p := &model.Product{
		Name:       fmt.Sprintf("Product %s", sku),
		SKU:        sku,
		Price:      dec(price),
		CategoryID: categoryID,
		IsActive:   true,
		Images:     []model.ProductImage{{URL: "https://img.example.com/" + sku + ".jpg", IsPrimary: true}},
		Variants:   vs,
	}
	require.NoError(t, repository.NewProductRepo(db).Create(context.Background(), p))
	return p
}

func newAddress(t *testing.T, db *sql.DB, userID uint64, label string, isDefault bool) *model.Address {
	t.Helper()
	a := &model.Address{
		UserID:     userID,
		Label:      strPtr(label),
		FullName:   "Ada Lovelace",
		Line1:      "1 Loom Street",
		City:       "London",
		PostalCode: "N1 9GU",
		Country:    "gb",
		IsDefault:  isDefault,
	}
	require.NoError(t, repository.NewAddressRepo(db).Create(context.Background(), a))
	return a
}

func countDefaults(t *testing.T, db *sql.DB, userID uint64) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM addresses WHERE user_id = ? AND is_default = ?", userID, true).Scan(&n))
	return n
}
