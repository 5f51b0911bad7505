package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// Product is a catalog item. Its variants carry the per size/colour stock.
type Product struct {
	ID           uint64           `gorm:"primaryKey" json:"id"`
	Name         string           `gorm:"size:200;not null" json:"name"`
	Slug         string           `gorm:"size:191;uniqueIndex;not null" json:"slug"`
	SKU          string           `gorm:"column:sku;size:64;uniqueIndex;not null" json:"sku"`
	Description  *string          `gorm:"type:text" json:"description"`
	Price        decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"price"`
	SalePrice    *decimal.Decimal `gorm:"type:decimal(10,2)" json:"salePrice"`
	CategoryID   uint64           `gorm:"not null;index" json:"categoryId"`
	IsFeatured   bool             `gorm:"not null" json:"isFeatured"`
	IsNew        bool             `gorm:"not null" json:"isNew"`
	IsBestseller bool             `gorm:"not null" json:"isBestseller"`
	IsOnSale     bool             `gorm:"not null" json:"isOnSale"`
	IsActive     bool             `gorm:"not null" json:"isActive"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`

	Images   []ProductImage   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"images"`
	Variants []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"variants"`

	CategoryName string `gorm:"-" json:"categoryName,omitempty"`
	CategorySlug string `gorm:"-" json:"categorySlug,omitempty"`
	TotalStock   int    `gorm:"-" json:"totalStock"`
}

func (Product) TableName() string { return "products" }

// EffectivePrice is what a customer pays per unit: the sale price while the
// product is flagged on sale, the list price otherwise.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.IsOnSale && p.SalePrice != nil && p.SalePrice.IsPositive() {
		return *p.SalePrice
	}
	return p.Price
}

// ProductImage is an externally hosted image URL.
type ProductImage struct {
	ID        uint64  `gorm:"primaryKey" json:"id"`
	ProductID uint64  `gorm:"not null;index" json:"productId"`
	URL       string  `gorm:"column:url;size:500;not null" json:"url"`
	Alt       *string `gorm:"size:200" json:"alt"`
	SortOrder int     `gorm:"not null" json:"sortOrder"`
	IsPrimary bool    `gorm:"not null" json:"isPrimary"`
}

func (ProductImage) TableName() string { return "product_images" }

// ProductVariant is one (size, colour) SKU of a product.
type ProductVariant struct {
	ID        uint64 `gorm:"primaryKey" json:"id"`
	ProductID uint64 `gorm:"not null;uniqueIndex:idx_variant_combo" json:"productId"`
	Size      string `gorm:"size:16;not null;uniqueIndex:idx_variant_combo" json:"size"`
	Color     string `gorm:"size:50;not null;uniqueIndex:idx_variant_combo" json:"color"`
	ColorHex  string `gorm:"size:7" json:"colorHex"`
	Stock     int    `gorm:"not null" json:"stock"`
	SKU       string `gorm:"column:sku;size:100;uniqueIndex;not null" json:"sku"`
}

func (ProductVariant) TableName() string { return "product_variants" }

// ColorOption is a colour offered when a product is created. Code overrides
// the three-letter SKU segment derived from Name.
type ColorOption struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
	Code string `json:"code,omitempty"`
}

// ErrVariantSKUCollision is returned when two colours map to the same SKU code.
var ErrVariantSKUCollision = errors.New("two colours share the same sku code; set an explicit code")

// ColorCode returns the upper-cased first three letters of the colour name,
// or the explicit code when one is set.
func (c ColorOption) ColorCode() string {
	src := c.Code
	if strings.TrimSpace(src) == "" {
		src = c.Name
	}
	var b strings.Builder
	for _, r := range src {
		if b.Len() == 3 {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// VariantSKU formats the sku of one variant as {productSku}-{SIZE}-{COLOR3}.
func VariantSKU(productSKU, size string, color ColorOption) string {
	return fmt.Sprintf("%s-%s-%s", productSKU, strings.ToUpper(strings.TrimSpace(size)), color.ColorCode())
}

// BuildVariants expands sizes × colours into variants that all start with the
// given stock. Blank and repeated sizes or colours are skipped.
func BuildVariants(productSKU string, sizes []string, colors []ColorOption, stock int) ([]ProductVariant, error) {
	if stock < 0 {
		stock = 0
	}
	var cleanSizes []string
	seenSize := map[string]bool{}
	for _, s := range sizes {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seenSize[s] {
			continue
		}
		seenSize[s] = true
		cleanSizes = append(cleanSizes, s)
	}
	var cleanColors []ColorOption
	seenColor := map[string]bool{}
	codes := map[string]bool{}
	for _, c := range colors {
		c.Name = strings.TrimSpace(c.Name)
		key := strings.ToLower(c.Name)
		if c.Name == "" || seenColor[key] {
			continue
		}
		seenColor[key] = true
		code := c.ColorCode()
		if codes[code] {
			return nil, ErrVariantSKUCollision
		}
		codes[code] = true
		cleanColors = append(cleanColors, c)
	}

	out := make([]ProductVariant, 0, len(cleanSizes)*len(cleanColors))
	for _, s := range cleanSizes {
		for _, c := range cleanColors {
			out = append(out, ProductVariant{
				Size:     s,
				Color:    c.Name,
				ColorHex: c.Hex,
				Stock:    stock,
				SKU:      VariantSKU(productSKU, s, c),
			})
		}
	}
	return out, nil
}
