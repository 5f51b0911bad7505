// Package model holds the storefront's persistent records and the small
// business rules computed from them (coupon and banner status, order status
// stamping, refunds, variant SKUs). Structs carry gorm tags so the schema can
// be migrated from them, and json tags for the HTTP API. Repositories read
// and write them with plain SQL.
package model

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

func init() {
	// Monetary fields are decimals in the database and plain numbers on the wire.
	decimal.MarshalJSONWithoutQuotes = true
}

// All returns every table model in dependency order. It is the single list
// used by migrations and by test databases.
func All() []any {
	return []any{
		&User{},
		&RefreshToken{},
		&Category{},
		&Product{},
		&ProductImage{},
		&ProductVariant{},
		&Address{},
		&Coupon{},
		&Order{},
		&OrderItem{},
		&OrderAddress{},
		&Payment{},
		&Banner{},
		&Review{},
		&NewsletterSubscriber{},
	}
}

// Slugify lower-cases s and joins its alphanumeric runs with single dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	return b.String()
}

// Money rounds d to cents.
func Money(d decimal.Decimal) decimal.Decimal { return d.Round(2) }
