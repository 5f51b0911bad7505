package main

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/apparel-storefront/internal/config"
	"github.com/iliyamo/apparel-storefront/internal/model"
	"github.com/iliyamo/apparel-storefront/internal/repository"
)

type seedProduct struct {
	name, sku, category string
	price               string
	sale                string
	sizes               []string
	colors              []model.ColorOption
	featured, isNew     bool
}

var (
	seedCategories = []model.Category{
		{Name: "Men", Slug: "men", SortOrder: 1, IsActive: true},
		{Name: "Women", Slug: "women", SortOrder: 2, IsActive: true},
		{Name: "Accessories", Slug: "accessories", SortOrder: 3, IsActive: true},
	}
	seedProducts = []seedProduct{
		{name: "Classic Oxford Shirt", sku: "SKU-OXF001", category: "men", price: "49.90",
			sizes:  []string{"S", "M", "L", "XL"},
			colors: []model.ColorOption{{Name: "White", Hex: "#FFFFFF"}, {Name: "Blue", Hex: "#4A6FA5"}}, featured: true},
		{name: "Slim Chinos", sku: "SKU-CHN002", category: "men", price: "59.00", sale: "44.00",
			sizes:  []string{"30", "32", "34"},
			colors: []model.ColorOption{{Name: "Khaki", Hex: "#C3B091"}, {Name: "Navy", Hex: "#1F2A44"}}},
		{name: "Linen Summer Dress", sku: "SKU-DRS003", category: "women", price: "79.00",
			sizes:  []string{"XS", "S", "M", "L"},
			colors: []model.ColorOption{{Name: "Sand", Hex: "#D8C8A8"}, {Name: "Black", Hex: "#000000"}}, isNew: true},
		{name: "Leather Belt", sku: "SKU-BLT004", category: "accessories", price: "29.00",
			sizes:  []string{"ONE"},
			colors: []model.ColorOption{{Name: "Brown", Hex: "#5C4033"}}},
	}
)

// seed is idempotent: rows that already exist, matched by slug or code,
// are left untouched.
func seed(ctx context.Context, cfg config.Config, db *sql.DB) error {
	users := repository.NewUserRepo(db)
	if _, err := users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.BcryptCost); err != nil {
		return err
	}
	log.Info().Str("email", cfg.AdminEmail).Msg("admin account ready")

	cats := repository.NewCategoryRepo(db)
	ids := map[string]uint64{}
	for _, c := range seedCategories {
		cur, err := cats.GetBySlug(ctx, c.Slug)
		switch {
		case err == nil:
			ids[c.Slug] = cur.ID
			continue
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}
		if err := cats.Create(ctx, &c); err != nil {
			return err
		}
		ids[c.Slug] = c.ID
	}

	products := repository.NewProductRepo(db)
	for _, sp := range seedProducts {
		slug := model.Slugify(sp.name)
		if _, err := products.GetBySlug(ctx, slug, false); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		p := &model.Product{
			Name:       sp.name,
			Slug:       slug,
			SKU:        sp.sku,
			Price:      decimal.RequireFromString(sp.price),
			CategoryID: ids[sp.category],
			IsFeatured: sp.featured,
			IsNew:      sp.isNew,
			IsActive:   true,
			Images:     []model.ProductImage{{URL: "/images/" + slug + ".jpg", IsPrimary: true}},
		}
		if sp.sale != "" {
			s := decimal.RequireFromString(sp.sale)
			p.SalePrice = &s
			p.IsOnSale = true
		}
		variants, err := model.BuildVariants(p.SKU, sp.sizes, sp.colors, 20)
		if err != nil {
			return err
		}
		p.Variants = variants
		if err := products.Create(ctx, p); err != nil {
			return err
		}
	}

	coupons := repository.NewCouponRepo(db)
	if _, err := coupons.GetByCode(ctx, "WELCOME10"); errors.Is(err, repository.ErrNotFound) {
		desc := "10% off your first order"
		now := time.Now().UTC()
		if err := coupons.Create(ctx, &model.Coupon{
			Code: "WELCOME10", Description: &desc, Type: model.CouponPercentage,
			Value: decimal.NewFromInt(10), StartDate: now, EndDate: now.AddDate(1, 0, 0), IsActive: true,
		}); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	banners := repository.NewBannerRepo(db)
	existing, err := banners.List(ctx, "hero")
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		cta := "Shop now"
		link := "/products?new=true"
		if err := banners.Create(ctx, &model.Banner{
			Title: "New season", ImageURL: "/images/hero.jpg", LinkURL: &link, ButtonText: &cta,
			Position: "hero", IsActive: true,
		}); err != nil {
			return err
		}
	}
	log.Info().Int("categories", len(seedCategories)).Int("products", len(seedProducts)).Msg("demo catalog seeded")
	return nil
}
