package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/apparel-storefront/internal/model"
	"github.com/iliyamo/apparel-storefront/internal/repository"
)

// ListProducts handles GET /api/admin/products. Inactive products are
// included; ?id= returns one product with images and variants.
func (h *AdminHandler) ListProducts(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	if c.QueryParam("id") != "" {
		id, err := queryID(c)
		if err != nil {
			return badRequest(c, err.Error())
		}
		p, err := h.Repos.Products.GetByID(ctx, id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"product": p})
	}
	f := repository.ProductFilter{
		Search:     c.QueryParam("search"),
		Featured:   queryBool(c, "featured"),
		OnSale:     queryBool(c, "onSale"),
		Sort:       c.QueryParam("sort"),
		Page:       queryInt(c, "page", 1),
		Limit:      queryInt(c, "limit", 20),
		ActiveOnly: false,
	}
	if cid := queryInt(c, "categoryId", 0); cid > 0 {
		f.CategoryID = uint64(cid)
	}
	f.Normalize()
	products, total, err := h.Repos.Products.List(ctx, f)
	if err != nil {
		return respondError(c, err)
	}
	stats, err := h.Repos.Products.Stats(ctx, h.Cfg.LowStockThreshold)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"products": products,
		"total":    total,
		"page":     f.Page,
		"limit":    f.Limit,
		"stats":    stats,
	})
}

type imageReq struct {
	URL string  `json:"url"`
	Alt *string `json:"alt"`
}

type productReq struct {
	Name         *string                   `json:"name"`
	Slug         *string                   `json:"slug"`
	SKU          *string                   `json:"sku"`
	Description  *string                   `json:"description"`
	Price        *decimal.Decimal          `json:"price"`
	SalePrice    nullable[decimal.Decimal] `json:"salePrice"`
	CategoryID   *uint64                   `json:"categoryId"`
	IsFeatured   *bool                     `json:"isFeatured"`
	IsNew        *bool                     `json:"isNew"`
	IsBestseller *bool                     `json:"isBestseller"`
	IsOnSale     *bool                     `json:"isOnSale"`
	IsActive     *bool                     `json:"isActive"`
	Images       *[]imageReq               `json:"images"`

	// create only
	Sizes  []string            `json:"sizes"`
	Colors []model.ColorOption `json:"colors"`
	Stock  int                 `json:"stock"`

	// update only: variant id → new stock
	VariantStock map[uint64]int `json:"variantStock"`
}

// toImages drops blank URLs; the first image becomes the primary one.
func toImages(in []imageReq) []model.ProductImage {
	out := []model.ProductImage{}
	for _, img := range in {
		u := strings.TrimSpace(img.URL)
		if u == "" {
			continue
		}
		out = append(out, model.ProductImage{URL: u, Alt: trimmed(img.Alt), SortOrder: len(out), IsPrimary: len(out) == 0})
	}
	return out
}

func checkPrices(price *decimal.Decimal, sale *decimal.Decimal) error {
	if price != nil && !price.IsPositive() {
		return errors.New("price must be greater than zero")
	}
	if sale != nil && sale.IsNegative() {
		return errors.New("sale price cannot be negative")
	}
	if price != nil && sale != nil && sale.GreaterThanOrEqual(*price) {
		return errors.New("sale price must be below the price")
	}
	return nil
}

// newBaseSKU returns a short random product sku such as SKU-4F9A1C2E.
func newBaseSKU() string {
	return "SKU-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
}

// CreateProduct handles POST /api/admin/products. One variant is created
// per size × colour, each with sku {productSku}-{SIZE}-{COLOR3}.
func (h *AdminHandler) CreateProduct(c echo.Context) error {
	var req productReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	name := trimmed(req.Name)
	switch {
	case name == nil:
		return badRequest(c, "name is required")
	case req.Price == nil:
		return badRequest(c, "price is required")
	case req.CategoryID == nil || *req.CategoryID == 0:
		return badRequest(c, "categoryId is required")
	}
	if err := checkPrices(req.Price, req.SalePrice.Value); err != nil {
		return badRequest(c, err.Error())
	}
	if req.Stock < 0 {
		return badRequest(c, "stock cannot be negative")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if _, err := h.Repos.Categories.GetByID(ctx, *req.CategoryID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return badRequest(c, "category not found")
		}
		return respondError(c, err)
	}

	p := &model.Product{
		Name:        *name,
		SKU:         newBaseSKU(),
		Description: trimmed(req.Description),
		Price:       model.Money(*req.Price),
		CategoryID:  *req.CategoryID,
		IsActive:    true,
		Images:      []model.ProductImage{},
	}
	if s := trimmed(req.SKU); s != nil {
		p.SKU = strings.ToUpper(*s)
	}
	if s := trimmed(req.Slug); s != nil {
		p.Slug = model.Slugify(*s)
	}
	if p.Slug == "" && model.Slugify(p.Name) == "" {
		return badRequest(c, "name must contain letters or digits")
	}
	if req.SalePrice.Value != nil {
		sp := model.Money(*req.SalePrice.Value)
		p.SalePrice = &sp
	}
	setBool(&p.IsFeatured, req.IsFeatured)
	setBool(&p.IsNew, req.IsNew)
	setBool(&p.IsBestseller, req.IsBestseller)
	setBool(&p.IsOnSale, req.IsOnSale)
	setBool(&p.IsActive, req.IsActive)
	if req.Images != nil {
		p.Images = toImages(*req.Images)
	}
	variants, err := model.BuildVariants(p.SKU, req.Sizes, req.Colors, req.Stock)
	if err != nil {
		return respondError(c, err)
	}
	p.Variants = variants

	if err := h.Repos.Products.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "product slug or sku already exists"})
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"product": p})
}

// UpdateProduct handles PATCH /api/admin/products?id=. "salePrice": null
// removes the sale price; images, when present, replace the gallery.
func (h *AdminHandler) UpdateProduct(c echo.Context) error {
	id, err := queryID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req productReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	cur, err := h.Repos.Products.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}

	p := repository.ProductPatch{
		IsFeatured:   req.IsFeatured,
		IsNew:        req.IsNew,
		IsBestseller: req.IsBestseller,
		IsOnSale:     req.IsOnSale,
		IsActive:     req.IsActive,
		VariantStock: req.VariantStock,
	}
	if req.Name != nil {
		if p.Name = trimmed(req.Name); p.Name == nil {
			return badRequest(c, "name cannot be empty")
		}
	}
	if req.Slug != nil {
		s := model.Slugify(*req.Slug)
		if s == "" {
			return badRequest(c, "invalid slug")
		}
		p.Slug = &s
	}
	if req.Description != nil {
		d := strings.TrimSpace(*req.Description)
		p.Description = &d
	}

	price := cur.Price
	if req.Price != nil {
		price = model.Money(*req.Price)
		p.Price = &price
	}
	sale := cur.SalePrice
	switch {
	case req.SalePrice.cleared():
		p.ClearSale = true
		sale = nil
	case req.SalePrice.Value != nil:
		sp := model.Money(*req.SalePrice.Value)
		p.SalePrice = &sp
		sale = &sp
	}
	if err := checkPrices(&price, sale); err != nil {
		return badRequest(c, err.Error())
	}

	if req.CategoryID != nil {
		if _, err := h.Repos.Categories.GetByID(ctx, *req.CategoryID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return badRequest(c, "category not found")
			}
			return respondError(c, err)
		}
		p.CategoryID = req.CategoryID
	}
	if req.Images != nil {
		imgs := toImages(*req.Images)
		p.Images = &imgs
	}
	for _, stock := range req.VariantStock {
		if stock < 0 {
			return badRequest(c, "stock cannot be negative")
		}
	}

	if err := h.Repos.Products.Update(ctx, id, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "product slug already exists"})
		}
		return respondError(c, err)
	}
	updated, err := h.Repos.Products.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"product": updated})
}

// DeleteProduct handles DELETE /api/admin/products?id=.
func (h *AdminHandler) DeleteProduct(c echo.Context) error {
	id, err := queryID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Repos.Products.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
