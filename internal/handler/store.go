package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/apparel-storefront/internal/model"
	"github.com/iliyamo/apparel-storefront/internal/repository"
)

// StoreHandler serves the public storefront. Only active products and
// categories, live banners and approved reviews are visible.
type StoreHandler struct {
	Repos Repos
	Now   func() time.Time
}

func NewStoreHandler(repos Repos) *StoreHandler {
	return &StoreHandler{Repos: repos, Now: time.Now}
}

func (h *StoreHandler) now() time.Time { return h.Now().UTC() }

// ListProducts handles GET /api/products.
//
// Query: category (slug), featured, new, bestseller, onSale, search,
// sort=newest|price_asc|price_desc|name, page, limit.
func (h *StoreHandler) ListProducts(c echo.Context) error {
	f := repository.ProductFilter{
		CategorySlug: strings.TrimSpace(c.QueryParam("category")),
		Search:       c.QueryParam("search"),
		Featured:     queryBool(c, "featured"),
		New:          queryBool(c, "new"),
		Bestseller:   queryBool(c, "bestseller"),
		OnSale:       queryBool(c, "onSale"),
		ActiveOnly:   true,
		Sort:         c.QueryParam("sort"),
		Page:         queryInt(c, "page", 1),
		Limit:        queryInt(c, "limit", 12),
	}
	f.Normalize()
	ctx, cancel := dbCtx(c)
	defer cancel()
	products, total, err := h.Repos.Products.List(ctx, f)
	if err != nil {
		return respondError(c, err)
	}
	pages := (total + f.Limit - 1) / f.Limit
	return c.JSON(http.StatusOK, echo.Map{
		"products": products,
		"total":    total,
		"page":     f.Page,
		"limit":    f.Limit,
		"pages":    pages,
	})
}

// GetProduct handles GET /api/products/:slug.
func (h *StoreHandler) GetProduct(c echo.Context) error {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		return badRequest(c, "slug is required")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	p, err := h.Repos.Products.GetBySlug(ctx, slug, true)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"product": p})
}

// ListProductReviews handles GET /api/products/:slug/reviews.
func (h *StoreHandler) ListProductReviews(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	p, err := h.Repos.Products.GetBySlug(ctx, c.Param("slug"), true)
	if err != nil {
		return respondError(c, err)
	}
	reviews, err := h.Repos.Reviews.List(ctx, repository.ReviewFilter{ProductID: p.ID, Status: model.ReviewApproved})
	if err != nil {
		return respondError(c, err)
	}
	stats, err := h.Repos.Reviews.Stats(ctx, p.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reviews":       reviews,
		"total":         stats.Approved,
		"averageRating": stats.AverageRating,
	})
}

// ListCategories handles GET /api/categories.
func (h *StoreHandler) ListCategories(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	cats, err := h.Repos.Categories.List(ctx, true)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"categories": cats})
}

// ListBanners handles GET /api/banners with an optional ?position=.
func (h *StoreHandler) ListBanners(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	all, err := h.Repos.Banners.List(ctx, c.QueryParam("position"))
	if err != nil {
		return respondError(c, err)
	}
	now := h.now()
	live := []model.Banner{}
	for _, b := range all {
		if b.Status = b.ComputeStatus(now); b.Status == model.BannerLive {
			live = append(live, b)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"banners": live})
}

type couponCheckReq struct {
	Code     string          `json:"code"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// ValidateCoupon handles POST /api/coupons/validate. It previews the
// discount without consuming a use.
func (h *StoreHandler) ValidateCoupon(c echo.Context) error {
	var req couponCheckReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	code := model.NormalizeCouponCode(req.Code)
	if code == "" {
		return badRequest(c, "code is required")
	}
	if req.Subtotal.IsNegative() {
		return badRequest(c, "subtotal cannot be negative")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	cp, err := h.Repos.Coupons.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"valid": false, "error": "coupon not found"})
		}
		return respondError(c, err)
	}
	d, err := cp.Redeem(req.Subtotal, h.now())
	if err != nil {
		if errors.Is(err, model.ErrCouponNotActive) || errors.Is(err, model.ErrCouponMinPurchase) {
			return c.JSON(http.StatusBadRequest, echo.Map{"valid": false, "error": err.Error()})
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"valid":    true,
		"discount": d,
		"coupon": echo.Map{
			"code":        cp.Code,
			"type":        cp.Type,
			"value":       cp.Value,
			"description": cp.Description,
		},
	})
}

type newsletterReq struct {
	Email string `json:"email"`
}

// Subscribe handles POST /api/newsletter. Subscribing twice is not an
// error; 201 is only returned when the address was added or reactivated.
func (h *StoreHandler) Subscribe(c echo.Context) error {
	var req newsletterReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return badRequest(c, "a valid email is required")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	sub, changed, err := h.Repos.Newsletter.Subscribe(ctx, email)
	if err != nil {
		return respondError(c, err)
	}
	status := http.StatusOK
	if changed {
		status = http.StatusCreated
	}
	return c.JSON(status, echo.Map{"subscriber": sub})
}

// Unsubscribe handles DELETE /api/newsletter?email=.
func (h *StoreHandler) Unsubscribe(c echo.Context) error {
	email := strings.ToLower(strings.TrimSpace(c.QueryParam("email")))
	if email == "" {
		return badRequest(c, "email is required")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Repos.Newsletter.Unsubscribe(ctx, email); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
