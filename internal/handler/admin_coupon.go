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

type couponReq struct {
	Code        *string                   `json:"code"`
	Description *string                   `json:"description"`
	Type        *string                   `json:"type"`
	Value       *decimal.Decimal          `json:"value"`
	MinPurchase nullable[decimal.Decimal] `json:"minPurchase"`
	MaxDiscount nullable[decimal.Decimal] `json:"maxDiscount"`
	UsageLimit  nullable[int]             `json:"usageLimit"`
	StartDate   *time.Time                `json:"startDate"`
	EndDate     *time.Time                `json:"endDate"`
	IsActive    *bool                     `json:"isActive"`
}

// validCoupon checks a coupon as it would be stored.
func validCoupon(c *model.Coupon) error {
	switch {
	case c.Code == "":
		return errors.New("code is required")
	case c.Type != model.CouponPercentage && c.Type != model.CouponFixed:
		return errors.New("type must be PERCENTAGE or FIXED")
	case !c.Value.IsPositive():
		return errors.New("value must be greater than zero")
	case c.Type == model.CouponPercentage && c.Value.GreaterThan(decimal.NewFromInt(100)):
		return errors.New("percentage cannot exceed 100")
	case c.MinPurchase != nil && c.MinPurchase.IsNegative():
		return errors.New("minPurchase cannot be negative")
	case c.MaxDiscount != nil && !c.MaxDiscount.IsPositive():
		return errors.New("maxDiscount must be greater than zero")
	case c.UsageLimit != nil && *c.UsageLimit < 1:
		return errors.New("usageLimit must be at least 1")
	case c.EndDate.IsZero():
		return errors.New("endDate is required")
	case !c.EndDate.After(c.StartDate):
		return errors.New("endDate must be after startDate")
	}
	return nil
}

type couponStats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Expired  int `json:"expired"`
	Upcoming int `json:"upcoming"`
	UsedUp   int `json:"usedUp"`
	Inactive int `json:"inactive"`
}

func (s *couponStats) add(st model.CouponStatus) {
	s.Total++
	switch st {
	case model.CouponActive:
		s.Active++
	case model.CouponExpired:
		s.Expired++
	case model.CouponUpcoming:
		s.Upcoming++
	case model.CouponUsedUp:
		s.UsedUp++
	default:
		s.Inactive++
	}
}

// ListCoupons handles GET /api/admin/coupons. Status is derived from the
// clock on every read.
func (h *AdminHandler) ListCoupons(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	now := h.now()
	if c.QueryParam("id") != "" {
		id, err := queryID(c)
		if err != nil {
			return badRequest(c, err.Error())
		}
		cp, err := h.Repos.Coupons.GetByID(ctx, id)
		if err != nil {
			return respondError(c, err)
		}
		cp.Status = cp.ComputeStatus(now)
		return c.JSON(http.StatusOK, echo.Map{"coupon": cp})
	}
	coupons, err := h.Repos.Coupons.List(ctx, c.QueryParam("search"))
	if err != nil {
		return respondError(c, err)
	}
	var st couponStats
	for i := range coupons {
		coupons[i].Status = coupons[i].ComputeStatus(now)
		st.add(coupons[i].Status)
	}
	return c.JSON(http.StatusOK, echo.Map{"coupons": coupons, "stats": st})
}

// CreateCoupon handles POST /api/admin/coupons. Codes are stored upper-case
// and must be unique. startDate defaults to now.
func (h *AdminHandler) CreateCoupon(c echo.Context) error {
	var req couponReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	cp := &model.Coupon{
		Description: trimmed(req.Description),
		MinPurchase: req.MinPurchase.Value,
		MaxDiscount: req.MaxDiscount.Value,
		UsageLimit:  req.UsageLimit.Value,
		StartDate:   h.now(),
		IsActive:    true,
	}
	if req.Code != nil {
		cp.Code = model.NormalizeCouponCode(*req.Code)
	}
	if req.Type != nil {
		cp.Type = model.CouponType(strings.ToUpper(strings.TrimSpace(*req.Type)))
	}
	if req.Value != nil {
		cp.Value = *req.Value
	}
	if req.StartDate != nil {
		cp.StartDate = req.StartDate.UTC()
	}
	if req.EndDate != nil {
		cp.EndDate = req.EndDate.UTC()
	}
	setBool(&cp.IsActive, req.IsActive)
	if err := validCoupon(cp); err != nil {
		return badRequest(c, err.Error())
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Repos.Coupons.Create(ctx, cp); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "coupon code already exists"})
		}
		return respondError(c, err)
	}
	cp.Status = cp.ComputeStatus(h.now())
	return c.JSON(http.StatusCreated, echo.Map{"coupon": cp})
}

// UpdateCoupon handles PATCH /api/admin/coupons?id=. null clears
// minPurchase, maxDiscount or usageLimit.
func (h *AdminHandler) UpdateCoupon(c echo.Context) error {
	id, err := queryID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req couponReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	cur, err := h.Repos.Coupons.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}

	// apply to a copy so the merged coupon can be validated as a whole
	next := *cur
	var p repository.CouponPatch
	if req.Code != nil {
		code := model.NormalizeCouponCode(*req.Code)
		next.Code, p.Code = code, &code
	}
	if req.Description != nil {
		d := strings.TrimSpace(*req.Description)
		p.Description = &d
	}
	if req.Type != nil {
		t := model.CouponType(strings.ToUpper(strings.TrimSpace(*req.Type)))
		next.Type, p.Type = t, &t
	}
	if req.Value != nil {
		next.Value, p.Value = *req.Value, req.Value
	}
	if req.MinPurchase.Set {
		next.MinPurchase, p.MinPurchase, p.ClearMinPurchase = req.MinPurchase.Value, req.MinPurchase.Value, req.MinPurchase.cleared()
	}
	if req.MaxDiscount.Set {
		next.MaxDiscount, p.MaxDiscount, p.ClearMaxDiscount = req.MaxDiscount.Value, req.MaxDiscount.Value, req.MaxDiscount.cleared()
	}
	if req.UsageLimit.Set {
		next.UsageLimit, p.UsageLimit, p.ClearUsageLimit = req.UsageLimit.Value, req.UsageLimit.Value, req.UsageLimit.cleared()
	}
	if req.StartDate != nil {
		t := req.StartDate.UTC()
		next.StartDate, p.StartDate = t, &t
	}
	if req.EndDate != nil {
		t := req.EndDate.UTC()
		next.EndDate, p.EndDate = t, &t
	}
	p.IsActive = req.IsActive
	if err := validCoupon(&next); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.Repos.Coupons.Update(ctx, id, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "coupon code already exists"})
		}
		return respondError(c, err)
	}
	updated, err := h.Repos.Coupons.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	updated.Status = updated.ComputeStatus(h.now())
	return c.JSON(http.StatusOK, echo.Map{"coupon": updated})
}

// DeleteCoupon handles DELETE /api/admin/coupons?id=. Orders keep the code
// they were placed with.
func (h *AdminHandler) DeleteCoupon(c echo.Context) error {
	id, err := queryID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Repos.Coupons.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
