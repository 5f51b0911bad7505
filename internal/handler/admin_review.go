package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/apparel-storefront/internal/model"
	"github.com/iliyamo/apparel-storefront/internal/repository"
)

// ListReviews handles GET /api/admin/reviews with optional ?status=pending|approved
// and ?productId=.
func (h *AdminHandler) ListReviews(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	if c.QueryParam("id") != "" {
		id, err := queryID(c)
		if err != nil {
			return badRequest(c, err.Error())
		}
		rv, err := h.Repos.Reviews.GetByID(ctx, id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"review": rv})
	}
	var f repository.ReviewFilter
	switch st := model.ReviewStatus(strings.ToLower(c.QueryParam("status"))); st {
	case model.ReviewPending, model.ReviewApproved:
		f.Status = st
	case "", "all":
	default:
		return badRequest(c, "status must be pending or approved")
	}
	if pid := queryInt(c, "productId", 0); pid > 0 {
		f.ProductID = uint64(pid)
	}
	reviews, err := h.Repos.Reviews.List(ctx, f)
	if err != nil {
		return respondError(c, err)
	}
	stats, err := h.Repos.Reviews.Stats(ctx, f.ProductID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reviews": reviews, "stats": stats})
}

// UpdateReview handles PATCH /api/admin/reviews?id= with {"isApproved": bool}.
func (h *AdminHandler) UpdateReview(c echo.Context) error {
	id, err := queryID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req struct {
		IsApproved *bool `json:"isApproved"`
	}
	if err := c.Bind(&req); err != nil || req.IsApproved == nil {
		return badRequest(c, "isApproved is required")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Repos.Reviews.SetApproved(ctx, id, *req.IsApproved); err != nil {
		return respondError(c, err)
	}
	rv, err := h.Repos.Reviews.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"review": rv})
}

// DeleteReview handles DELETE /api/admin/reviews?id=.
func (h *AdminHandler) DeleteReview(c echo.Context) error {
	id, err := queryID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Repos.Reviews.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
