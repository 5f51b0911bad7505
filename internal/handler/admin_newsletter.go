package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ListSubscribers handles GET /api/admin/newsletter with optional ?search=
// and ?active=true|false.
func (h *AdminHandler) ListSubscribers(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	subs, err := h.Repos.Newsletter.List(ctx, c.QueryParam("search"), queryBool(c, "active"))
	if err != nil {
		return respondError(c, err)
	}
	stats, err := h.Repos.Newsletter.Stats(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"subscribers": subs, "stats": stats})
}

// UpdateSubscriber handles PATCH /api/admin/newsletter?id= with
// {"isActive": bool}.
func (h *AdminHandler) UpdateSubscriber(c echo.Context) error {
	id, err := queryID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req struct {
		IsActive *bool `json:"isActive"`
	}
	if err := c.Bind(&req); err != nil || req.IsActive == nil {
		return badRequest(c, "isActive is required")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Repos.Newsletter.SetActive(ctx, id, *req.IsActive); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// DeleteSubscriber handles DELETE /api/admin/newsletter?id=. Bulk deletes
// are one request per id.
func (h *AdminHandler) DeleteSubscriber(c echo.Context) error {
	id, err := queryID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Repos.Newsletter.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
