package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/apparel-storefront/internal/model"
	"github.com/iliyamo/apparel-storefront/internal/repository"
)

// ListUsers handles GET /api/admin/users with optional ?search= and ?role=.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	if c.QueryParam("id") != "" {
		id, err := queryID(c)
		if err != nil {
			return badRequest(c, err.Error())
		}
		u, err := h.Repos.Users.GetByID(ctx, id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"user": u})
	}
	f := repository.UserFilter{Search: c.QueryParam("search")}
	if r := strings.ToUpper(c.QueryParam("role")); r != "" && r != "ALL" {
		if !model.ValidRole(r) {
			return badRequest(c, "unknown role")
		}
		f.Role = r
	}
	users, err := h.Repos.Users.List(ctx, f)
	if err != nil {
		return respondError(c, err)
	}
	stats, err := h.Repos.Users.Stats(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users, "stats": stats})
}

type userPatchReq struct {
	Name     *string `json:"name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
}

// UpdateUser handles PATCH /api/admin/users?id=. Admins cannot demote or
// deactivate themselves.
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	id, err := queryID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	self, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req userPatchReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	p := repository.UserPatch{IsActive: req.IsActive}
	if req.Name != nil {
		n := strings.TrimSpace(*req.Name)
		p.Name = &n
	}
	if req.Role != nil {
		r := strings.ToUpper(strings.TrimSpace(*req.Role))
		if !model.ValidRole(r) {
			return badRequest(c, "role must be CUSTOMER or ADMIN")
		}
		p.Role = &r
	}
	if id == self && ((p.Role != nil && *p.Role != model.RoleAdmin) || (p.IsActive != nil && !*p.IsActive)) {
		return badRequest(c, "you cannot demote or deactivate your own account")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Repos.Users.Update(ctx, id, p); err != nil {
		return respondError(c, err)
	}
	if p.IsActive != nil && !*p.IsActive {
		if err := h.Repos.Tokens.RevokeAllForUser(ctx, id); err != nil {
			return respondError(c, err)
		}
	}
	u, err := h.Repos.Users.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

// DeleteUser handles DELETE /api/admin/users?id=. Users with orders are kept
// for the order history; admins cannot delete themselves.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, err := queryID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	self, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	if id == self {
		return badRequest(c, "you cannot delete your own account")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Repos.Users.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
