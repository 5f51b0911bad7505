package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/apparel-storefront/internal/model"
	"github.com/iliyamo/apparel-storefront/internal/repository"
)

type categoryStats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	TopLevel int `json:"topLevel"`
}

// ListCategories handles GET /api/admin/categories, or one category with ?id=.
func (h *AdminHandler) ListCategories(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	if c.QueryParam("id") != "" {
		id, err := queryID(c)
		if err != nil {
			return badRequest(c, err.Error())
		}
		cat, err := h.Repos.Categories.GetByID(ctx, id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"category": cat})
	}
	cats, err := h.Repos.Categories.List(ctx, false)
	if err != nil {
		return respondError(c, err)
	}
	var st categoryStats
	for _, cat := range cats {
		st.Total++
		if cat.IsActive {
			st.Active++
		}
		if cat.ParentID == nil {
			st.TopLevel++
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"categories": cats, "stats": st})
}

type categoryReq struct {
	Name        *string          `json:"name"`
	Slug        *string          `json:"slug"`
	Description *string          `json:"description"`
	ImageURL    *string          `json:"imageUrl"`
	ParentID    nullable[uint64] `json:"parentId"`
	SortOrder   *int             `json:"sortOrder"`
	IsActive    *bool            `json:"isActive"`
}

// checkParent allows one level of nesting: the parent must exist, must not
// be the category itself and must not have a parent of its own.
func (h *AdminHandler) checkParent(c echo.Context, self, parentID uint64) error {
	if parentID == self {
		return errors.New("a category cannot be its own parent")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	parent, err := h.Repos.Categories.GetByID(ctx, parentID)
	if errors.Is(err, repository.ErrNotFound) {
		return errors.New("parent category not found")
	}
	if err != nil {
		return err
	}
	if parent.ParentID != nil {
		return errors.New("categories nest one level only")
	}
	return nil
}

// CreateCategory handles POST /api/admin/categories.
func (h *AdminHandler) CreateCategory(c echo.Context) error {
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	name := trimmed(req.Name)
	if name == nil {
		return badRequest(c, "name is required")
	}
	cat := &model.Category{
		Name:        *name,
		Description: trimmed(req.Description),
		ImageURL:    trimmed(req.ImageURL),
		IsActive:    true,
	}
	if s := trimmed(req.Slug); s != nil {
		cat.Slug = model.Slugify(*s)
	}
	if req.SortOrder != nil {
		cat.SortOrder = *req.SortOrder
	}
	if req.IsActive != nil {
		cat.IsActive = *req.IsActive
	}
	if req.ParentID.Value != nil {
		if err := h.checkParent(c, 0, *req.ParentID.Value); err != nil {
			return badRequest(c, err.Error())
		}
		cat.ParentID = req.ParentID.Value
	}
	if model.Slugify(cat.Name) == "" && cat.Slug == "" {
		return badRequest(c, "name must contain letters or digits")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Repos.Categories.Create(ctx, cat); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "category slug already exists"})
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"category": cat})
}

// UpdateCategory handles PUT and PATCH /api/admin/categories?id=. Absent
// fields are left unchanged; "parentId": null moves the category to the top
// level.
func (h *AdminHandler) UpdateCategory(c echo.Context) error {
	id, err := queryID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	var p repository.CategoryPatch
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
	if req.ImageURL != nil {
		u := strings.TrimSpace(*req.ImageURL)
		p.ImageURL = &u
	}
	p.SortOrder = req.SortOrder
	p.IsActive = req.IsActive
	switch {
	case req.ParentID.cleared():
		p.ClearParent = true
	case req.ParentID.Value != nil:
		if err := h.checkParent(c, id, *req.ParentID.Value); err != nil {
			return badRequest(c, err.Error())
		}
		p.ParentID = req.ParentID.Value
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Repos.Categories.Update(ctx, id, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "category slug already exists"})
		}
		return respondError(c, err)
	}
	cat, err := h.Repos.Categories.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"category": cat})
}

// DeleteCategory handles DELETE /api/admin/categories?id=. A category that
// still has products or subcategories is refused with 400.
func (h *AdminHandler) DeleteCategory(c echo.Context) error {
	id, err := queryID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Repos.Categories.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
