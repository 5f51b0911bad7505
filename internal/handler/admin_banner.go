package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/apparel-storefront/internal/model"
	"github.com/iliyamo/apparel-storefront/internal/repository"
)

const defaultBannerPosition = "hero"

type bannerReq struct {
	Title      *string             `json:"title"`
	Subtitle   *string             `json:"subtitle"`
	ImageURL   *string             `json:"imageUrl"`
	LinkURL    *string             `json:"linkUrl"`
	ButtonText *string             `json:"buttonText"`
	Position   *string             `json:"position"`
	SortOrder  *int                `json:"sortOrder"`
	IsActive   *bool               `json:"isActive"`
	StartDate  nullable[time.Time] `json:"startDate"`
	EndDate    nullable[time.Time] `json:"endDate"`
}

func validWindow(start, end *time.Time) error {
	if start != nil && end != nil && !end.After(*start) {
		return errors.New("endDate must be after startDate")
	}
	return nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

type bannerStats struct {
	Total     int `json:"total"`
	Live      int `json:"live"`
	Scheduled int `json:"scheduled"`
	Expired   int `json:"expired"`
	Inactive  int `json:"inactive"`
}

// ListBanners handles GET /api/admin/banners with an optional ?position=.
func (h *AdminHandler) ListBanners(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	now := h.now()
	if c.QueryParam("id") != "" {
		id, err := queryID(c)
		if err != nil {
			return badRequest(c, err.Error())
		}
		b, err := h.Repos.Banners.GetByID(ctx, id)
		if err != nil {
			return respondError(c, err)
		}
		b.Status = b.ComputeStatus(now)
		return c.JSON(http.StatusOK, echo.Map{"banner": b})
	}
	banners, err := h.Repos.Banners.List(ctx, c.QueryParam("position"))
	if err != nil {
		return respondError(c, err)
	}
	var st bannerStats
	for i := range banners {
		banners[i].Status = banners[i].ComputeStatus(now)
		st.Total++
		switch banners[i].Status {
		case model.BannerLive:
			st.Live++
		case model.BannerScheduled:
			st.Scheduled++
		case model.BannerExpired:
			st.Expired++
		default:
			st.Inactive++
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"banners": banners, "stats": st})
}

// CreateBanner handles POST /api/admin/banners.
func (h *AdminHandler) CreateBanner(c echo.Context) error {
	var req bannerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	title, img := trimmed(req.Title), trimmed(req.ImageURL)
	if title == nil || img == nil {
		return badRequest(c, "title and imageUrl are required")
	}
	b := &model.Banner{
		Title:      *title,
		Subtitle:   trimmed(req.Subtitle),
		ImageURL:   *img,
		LinkURL:    trimmed(req.LinkURL),
		ButtonText: trimmed(req.ButtonText),
		Position:   defaultBannerPosition,
		IsActive:   true,
		StartDate:  utc(req.StartDate.Value),
		EndDate:    utc(req.EndDate.Value),
	}
	if p := trimmed(req.Position); p != nil {
		b.Position = strings.ToLower(*p)
	}
	if req.SortOrder != nil {
		b.SortOrder = *req.SortOrder
	}
	setBool(&b.IsActive, req.IsActive)
	if err := validWindow(b.StartDate, b.EndDate); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Repos.Banners.Create(ctx, b); err != nil {
		return respondError(c, err)
	}
	b.Status = b.ComputeStatus(h.now())
	return c.JSON(http.StatusCreated, echo.Map{"banner": b})
}

// UpdateBanner handles PATCH /api/admin/banners?id=. null opens either end
// of the display window.
func (h *AdminHandler) UpdateBanner(c echo.Context) error {
	id, err := queryID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req bannerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	cur, err := h.Repos.Banners.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}

	p := repository.BannerPatch{
		Subtitle:   req.Subtitle,
		LinkURL:    req.LinkURL,
		ButtonText: req.ButtonText,
		SortOrder:  req.SortOrder,
		IsActive:   req.IsActive,
	}
	if req.Title != nil {
		if p.Title = trimmed(req.Title); p.Title == nil {
			return badRequest(c, "title cannot be empty")
		}
	}
	if req.ImageURL != nil {
		if p.ImageURL = trimmed(req.ImageURL); p.ImageURL == nil {
			return badRequest(c, "imageUrl cannot be empty")
		}
	}
	if req.Position != nil {
		pos := strings.ToLower(strings.TrimSpace(*req.Position))
		if pos == "" {
			pos = defaultBannerPosition
		}
		p.Position = &pos
	}
	start, end := cur.StartDate, cur.EndDate
	if req.StartDate.Set {
		start, p.StartDate, p.ClearStartDate = utc(req.StartDate.Value), utc(req.StartDate.Value), req.StartDate.cleared()
	}
	if req.EndDate.Set {
		end, p.EndDate, p.ClearEndDate = utc(req.EndDate.Value), utc(req.EndDate.Value), req.EndDate.cleared()
	}
	if err := validWindow(start, end); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.Repos.Banners.Update(ctx, id, p); err != nil {
		return respondError(c, err)
	}
	b, err := h.Repos.Banners.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	b.Status = b.ComputeStatus(h.now())
	return c.JSON(http.StatusOK, echo.Map{"banner": b})
}

// DeleteBanner handles DELETE /api/admin/banners?id=.
func (h *AdminHandler) DeleteBanner(c echo.Context) error {
	id, err := queryID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Repos.Banners.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
