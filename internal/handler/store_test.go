package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/apparel-storefront/internal/model"
)

func TestStorefrontHidesInactive(t *testing.T) {
	a := newApp(t)
	_, tok := a.account("admin@example.com", model.RoleAdmin)
	men := a.category(tok, "Men")
	rec := a.do(http.MethodPost, "/api/admin/categories", tok, echo.Map{"name": "Archive", "isActive": false})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	black := []echo.Map{{"name": "Black"}}
	a.product(tok, men.ID, echo.Map{"name": "Shirt", "price": 30, "sizes": []string{"M"}, "colors": black, "isFeatured": true})
	a.product(tok, men.ID, echo.Map{"name": "Jacket", "price": 120, "sizes": []string{"M"}, "colors": black})
	hidden := a.product(tok, men.ID, echo.Map{"name": "Old Coat", "price": 90, "sizes": []string{"M"}, "colors": black, "isActive": false})

	rec = a.do(http.MethodGet, "/api/products?sort=price_desc", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[struct {
		Products []model.Product
		Total    int
		Pages    int
	}](t, rec)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.Pages)
	require.Len(t, page.Products, 2)
	assert.Equal(t, "Jacket", page.Products[0].Name)

	rec = a.do(http.MethodGet, "/api/products?featured=true&category=men", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[struct{ Products []model.Product }](t, rec).Products, 1)

	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/products/shirt", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/products/"+hidden.Slug, "", nil).Code)

	rec = a.do(http.MethodGet, "/api/categories", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cats := decode[struct{ Categories []model.Category }](t, rec).Categories
	require.Len(t, cats, 1)
	assert.Equal(t, "men", cats[0].Slug)

	// admin sees everything
	rec = a.do(http.MethodGet, "/api/admin/products", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[struct{ Total int }](t, rec).Total)
}

func TestStorefrontBannersAreLiveOnly(t *testing.T) {
	a := newApp(t)
	_, tok := a.account("admin@example.com", model.RoleAdmin)
	now := a.clock.Now()

	mk := func(body echo.Map) model.Banner {
		body["imageUrl"] = "https://img.example.com/banner.jpg"
		rec := a.do(http.MethodPost, "/api/admin/banners", tok, body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		return decode[struct{ Banner model.Banner }](t, rec).Banner
	}
	live := mk(echo.Map{"title": "Live"})
	mk(echo.Map{"title": "Later", "startDate": now.Add(24 * time.Hour)})
	mk(echo.Map{"title": "Off", "isActive": false})
	mk(echo.Map{"title": "Footer", "position": "footer"})

	rec := a.do(http.MethodPost, "/api/admin/banners", tok, echo.Map{
		"title": "Bad", "imageUrl": "x", "startDate": now, "endDate": now.Add(-time.Hour),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	titles := func() []string {
		rec := a.do(http.MethodGet, "/api/banners?position=hero", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var out []string
		for _, b := range decode[struct{ Banners []model.Banner }](t, rec).Banners {
			out = append(out, b.Title)
		}
		return out
	}
	assert.Equal(t, []string{"Live"}, titles())

	a.clock.Advance(48 * time.Hour)
	assert.ElementsMatch(t, []string{"Live", "Later"}, titles())

	rec = a.do(http.MethodPatch, idURL("/api/admin/banners", live.ID), tok, echo.Map{"endDate": a.clock.Now().Add(-time.Minute)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"Later"}, titles())

	rec = a.do(http.MethodGet, "/api/admin/banners", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[struct {
		Stats struct{ Total, Live, Expired, Inactive int }
	}](t, rec).Stats
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 1, stats.Expired)
	assert.Equal(t, 1, stats.Inactive)
}

func TestNewsletterSubscribe(t *testing.T) {
	a := newApp(t)
	_, tok := a.account("admin@example.com", model.RoleAdmin)

	assert.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/newsletter", "", echo.Map{"email": " Fan@Example.com "}).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/newsletter", "", echo.Map{"email": "fan@example.com"}).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/newsletter", "", echo.Map{"email": "nope"}).Code)

	assert.Equal(t, http.StatusOK, a.do(http.MethodDelete, "/api/newsletter?email=fan@example.com", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodDelete, "/api/newsletter?email=ghost@example.com", "", nil).Code)

	rec := a.do(http.MethodGet, "/api/admin/newsletter?active=false", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	subs := decode[struct {
		Subscribers []model.NewsletterSubscriber
	}](t, rec).Subscribers
	require.Len(t, subs, 1)
	assert.False(t, subs[0].IsActive)

	// resubscribing reactivates
	assert.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/newsletter", "", echo.Map{"email": "fan@example.com"}).Code)
	rec = a.do(http.MethodPatch, idURL("/api/admin/newsletter", subs[0].ID), tok, echo.Map{"isActive": false})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodDelete, idURL("/api/admin/newsletter", subs[0].ID), tok, nil).Code)
}
