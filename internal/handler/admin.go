package handler

import (
	"time"

	"github.com/iliyamo/apparel-storefront/internal/config"
	"github.com/iliyamo/apparel-storefront/internal/service"
)

// AdminHandler serves the back-office endpoints under /api/admin. Every
// route is gated by RequireRoleFromDB; resources are addressed with ?id=.
type AdminHandler struct {
	Cfg    config.Config
	Repos  Repos
	Events service.Publisher
	Now    func() time.Time
}

// NewAdminHandler constructs an AdminHandler and panics if a repository is
// missing.
func NewAdminHandler(cfg config.Config, repos Repos, events service.Publisher) *AdminHandler {
	if repos.Users == nil || repos.Categories == nil || repos.Products == nil || repos.Orders == nil ||
		repos.Payments == nil || repos.Coupons == nil || repos.Banners == nil || repos.Reviews == nil ||
		repos.Newsletter == nil || repos.Tokens == nil {
		panic("nil repository passed to NewAdminHandler")
	}
	if events == nil {
		events = service.NopPublisher{}
	}
	return &AdminHandler{Cfg: cfg, Repos: repos, Events: events, Now: time.Now}
}

func (h *AdminHandler) now() time.Time { return h.Now().UTC() }
