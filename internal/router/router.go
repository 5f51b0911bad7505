// Package router wires handlers and middleware onto an echo instance.
package router

import (
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/apparel-storefront/internal/config"
	"github.com/iliyamo/apparel-storefront/internal/handler"
	"github.com/iliyamo/apparel-storefront/internal/metrics"
	"github.com/iliyamo/apparel-storefront/internal/middleware"
	"github.com/iliyamo/apparel-storefront/internal/model"
	"github.com/iliyamo/apparel-storefront/internal/repository"
	"github.com/iliyamo/apparel-storefront/internal/service"
)

// Deps is everything the HTTP layer needs. Redis may be nil; Events
// defaults to a no-op publisher.
type Deps struct {
	Cfg       config.Config
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	DB        *sql.DB
	Redis     *redis.Client
	Events    service.Publisher
	Logger    zerolog.Logger
}

// New builds the echo instance with global middleware and every route.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(d.Logger))
	e.Use(middleware.Metrics())
	e.Use(middleware.NewTokenBucket(d.RateLimit, d.Redis))

	repos := handler.NewRepos(d.DB)
	health := &handler.HealthHandler{DB: d.DB, Redis: d.Redis}
	e.GET("/health", health.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	RegisterAuth(e, handler.NewAuthHandler(d.Cfg, repos.Users, repos.Tokens), d.Cfg.JWTSecret)
	RegisterStore(e, handler.NewStoreHandler(repos), middleware.NewRedisCache(d.Cache, d.Redis))
	purge := middleware.PurgeOnWrite(middleware.NewCachePurger(d.Cache, d.Redis))
	RegisterUser(e, handler.NewUserHandler(d.Cfg, repos, d.Events), d.Cfg.JWTSecret, purge)
	RegisterAdmin(e, handler.NewAdminHandler(d.Cfg, repos, d.Events), repos.Users, d.Cfg.JWTSecret, purge)
	return e
}

// RegisterAuth registers account routes under /api/auth. Only /me needs a
// token; logout accepts either a refresh token or a bearer.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/api/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)
	g.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterStore registers the guest-facing catalog. GET responses go
// through the response cache.
func RegisterStore(e *echo.Echo, s *handler.StoreHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/api", cache)
	g.GET("/products", s.ListProducts)
	g.GET("/products/:slug", s.GetProduct)
	g.GET("/products/:slug/reviews", s.ListProductReviews)
	g.GET("/categories", s.ListCategories)
	g.GET("/banners", s.ListBanners)
	g.POST("/coupons/validate", s.ValidateCoupon)
	g.POST("/newsletter", s.Subscribe)
	g.DELETE("/newsletter", s.Unsubscribe)
}

// RegisterUser registers the signed-in customer's routes. Any active
// account may use them, admins included.
func RegisterUser(e *echo.Echo, u *handler.UserHandler, jwtSecret string, purge echo.MiddlewareFunc) {
	auth := middleware.JWTAuth(jwtSecret)
	roles := middleware.RequireRole(model.RoleCustomer, model.RoleAdmin)

	g := e.Group("/api/user", auth, roles)
	g.GET("/addresses", u.ListAddresses)
	g.POST("/addresses", u.CreateAddress)
	g.PUT("/addresses", u.UpdateAddress)
	g.PATCH("/addresses", u.SetDefaultAddress)
	g.DELETE("/addresses", u.DeleteAddress)
	g.GET("/orders", u.ListOrders)

	// checkout changes stock, so the cached catalog is dropped
	e.POST("/api/checkout", u.Checkout, auth, roles, purge)
	e.POST("/api/products/reviews", u.CreateReview, auth, roles)
}

// RegisterAdmin registers the back-office under /api/admin. The role is
// re-read from the database on each request; successful writes purge the
// storefront cache.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, users middleware.RoleLookup, jwtSecret string, purge echo.MiddlewareFunc) {
	g := e.Group("/api/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRoleFromDB(users, isNotFound, model.RoleAdmin),
		purge,
	)

	g.GET("/categories", h.ListCategories)
	g.POST("/categories", h.CreateCategory)
	g.PUT("/categories", h.UpdateCategory)
	g.PATCH("/categories", h.UpdateCategory)
	g.DELETE("/categories", h.DeleteCategory)

	g.GET("/products", h.ListProducts)
	g.POST("/products", h.CreateProduct)
	g.PATCH("/products", h.UpdateProduct)
	g.DELETE("/products", h.DeleteProduct)

	g.GET("/orders", h.ListOrders)
	g.PATCH("/orders", h.UpdateOrder)
	g.DELETE("/orders", h.DeleteOrder)

	g.GET("/payments", h.ListPayments)
	g.PATCH("/payments", h.UpdatePayment)

	g.GET("/coupons", h.ListCoupons)
	g.POST("/coupons", h.CreateCoupon)
	g.PATCH("/coupons", h.UpdateCoupon)
	g.DELETE("/coupons", h.DeleteCoupon)

	g.GET("/banners", h.ListBanners)
	g.POST("/banners", h.CreateBanner)
	g.PATCH("/banners", h.UpdateBanner)
	g.DELETE("/banners", h.DeleteBanner)

	g.GET("/reviews", h.ListReviews)
	g.PATCH("/reviews", h.UpdateReview)
	g.DELETE("/reviews", h.DeleteReview)

	g.GET("/newsletter", h.ListSubscribers)
	g.PATCH("/newsletter", h.UpdateSubscriber)
	g.DELETE("/newsletter", h.DeleteSubscriber)

	g.GET("/users", h.ListUsers)
	g.PATCH("/users", h.UpdateUser)
	g.DELETE("/users", h.DeleteUser)
}

func isNotFound(err error) bool { return errors.Is(err, repository.ErrNotFound) }
