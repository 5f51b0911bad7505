package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/apparel-storefront/internal/middleware"
	"github.com/iliyamo/apparel-storefront/internal/model"
	"github.com/iliyamo/apparel-storefront/internal/repository"
)

// Repos bundles the repositories the handlers read and write.
type Repos struct {
	Users      *repository.UserRepo
	Tokens     *repository.TokenRepo
	Categories *repository.CategoryRepo
	Products   *repository.ProductRepo
	Orders     *repository.OrderRepo
	Payments   *repository.PaymentRepo
	Coupons    *repository.CouponRepo
	Banners    *repository.BannerRepo
	Reviews    *repository.ReviewRepo
	Newsletter *repository.NewsletterRepo
	Addresses  *repository.AddressRepo
}

// NewRepos builds every repository over one connection pool.
func NewRepos(db *sql.DB) Repos {
	return Repos{
		Users:      repository.NewUserRepo(db),
		Tokens:     repository.NewTokenRepo(db),
		Categories: repository.NewCategoryRepo(db),
		Products:   repository.NewProductRepo(db),
		Orders:     repository.NewOrderRepo(db),
		Payments:   repository.NewPaymentRepo(db),
		Coupons:    repository.NewCouponRepo(db),
		Banners:    repository.NewBannerRepo(db),
		Reviews:    repository.NewReviewRepo(db),
		Newsletter: repository.NewNewsletterRepo(db),
		Addresses:  repository.NewAddressRepo(db),
	}
}

const dbTimeout = 5 * time.Second

// dbCtx bounds the database work of one request.
func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// getUserID returns the authenticated user id set by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	if id, ok := c.Get(middleware.CtxUserID).(uint64); ok && id != 0 {
		return id, nil
	}
	return 0, errors.New("invalid user_id in context")
}

var errMissingID = errors.New("id query parameter is required")

// queryID reads the ?id= parameter used by the admin and address endpoints.
func queryID(c echo.Context) (uint64, error) {
	raw := strings.TrimSpace(c.QueryParam("id"))
	if raw == "" {
		return 0, errMissingID
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

// respondError turns a repository or model error into the JSON error
// response. Anything unrecognised is logged and answered with a generic 500.
func respondError(c echo.Context, err error) error {
	var inUse *repository.InUseError
	switch {
	case errors.As(err, &inUse):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": inUse.Error()})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrDuplicate):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already exists"})
	case errors.Is(err, repository.ErrEmailExists),
		errors.Is(err, repository.ErrInsufficientStock),
		errors.Is(err, repository.ErrConflict),
		errors.Is(err, model.ErrAlreadyRefunded):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrOrderNotDeletable),
		errors.Is(err, repository.ErrEmptyCart),
		errors.Is(err, repository.ErrQuantityTooLarge),
		errors.Is(err, model.ErrInvalidRefundAmount),
		errors.Is(err, model.ErrCouponNotActive),
		errors.Is(err, model.ErrCouponMinPurchase),
		errors.Is(err, model.ErrVariantSKUCollision):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	zerolog.Ctx(c.Request().Context()).Error().Err(err).
		Str("method", c.Request().Method).Str("path", c.Path()).Msg("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}

// nullable distinguishes an absent JSON field from an explicit null, so a
// PATCH can clear optional columns.
type nullable[T any] struct {
	Set   bool
	Value *T
}

func (n *nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// cleared reports an explicit null.
func (n nullable[T]) cleared() bool { return n.Set && n.Value == nil }

// trimmed returns nil for blank strings.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func setBool(dst, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func queryBool(c echo.Context, name string) *bool {
	switch strings.ToLower(c.QueryParam(name)) {
	case "1", "true", "yes":
		v := true
		return &v
	case "0", "false", "no":
		v := false
		return &v
	}
	return nil
}

func queryInt(c echo.Context, name string, d int) int {
	if n, err := strconv.Atoi(c.QueryParam(name)); err == nil {
		return n
	}
	return d
}
