package middleware_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/apparel-storefront/internal/config"
	"github.com/iliyamo/apparel-storefront/internal/metrics"
	"github.com/iliyamo/apparel-storefront/internal/middleware"
	"github.com/iliyamo/apparel-storefront/internal/utils"
)

const secret = "mw-secret"

func ok(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func serve(e *echo.Echo, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, uid uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, uid, role, 5)
	require.NoError(t, err)
	return tok.Token
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"id": c.Get(middleware.CtxUserID), "role": c.Get(middleware.CtxRole)})
	}, middleware.JWTAuth(secret))

	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", "not-a-jwt").Code)

	other, err := utils.NewAccessToken("other-secret", 7, "CUSTOMER", 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", other.Token).Code)

	rec := serve(e, http.MethodGet, "/me", token(t, 7, "CUSTOMER"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7,"role":"CUSTOMER"}`, rec.Body.String())
}

type fakeUsers map[uint64]struct {
	role   string
	active bool
}

var errNoUser = errors.New("no such user")

func (f fakeUsers) RoleOf(_ context.Context, id uint64) (string, bool, error) {
	u, ok := f[id]
	if !ok {
		return "", false, errNoUser
	}
	return u.role, u.active, nil
}

func TestRequireRoleFromDB(t *testing.T) {
	users := fakeUsers{
		1: {"ADMIN", true},
		2: {"CUSTOMER", true},
		3: {"ADMIN", false},
	}
	e := echo.New()
	e.GET("/admin", ok,
		middleware.JWTAuth(secret),
		middleware.RequireRoleFromDB(users, func(err error) bool { return errors.Is(err, errNoUser) }, "ADMIN"))

	cases := []struct {
		name string
		uid  uint64
		role string
		want int
	}{
		{"admin", 1, "ADMIN", http.StatusOK},
		{"claim ignored", 2, "ADMIN", http.StatusForbidden},
		{"stale customer claim", 1, "CUSTOMER", http.StatusOK},
		{"inactive", 3, "ADMIN", http.StatusForbidden},
		{"deleted", 9, "ADMIN", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, serve(e, http.MethodGet, "/admin", token(t, tc.uid, tc.role)).Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/u", ok, middleware.JWTAuth(secret), middleware.RequireRole("CUSTOMER", "ADMIN"))
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/u", token(t, 1, "CUSTOMER")).Code)
	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodGet, "/u", token(t, 1, "OWNER")).Code)
}

func TestMemoryTokenBucket(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Hour,
		Prefix:         "test:rl",
	}
	e := echo.New()
	e.Use(middleware.NewTokenBucket(cfg, nil))
	e.GET("/p", ok)
	e.GET("/q", ok)

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/p", "").Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/p", "").Code)
	rec := serve(e, http.MethodGet, "/p", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")

	// buckets are per route
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/q", "").Code)

	cfg.Enabled = false
	off := echo.New()
	off.Use(middleware.NewTokenBucket(cfg, nil))
	off.GET("/p", ok)
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(off, http.MethodGet, "/p", "").Code)
	}
}

func TestCacheWithoutRedisIsPassthrough(t *testing.T) {
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{http.MethodGet: true}, TTL: time.Minute, Prefix: "test:cache"}
	e := echo.New()
	e.Use(middleware.NewRedisCache(cfg, nil))
	e.POST("/p", ok, middleware.PurgeOnWrite(middleware.NewCachePurger(cfg, nil)))
	e.GET("/p", ok)

	rec := serve(e, http.MethodGet, "/p", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/p", "").Code)
	assert.NoError(t, middleware.NewCachePurger(cfg, nil).Purge(context.Background()))
}

func TestRequestLoggerAndMetrics(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(middleware.RequestLogger(zerolog.New(&buf)), middleware.Metrics())
	e.GET("/items/:id", func(c echo.Context) error {
		zerolog.Ctx(c.Request().Context()).Info().Msg("inside")
		return echo.NewHTTPError(http.StatusTeapot)
	})

	before := testutil.ToFloat64(metrics.RequestTotal.WithLabelValues(http.MethodGet, "/items/:id", "418"))
	req := httptest.NewRequest(http.MethodGet, "/items/42", nil)
	req.Header.Set(echo.HeaderXRequestID, "rid-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	out := buf.String()
	assert.Contains(t, out, `"message":"inside"`)
	assert.Contains(t, out, `"request_id":"rid-1"`)
	assert.Contains(t, out, `"route":"/items/:id"`)
	assert.Contains(t, out, `"status":418`)
	assert.Contains(t, out, `"level":"warn"`)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.RequestTotal.WithLabelValues(http.MethodGet, "/items/:id", "418")))
}
