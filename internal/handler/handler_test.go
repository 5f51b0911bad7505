package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/apparel-storefront/internal/config"
	"github.com/iliyamo/apparel-storefront/internal/handler"
	"github.com/iliyamo/apparel-storefront/internal/model"
	"github.com/iliyamo/apparel-storefront/internal/router"
	"github.com/iliyamo/apparel-storefront/internal/service"
	"github.com/iliyamo/apparel-storefront/internal/testutil"
	"github.com/iliyamo/apparel-storefront/internal/utils"
)

const testSecret = "test-secret"

func noop(next echo.HandlerFunc) echo.HandlerFunc { return next }

// clock is a settable time source shared by every handler of an app.
type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type app struct {
	t     *testing.T
	e     *echo.Echo
	db    *sql.DB
	repos handler.Repos
	clock *clock

	// purges counts successful writes that reached the user purge hook.
	purges int
}

func newApp(t *testing.T) *app {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := config.Config{
		Env:                   "test",
		JWTSecret:             testSecret,
		AccessTTLMin:          15,
		RefreshTTLDays:        7,
		BcryptCost:            bcrypt.MinCost,
		LowStockThreshold:     5,
		FreeShippingThreshold: decimal.NewFromInt(100),
		ShippingFlatRate:      decimal.RequireFromString("9.99"),
		TaxRate:               decimal.Zero,
	}
	clk := &clock{t: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
	repos := handler.NewRepos(db)

	admin := handler.NewAdminHandler(cfg, repos, service.NopPublisher{})
	admin.Now = clk.Now
	user := handler.NewUserHandler(cfg, repos, nil)
	user.Now = clk.Now
	store := handler.NewStoreHandler(repos)
	store.Now = clk.Now

	e := echo.New()
	a := &app{t: t, e: e, db: db, repos: repos, clock: clk}
	countPurge := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil && c.Response().Status < 400 {
				a.purges++
			}
			return err
		}
	}
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, repos.Users, repos.Tokens), testSecret)
	router.RegisterStore(e, store, noop)
	router.RegisterUser(e, user, testSecret, countPurge)
	router.RegisterAdmin(e, admin, repos.Users, testSecret, noop)
	return a
}

// account creates a user with role and returns its id and a bearer token.
func (a *app) account(email, role string) (uint64, string) {
	a.t.Helper()
	id, err := a.repos.Users.Create(context.Background(), email, "secret123", nil, role, bcrypt.MinCost)
	require.NoError(a.t, err)
	tok, err := utils.NewAccessToken(testSecret, id, role, 15)
	require.NoError(a.t, err)
	return id, tok.Token
}

func (a *app) do(method, target, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *app) category(token, name string) model.Category {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/admin/categories", token, echo.Map{"name": name})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[struct{ Category model.Category }](a.t, rec).Category
}

func (a *app) product(token string, categoryID uint64, body echo.Map) model.Product {
	a.t.Helper()
	body["categoryId"] = categoryID
	rec := a.do(http.MethodPost, "/api/admin/products", token, body)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[struct{ Product model.Product }](a.t, rec).Product
}

func (a *app) address(token string, body echo.Map) model.Address {
	a.t.Helper()
	base := echo.Map{"fullName": "Ada Lovelace", "line1": "1 Loom Street", "city": "London", "postalCode": "N1 9GU", "country": "gb"}
	for k, v := range body {
		base[k] = v
	}
	rec := a.do(http.MethodPost, "/api/user/addresses", token, base)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[struct{ Address model.Address }](a.t, rec).Address
}

func idURL(path string, id uint64) string { return fmt.Sprintf("%s?id=%d", path, id) }
