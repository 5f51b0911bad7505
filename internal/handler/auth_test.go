package handler_test

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/apparel-storefront/internal/model"
)

type tokens struct {
	User struct {
		ID   uint64
		Role string
	}
	Access  struct{ Token string }
	Refresh struct{ Token string }
}

func TestRegisterLoginRefresh(t *testing.T) {
	a := newApp(t)

	rec := a.do(http.MethodPost, "/api/auth/register", "", echo.Map{"email": "Ada@Example.com", "password": "secret123", "name": "Ada"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decode[tokens](t, rec)
	assert.Equal(t, model.RoleCustomer, reg.User.Role)
	assert.NotEmpty(t, reg.Access.Token)

	assert.Equal(t, http.StatusConflict,
		a.do(http.MethodPost, "/api/auth/register", "", echo.Map{"email": "ada@example.com", "password": "secret123"}).Code)
	assert.Equal(t, http.StatusBadRequest,
		a.do(http.MethodPost, "/api/auth/register", "", echo.Map{"email": "bob@example.com", "password": "x"}).Code)

	assert.Equal(t, http.StatusUnauthorized,
		a.do(http.MethodPost, "/api/auth/login", "", echo.Map{"email": "ada@example.com", "password": "wrong-pass"}).Code)
	rec = a.do(http.MethodPost, "/api/auth/login", "", echo.Map{"email": "ada@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decode[tokens](t, rec)

	rec = a.do(http.MethodGet, "/api/auth/me", login.Access.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ada@example.com", decode[struct{ User model.User }](t, rec).User.Email)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/auth/me", "", nil).Code)

	// rotation revokes the old refresh token
	rec = a.do(http.MethodPost, "/api/auth/refresh", "", echo.Map{"refresh_token": login.Refresh.Token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rotated := decode[tokens](t, rec)
	assert.NotEqual(t, login.Refresh.Token, rotated.Refresh.Token)
	assert.Equal(t, http.StatusUnauthorized,
		a.do(http.MethodPost, "/api/auth/refresh", "", echo.Map{"refresh_token": login.Refresh.Token}).Code)

	assert.Equal(t, http.StatusOK,
		a.do(http.MethodPost, "/api/auth/refresh-access", "", echo.Map{"refresh_token": rotated.Refresh.Token}).Code)

	// logout with a bearer revokes every session
	assert.Equal(t, http.StatusNoContent, a.do(http.MethodPost, "/api/auth/logout", rotated.Access.Token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized,
		a.do(http.MethodPost, "/api/auth/refresh", "", echo.Map{"refresh_token": rotated.Refresh.Token}).Code)
	assert.Equal(t, http.StatusUnauthorized,
		a.do(http.MethodPost, "/api/auth/refresh", "", echo.Map{"refresh_token": reg.Refresh.Token}).Code)
}

func TestDisabledAccountCannotLogIn(t *testing.T) {
	a := newApp(t)
	_, adminTok := a.account("admin@example.com", model.RoleAdmin)
	id, _ := a.account("ada@example.com", model.RoleCustomer)

	rec := a.do(http.MethodPatch, idURL("/api/admin/users", id), adminTok, echo.Map{"isActive": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = a.do(http.MethodPost, "/api/auth/login", "", echo.Map{"email": "ada@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
