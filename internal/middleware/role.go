package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// RequireRole checks the role claim placed in the context by JWTAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxRole).(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// RoleLookup returns the stored role and active flag of a user.
type RoleLookup interface {
	RoleOf(ctx context.Context, userID uint64) (role string, active bool, err error)
}

// RequireRoleFromDB is the admin gate. Unlike RequireRole it ignores the
// token's role claim and reads the role from the database on every
// request, so a demotion or deactivation takes effect at once. isUnknown
// recognises the lookup's not-found error, answered with 401.
// Must run after JWTAuth.
func RequireRoleFromDB(users RoleLookup, isUnknown func(error) bool, roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid, ok := c.Get(CtxUserID).(uint64)
			if !ok || uid == 0 {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			role, active, err := users.RoleOf(c.Request().Context(), uid)
			switch {
			case err != nil && isUnknown(err):
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			case err != nil:
				zerolog.Ctx(c.Request().Context()).Error().Err(err).Uint64("user_id", uid).Msg("role lookup failed")
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
			case !active || !allowed[role]:
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			c.Set(CtxRole, role)
			return next(c)
		}
	}
}
