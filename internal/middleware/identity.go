package middleware

// identity.go exposes the caller identity stored by JWTAuth.  Unauthenticated
// requests yield an empty username, and the rate limiter keys them as
// "anon".

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/railway-reservation/internal/model"
)

// UserID returns the authenticated username, or "" when there is none.
func UserID(c echo.Context) string {
	if v, ok := c.Get(ctxUserID).(string); ok {
		return v
	}
	return ""
}

// Role returns the authenticated role, or "" when there is none.
func Role(c echo.Context) string {
	if v, ok := c.Get(ctxRole).(string); ok {
		return v
	}
	return ""
}

// IsAdmin reports whether the caller holds the ADMIN role.
func IsAdmin(c echo.Context) bool {
	return Role(c) == string(model.RoleAdmin)
}
