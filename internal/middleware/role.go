package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/trekhub/tour-api/internal/httpx"
)

// RestrictTo limits a route to the given roles. It must run after Protect;
// without a resolved user the request is rejected. The check is pure
// authorization, no I/O.
func RestrictTo(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := CurrentUser(c)
			if u == nil {
				return httpx.Unauthorized(msgUnauthorized)
			}
			if !allowed[u.Role] {
				return httpx.Forbidden("you do not have permission to perform this action")
			}
			return next(c)
		}
	}
}
