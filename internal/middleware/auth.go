// Package middleware implements the request-pipeline stages that run in
// front of handlers: session verification, role checks and the brute-force
// login guard. Each stage either passes control on or short-circuits with
// an operational error for the central translator.
package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trekhub/tour-api/internal/httpx"
	"github.com/trekhub/tour-api/internal/model"
	"github.com/trekhub/tour-api/internal/token"
)

// userContextKey is where Protect stores the resolved *model.User.
const userContextKey = "auth_user"

// msgUnauthorized is the single message for every authentication failure.
// Missing header, malformed token, expired token, deleted account and
// stale-after-password-change all look identical to the client.
const msgUnauthorized = "you are not logged in or your session is no longer valid"

// UserFinder is the slice of the user store Protect needs.
type UserFinder interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// Protect verifies the bearer credential and attaches the resolved user to
// the request context. Verification fails closed: the token must parse and
// validate, the subject must still exist and be active, and the token must
// have been issued after the last password change.
func Protect(secret string, users UserFinder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return httpx.Unauthorized(msgUnauthorized)
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims, err := token.Verify(secret, raw)
			if err != nil {
				return httpx.Unauthorized(msgUnauthorized)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			u, err := users.GetByID(ctx, claims.UserID)
			if err != nil {
				return httpx.Unauthorized(msgUnauthorized)
			}
			if !u.Active {
				return httpx.Unauthorized(msgUnauthorized)
			}
			if u.PasswordChangedAfter(claims.IssuedAt) {
				return httpx.Unauthorized(msgUnauthorized)
			}

			c.Set(userContextKey, u)
			return next(c)
		}
	}
}

// CurrentUser returns the user Protect attached to the context, or nil when
// the route is not protected.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(userContextKey).(*model.User)
	return u
}

// SetCurrentUser attaches a resolved user to the context the way Protect
// does. Useful for handler tests and internal request synthesis.
func SetCurrentUser(c echo.Context, u *model.User) {
	c.Set(userContextKey, u)
}
