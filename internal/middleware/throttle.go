package middleware

import (
	"math"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trekhub/tour-api/internal/httpx"
	"github.com/trekhub/tour-api/internal/ratelimit"
)

// LoginThrottle is the brute-force guard in front of the login handler. It
// counts attempts per client source address and short-circuits with 429
// once the window is exhausted, before any password comparison can run.
// Infrastructure errors from the limiter fail open with a log line; an
// exhausted window never does.
func LoginThrottle(limiter ratelimit.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if key == "" {
				key = "unknown"
			}

			res, err := limiter.Attempt(c.Request().Context(), key)
			if err != nil {
				c.Logger().Warnf("login throttle unavailable for key=%s: %v", key, err)
				return next(c)
			}

			c.Response().Header().Set("X-RateLimit-Remaining",
				strconv.FormatInt(res.Remaining, 10))
			if !res.Allowed {
				secs := int(math.Ceil(res.RetryAfter.Seconds()))
				if secs < 0 {
					secs = 0
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return httpx.TooManyRequests("too many login attempts, please try again later")
			}
			return next(c)
		}
	}
}
