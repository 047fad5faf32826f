package middlewares

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/memeswipe/internal/model"
	"github.com/mdouchement/memeswipe/internal/ratelimit"
)

// RateLimit throttles the current user's requests. A nil limiter disables it.
func RateLimit(limiter *ratelimit.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if limiter == nil {
			return next
		}

		return func(c echo.Context) error {
			key := c.RealIP()
			if user, ok := c.Get(CurrentUserContextKey).(*model.User); ok {
				key = user.ID
			}

			if !limiter.Allow(key) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests, slow down.")
			}
			return next(c)
		}
	}
}
