package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/lineage/common/ratelimit"
)

// ClientRateLimitMiddleware throttles each client IP with a fixed window.
// Health checks are never throttled.
func ClientRateLimitMiddleware(rateLimiter *ratelimit.RateLimiter, limit int64, windowSec int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Path() == "/health" {
				return next(c)
			}

			result, err := rateLimiter.CheckClientLimit(c.Request().Context(), c.RealIP(), limit, windowSec)
			if err != nil {
				// On error, allow request (fail open for availability)
				return next(c)
			}

			if !result.Allowed {
				c.Response().Header().Set("Retry-After", strconv.FormatInt(result.RetryAfterSeconds, 10))
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":   "rate_limit_exceeded",
					"message": "Too many lineage requests. Please try again later.",
					"details": map[string]interface{}{
						"limit":               result.Limit,
						"window_seconds":      windowSec,
						"retry_after_seconds": result.RetryAfterSeconds,
					},
				})
			}

			return next(c)
		}
	}
}
