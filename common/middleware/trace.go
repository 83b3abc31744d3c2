package middleware

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/lyzr/lineage/common/clients"
	"github.com/lyzr/lineage/common/logger"
)

// RequestIDHeader carries the trace id in and out of the API
const RequestIDHeader = echo.HeaderXRequestID

// RequestTrace reuses the caller's X-Request-ID or mints a uuid, echoes it on
// the response and stores it on the request context for logs and upstream calls.
func RequestTrace() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			traceID := req.Header.Get(RequestIDHeader)
			if traceID == "" {
				traceID = uuid.NewString()
			}
			c.Response().Header().Set(RequestIDHeader, traceID)

			ctx := logger.WithTraceID(req.Context(), traceID)
			ctx = clients.WithRequestID(ctx, traceID)
			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}

// RequestTimeout bounds each request. Cancelling the context aborts every
// upstream fetch the request started and frees their permits.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if timeout <= 0 {
				return next(c)
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()

			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// RequestLogger logs one line per request with its trace id
func RequestLogger(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			log.WithContext(c.Request().Context()).Info("request",
				"method", c.Request().Method,
				"path", c.Path(),
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return nil
		}
	}
}
