package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/lineage/common/fetch"
	"github.com/lyzr/lineage/common/lineage"
)

// statusFor maps the engine's error taxonomy onto HTTP
func statusFor(err error) (int, string) {
	var upstreamErr *fetch.UpstreamError

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "request_cancelled"
	case errors.Is(err, lineage.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, lineage.ErrInvalidAsset), errors.Is(err, lineage.ErrInvalidRoster):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, lineage.ErrRecursionLimitExceeded):
		return http.StatusUnprocessableEntity, "recursion_limit_exceeded"
	case lineage.IsInconsistentData(err):
		return http.StatusUnprocessableEntity, "inconsistent_data"
	case errors.As(err, &upstreamErr):
		return http.StatusBadGateway, "upstream_failure"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func errorJSON(c echo.Context, err error) error {
	status, code := statusFor(err)
	return c.JSON(status, map[string]interface{}{
		"error":   code,
		"message": err.Error(),
	})
}
