package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/lyzr/lineage/common/clients"
	"github.com/lyzr/lineage/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestTrace_MintsID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/leagues/1/timeline", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen string
	h := RequestTrace()(func(c echo.Context) error {
		traceID, ok := logger.TraceID(c.Request().Context())
		require.True(t, ok)
		requestID, ok := clients.GetRequestID(c.Request().Context())
		require.True(t, ok)
		assert.Equal(t, traceID, requestID)
		seen = traceID
		return c.NoContent(http.StatusOK)
	})

	require.NoError(t, h(c))
	_, err := uuid.Parse(seen)
	assert.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
}

func TestRequestTrace_ReusesCallerID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := RequestTrace()(func(c echo.Context) error {
		traceID, _ := logger.TraceID(c.Request().Context())
		assert.Equal(t, "abc-123", traceID)
		return nil
	})

	require.NoError(t, h(c))
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestRequestTimeout_SetsDeadline(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	h := RequestTimeout(time.Minute)(func(c echo.Context) error {
		deadline, ok := c.Request().Context().Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
		return nil
	})
	require.NoError(t, h(c))

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	h = RequestTimeout(0)(func(c echo.Context) error {
		_, ok := c.Request().Context().Deadline()
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, h(c))
}
