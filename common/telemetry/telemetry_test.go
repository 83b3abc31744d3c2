package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lyzr/lineage/common/logger"
	"github.com/lyzr/lineage/common/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandler_ExposesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.CacheRequests.WithLabelValues(metrics.CacheHit).Inc()

	tel := New(0, 0, reg, logger.Discard())
	srv := httptest.NewServer(tel.MetricsHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `lineage_cache_requests_total{result="hit"} 1`)
}

func TestStartStop_DisabledEndpoints(t *testing.T) {
	tel := New(0, 0, prometheus.NewRegistry(), logger.Discard())

	require.NoError(t, tel.Start(context.Background()))
	assert.Empty(t, tel.servers)
	assert.NoError(t, tel.Stop(context.Background()))
}
