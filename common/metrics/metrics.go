package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache lookup results
const (
	CacheHit     = "hit"
	CacheMiss    = "miss"
	CacheExpired = "expired"
)

// Upstream request outcomes
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeFailure  = "failure"
)

// Metrics holds the Prometheus collectors for cache and upstream traffic
type Metrics struct {
	CacheRequests    *prometheus.CounterVec
	UpstreamRequests *prometheus.CounterVec
	UpstreamInflight prometheus.Gauge
	UpstreamDuration prometheus.Histogram
	LimiterWait      prometheus.Histogram
	ChainsResolved   *prometheus.CounterVec
}

// New registers all collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lineage_cache_requests_total",
			Help: "Response cache lookups by result",
		}, []string{"result"}),

		UpstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lineage_upstream_requests_total",
			Help: "Upstream API requests by outcome",
		}, []string{"outcome"}),

		UpstreamInflight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lineage_upstream_inflight",
			Help: "Upstream API requests currently holding a limiter permit",
		}),

		UpstreamDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "lineage_upstream_request_duration_seconds",
			Help:    "Upstream API request latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}),

		LimiterWait: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "lineage_limiter_wait_seconds",
			Help:    "Time spent queued for an upstream permit",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),

		ChainsResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lineage_chains_resolved_total",
			Help: "Asset chain resolutions by result",
		}, []string{"result"}),
	}
}

// NewNop returns collectors bound to a private registry that nobody scrapes
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
