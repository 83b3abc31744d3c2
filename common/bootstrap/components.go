package bootstrap

import (
	"context"
	"fmt"

	"github.com/lyzr/lineage/common/cache"
	"github.com/lyzr/lineage/common/config"
	"github.com/lyzr/lineage/common/db"
	"github.com/lyzr/lineage/common/fetch"
	"github.com/lyzr/lineage/common/lineage"
	"github.com/lyzr/lineage/common/logger"
	"github.com/lyzr/lineage/common/metrics"
	"github.com/lyzr/lineage/common/ratelimit"
	rediscommon "github.com/lyzr/lineage/common/redis"
	"github.com/lyzr/lineage/common/telemetry"
	"github.com/prometheus/client_golang/prometheus"
)

// Components holds all initialized service dependencies
type Components struct {
	Config    *config.Config
	Logger    *logger.Logger
	Registry  *prometheus.Registry
	Metrics   *metrics.Metrics
	DB        *db.DB
	Redis     *rediscommon.Client
	Cache     *cache.Cache
	Pool      *ratelimit.Pool
	Fetcher   *fetch.Fetcher
	Engine    *lineage.Engine
	Telemetry *telemetry.Telemetry

	// RateLimiter is set only when inbound rate limiting is enabled and Redis is available
	RateLimiter *ratelimit.RateLimiter

	// Internal
	cleanupFuncs []func() error
}

// Shutdown performs graceful shutdown of all components
// Should be called with defer after Setup()
func (c *Components) Shutdown(ctx context.Context) error {
	c.Logger.Info("shutting down components")

	var errors []error

	// Run cleanup functions in reverse order (LIFO)
	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](); err != nil {
			errors = append(errors, err)
			c.Logger.Error("cleanup error", "error", err)
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("shutdown errors: %v", errors)
	}

	c.Logger.Info("shutdown complete")
	return nil
}

// Health checks the backing stores the cache depends on
func (c *Components) Health(ctx context.Context) error {
	if c.DB != nil {
		if err := c.DB.Health(ctx); err != nil {
			return fmt.Errorf("database unhealthy: %w", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Ping(ctx); err != nil {
			return fmt.Errorf("redis unhealthy: %w", err)
		}
	}
	return nil
}

// addCleanup registers a cleanup function
func (c *Components) addCleanup(fn func() error) {
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}
