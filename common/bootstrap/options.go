package bootstrap

import (
	"github.com/lyzr/lineage/common/cache"
	"github.com/lyzr/lineage/common/config"
	"github.com/lyzr/lineage/common/logger"
)

// Option configures the bootstrap process
type Option func(*options)

type options struct {
	skipTelemetry bool
	customLogger  *logger.Logger
	customConfig  *config.Config
	customStore   cache.Store
}

// WithoutTelemetry skips telemetry initialization
func WithoutTelemetry() Option {
	return func(o *options) {
		o.skipTelemetry = true
	}
}

// WithCustomLogger uses a custom logger instead of creating one
func WithCustomLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.customLogger = log
	}
}

// WithCustomConfig uses a custom config instead of loading from env
func WithCustomConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.customConfig = cfg
	}
}

// WithStore uses the given cache store instead of the configured backend.
// The caller keeps ownership; it is not closed on shutdown.
func WithStore(store cache.Store) Option {
	return func(o *options) {
		o.customStore = store
	}
}

func defaultOptions() *options {
	return &options{}
}
