package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/lyzr/lineage/common/cache"
	"github.com/lyzr/lineage/common/clients"
	"github.com/lyzr/lineage/common/config"
	"github.com/lyzr/lineage/common/db"
	"github.com/lyzr/lineage/common/fetch"
	"github.com/lyzr/lineage/common/lineage"
	"github.com/lyzr/lineage/common/logger"
	"github.com/lyzr/lineage/common/metrics"
	"github.com/lyzr/lineage/common/ratelimit"
	rediscommon "github.com/lyzr/lineage/common/redis"
	"github.com/lyzr/lineage/common/sleeper"
	"github.com/lyzr/lineage/common/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Setup initializes all service components
// This is the main entry point for the API and the CLI
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	// Apply options
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
		if err := components.Config.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	cfg := components.Config

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(cfg.Service.LogLevel, cfg.Service.LogFormat)
	}

	components.Logger.Info("initializing service",
		"service", serviceName,
		"environment", cfg.Service.Environment,
		"cache_backend", cfg.Cache.Backend,
	)

	// 3. Metrics registry
	components.Registry = prometheus.NewRegistry()
	components.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	components.Metrics = metrics.New(components.Registry)

	// 4. Cache store
	store := options.customStore
	if store == nil {
		store, err = components.openStore(ctx)
		if err != nil {
			components.Shutdown(ctx) // Cleanup what we've initialized
			return nil, err
		}
	}
	components.Cache = cache.New(store, config.CacheTTL, components.Logger, cache.WithMetrics(components.Metrics))

	// 5. Inbound rate limiter, only meaningful when Redis is around
	if cfg.RateLimit.Enabled {
		if err := components.connectRedis(ctx); err != nil {
			components.Logger.Warn("rate limiting disabled, redis unavailable", "error", err)
		} else {
			components.RateLimiter = ratelimit.NewRateLimiter(components.Redis, components.Logger)
		}
	}

	// 6. Upstream fetch path: permit pool -> fetcher -> typed client -> engine
	components.Pool, err = ratelimit.NewPool(cfg.Upstream.MaxConcurrent, components.Metrics)
	if err != nil {
		components.Shutdown(ctx)
		return nil, err
	}

	httpClient := clients.NewHTTPClient(&http.Client{
		Timeout: cfg.Upstream.Timeout,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: cfg.Upstream.MaxConcurrent,
			IdleConnTimeout:     90 * time.Second,
		},
	}, components.Logger)

	components.Fetcher, err = fetch.NewFetcher(fetch.FetcherOpts{
		BaseURL: cfg.Upstream.BaseURL,
		HTTP:    httpClient,
		Cache:   components.Cache,
		Pool:    components.Pool,
		Metrics: components.Metrics,
		Logger:  components.Logger,
	})
	if err != nil {
		components.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}

	components.Engine, err = lineage.NewEngine(sleeper.NewClient(components.Fetcher), lineage.Options{
		WeeksPerSeason: cfg.Upstream.WeeksPerSeason,
		PlayerNames:    cfg.Upstream.PlayerNames,
		Metrics:        components.Metrics,
		Logger:         components.Logger,
	})
	if err != nil {
		components.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	// 7. Initialize telemetry (if not skipped)
	if !options.skipTelemetry && (cfg.Telemetry.EnablePprof || cfg.Telemetry.EnableMetrics) {
		components.Logger.Info("initializing telemetry")
		pprofPort, metricsPort := 0, 0
		if cfg.Telemetry.EnablePprof {
			pprofPort = cfg.Telemetry.PprofPort
		}
		if cfg.Telemetry.EnableMetrics {
			metricsPort = cfg.Telemetry.MetricsPort
		}
		components.Telemetry = telemetry.New(pprofPort, metricsPort, components.Registry, components.Logger)

		if err := components.Telemetry.Start(ctx); err != nil {
			components.Logger.Warn("failed to start telemetry", "error", err)
			// Don't fail startup if telemetry fails
		}
		components.addCleanup(func() error {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return components.Telemetry.Stop(stopCtx)
		})
	}

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"db", components.DB != nil,
		"redis", components.Redis != nil,
		"rate_limit", components.RateLimiter != nil,
		"max_concurrent", cfg.Upstream.MaxConcurrent,
		"telemetry", components.Telemetry != nil,
	)

	return components, nil
}

// openStore opens the configured cache backend and registers its cleanup
func (c *Components) openStore(ctx context.Context) (cache.Store, error) {
	cfg := c.Config

	switch cfg.Cache.Backend {
	case config.CacheBackendMemory:
		store := cache.NewMemoryStore(config.CacheTTL, c.Logger)
		c.addCleanup(store.Close)
		return store, nil

	case config.CacheBackendSQLite:
		store, err := cache.OpenSQLite(cfg.Cache.SQLitePath, c.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite cache: %w", err)
		}
		c.addCleanup(func() error {
			c.Logger.Info("closing sqlite cache")
			return store.Close()
		})
		return store, nil

	case config.CacheBackendRedis:
		if err := c.connectRedis(ctx); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return cache.NewRedisStore(c.Redis, config.CacheTTL, c.Logger), nil

	case config.CacheBackendPostgres:
		c.Logger.Info("connecting to database")
		database, err := db.New(ctx, cfg, c.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		c.DB = database
		c.addCleanup(func() error {
			c.Logger.Info("closing database connection")
			database.Close()
			return nil
		})
		return cache.NewPostgresStore(ctx, database, c.Logger)

	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Cache.Backend)
	}
}

// connectRedis connects once; both the cache and the rate limiter share the client
func (c *Components) connectRedis(ctx context.Context) error {
	if c.Redis != nil {
		return nil
	}
	client, err := rediscommon.Connect(ctx, c.Config.RedisAddr(), c.Config.Redis.Password, c.Config.Redis.DB, c.Logger)
	if err != nil {
		return err
	}
	c.Redis = client
	c.addCleanup(func() error {
		c.Logger.Info("closing redis connection")
		return client.Close()
	})
	return nil
}

// MustSetup is like Setup but panics on error
// Useful for services that can't recover from initialization failure
func MustSetup(ctx context.Context, serviceName string, opts ...Option) *Components {
	components, err := Setup(ctx, serviceName, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to setup service %s: %v", serviceName, err))
	}
	return components
}
