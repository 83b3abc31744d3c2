package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// CacheTTL is how long an upstream response stays valid. It is not configurable.
const CacheTTL = 7 * 24 * time.Hour

// Cache backends
const (
	CacheBackendMemory   = "memory"
	CacheBackendSQLite   = "sqlite"
	CacheBackendRedis    = "redis"
	CacheBackendPostgres = "postgres"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Upstream  UpstreamConfig
	Cache     CacheConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	Telemetry TelemetryConfig
	RateLimit RateLimitConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name           string
	Port           int
	Environment    string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration
}

// UpstreamConfig holds settings for the fantasy API we read from
type UpstreamConfig struct {
	BaseURL        string
	Timeout        time.Duration
	MaxConcurrent  int
	WeeksPerSeason int
	PlayerNames    bool
}

// CacheConfig holds response cache settings
type CacheConfig struct {
	Backend    string
	SQLitePath string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof   bool
	PprofPort     int
	EnableMetrics bool
	MetricsPort   int
}

// RateLimitConfig holds inbound API rate limit settings (Redis only)
type RateLimitConfig struct {
	Enabled       bool
	Limit         int64
	WindowSeconds int
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:           serviceName,
			Port:           getEnvInt("PORT", 8080),
			Environment:    getEnv("ENVIRONMENT", "development"),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "text"),
			RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 60*time.Second),
		},
		Upstream: UpstreamConfig{
			BaseURL:        getEnv("UPSTREAM_BASE_URL", "https://api.sleeper.app/v1"),
			Timeout:        getEnvDuration("UPSTREAM_TIMEOUT", 15*time.Second),
			MaxConcurrent:  getEnvInt("UPSTREAM_MAX_CONCURRENT", 10),
			WeeksPerSeason: getEnvInt("WEEKS_PER_SEASON", 18),
			PlayerNames:    getEnvBool("RESOLVE_PLAYER_NAMES", true),
		},
		Cache: CacheConfig{
			Backend:    getEnv("CACHE_BACKEND", CacheBackendSQLite),
			SQLitePath: getEnv("CACHE_SQLITE_PATH", "lineage_cache.db"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "lineage"),
			User:        getEnv("POSTGRES_USER", "lineage"),
			Password:    getEnv("POSTGRES_PASSWORD", "lineage"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 10),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 2),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Telemetry: TelemetryConfig{
			EnablePprof:   getEnvBool("ENABLE_PPROF", false),
			PprofPort:     getEnvInt("PPROF_PORT", 6060),
			EnableMetrics: getEnvBool("ENABLE_METRICS", true),
			MetricsPort:   getEnvInt("METRICS_PORT", 9090),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvBool("RATE_LIMIT_ENABLED", false),
			Limit:         int64(getEnvInt("RATE_LIMIT_PER_WINDOW", 60)),
			WindowSeconds: getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		},
	}

	return cfg, cfg.Validate()
}

// Default returns the configuration Load would produce with an empty environment
func Default(serviceName string) *Config {
	cfg, _ := Load(serviceName)
	return cfg
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.Service.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}

	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream base url is required")
	}

	if c.Upstream.MaxConcurrent < 1 || c.Upstream.MaxConcurrent > 64 {
		return fmt.Errorf("upstream max concurrent must be within 1..64, got %d", c.Upstream.MaxConcurrent)
	}

	if c.Upstream.WeeksPerSeason < 1 {
		return fmt.Errorf("weeks per season must be positive, got %d", c.Upstream.WeeksPerSeason)
	}

	switch c.Cache.Backend {
	case CacheBackendMemory, CacheBackendRedis:
	case CacheBackendSQLite:
		if c.Cache.SQLitePath == "" {
			return fmt.Errorf("sqlite cache path is required")
		}
	case CacheBackendPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			return fmt.Errorf("max_conns must be >= min_conns")
		}
	default:
		return fmt.Errorf("unknown cache backend: %s", c.Cache.Backend)
	}

	if c.RateLimit.Enabled && (c.RateLimit.Limit < 1 || c.RateLimit.WindowSeconds < 1) {
		return fmt.Errorf("rate limit and window must be positive when rate limiting is enabled")
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// RedisAddr returns host:port for the Redis client
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
