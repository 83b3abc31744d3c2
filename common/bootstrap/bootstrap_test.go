package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lyzr/lineage/common/cache"
	"github.com/lyzr/lineage/common/config"
	"github.com/lyzr/lineage/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(backend string) *config.Config {
	cfg := config.Default("bootstrap-test")
	cfg.Cache.Backend = backend
	cfg.RateLimit.Enabled = false
	return cfg
}

func TestSetup_MemoryBackend(t *testing.T) {
	ctx := context.Background()

	c, err := Setup(ctx, "bootstrap-test",
		WithCustomConfig(testConfig(config.CacheBackendMemory)),
		WithCustomLogger(logger.Discard()),
		WithoutTelemetry(),
	)
	require.NoError(t, err)

	assert.NotNil(t, c.Cache)
	assert.NotNil(t, c.Pool)
	assert.NotNil(t, c.Fetcher)
	assert.NotNil(t, c.Engine)
	assert.Nil(t, c.DB)
	assert.Nil(t, c.Redis)
	assert.Nil(t, c.RateLimiter)
	assert.Nil(t, c.Telemetry)
	assert.Equal(t, config.CacheTTL, c.Cache.TTL())

	assert.NoError(t, c.Health(ctx))
	assert.NoError(t, c.Shutdown(ctx))
}

func TestSetup_SQLiteBackend(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(config.CacheBackendSQLite)
	cfg.Cache.SQLitePath = filepath.Join(t.TempDir(), "cache.db")

	c, err := Setup(ctx, "bootstrap-test",
		WithCustomConfig(cfg),
		WithCustomLogger(logger.Discard()),
		WithoutTelemetry(),
	)
	require.NoError(t, err)
	assert.FileExists(t, cfg.Cache.SQLitePath)
	assert.NoError(t, c.Shutdown(ctx))
}

func TestSetup_InvalidConfig(t *testing.T) {
	cfg := testConfig("tape")

	_, err := Setup(context.Background(), "bootstrap-test",
		WithCustomConfig(cfg),
		WithCustomLogger(logger.Discard()),
		WithoutTelemetry(),
	)
	assert.ErrorContains(t, err, "unknown cache backend")
}

func TestSetup_WithStore(t *testing.T) {
	ctx := context.Background()
	log := logger.Discard()
	store := cache.NewMemoryStore(config.CacheTTL, log)
	defer store.Close()

	c, err := Setup(ctx, "bootstrap-test",
		WithCustomConfig(testConfig(config.CacheBackendSQLite)),
		WithCustomLogger(log),
		WithStore(store),
		WithoutTelemetry(),
	)
	require.NoError(t, err)

	// the injected store is used and left open for its owner
	require.NoError(t, c.Cache.Put(ctx, "k", []byte("v"), time.Now()))
	require.NoError(t, c.Shutdown(ctx))
	assert.Equal(t, 1, store.Len())
}
