// Package cache is the persistent response cache that sits between the fetch
// layer and the upstream API. Entries carry their fetch time; validity is
// decided here against a fixed TTL, never by the backing store.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/lyzr/lineage/common/metrics"
)

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Entry is one cached upstream response
type Entry struct {
	Payload   []byte
	FetchedAt time.Time
}

// Store is a key/value medium for entries. Save must replace the entry
// atomically: a concurrent Load sees either the old entry or the new one.
type Store interface {
	Load(ctx context.Context, key string) (*Entry, bool, error)
	Save(ctx context.Context, key string, entry Entry) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Key builds the cache key for an upstream request
func Key(method, url string) string {
	return method + " " + url
}

// Cache applies the TTL to a Store
type Cache struct {
	store   Store
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
	log     Logger
}

// Option configures a Cache
type Option func(*Cache)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithMetrics records lookups on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// New creates a cache over store with the given TTL
func New(store Store, ttl time.Duration, log Logger, opts ...Option) *Cache {
	c := &Cache{
		store: store,
		ttl:   ttl,
		now:   time.Now,
		log:   log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the validity window
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the payload for key if it was fetched less than TTL ago.
// Missing and expired entries are both reported as absent.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, ok, err := c.store.Load(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("cache load %q: %w", key, err)
	}
	if !ok {
		c.record(metrics.CacheMiss)
		return nil, false, nil
	}

	if c.now().Sub(entry.FetchedAt) >= c.ttl {
		c.record(metrics.CacheExpired)
		c.log.Debug("cache entry expired", "key", key, "fetched_at", entry.FetchedAt)
		return nil, false, nil
	}

	c.record(metrics.CacheHit)
	return entry.Payload, true, nil
}

// Put stores payload under key, overwriting any prior value and timestamp
func (c *Cache) Put(ctx context.Context, key string, payload []byte, fetchedAt time.Time) error {
	if err := c.store.Save(ctx, key, Entry{Payload: payload, FetchedAt: fetchedAt}); err != nil {
		return fmt.Errorf("cache save %q: %w", key, err)
	}
	return nil
}

// Invalidate drops key from the store
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}

// Close closes the underlying store
func (c *Cache) Close() error {
	return c.store.Close()
}

func (c *Cache) record(result string) {
	if c.metrics != nil {
		c.metrics.CacheRequests.WithLabelValues(result).Inc()
	}
}
