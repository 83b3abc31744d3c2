// Package fetch issues upstream requests through the response cache and the
// shared permit pool.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lyzr/lineage/common/cache"
	"github.com/lyzr/lineage/common/clients"
	"github.com/lyzr/lineage/common/metrics"
	"github.com/lyzr/lineage/common/ratelimit"
)

// maxBodyBytes caps a single upstream payload; the full player directory is the largest
const maxBodyBytes = 64 << 20

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Getter is what typed upstream clients need from the fetch layer
type Getter interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// FetcherOpts holds the fetcher's collaborators
type FetcherOpts struct {
	BaseURL string
	HTTP    *clients.HTTPClient
	Cache   *cache.Cache
	Pool    *ratelimit.Pool
	Metrics *metrics.Metrics
	Logger  Logger
	Clock   func() time.Time
}

// Fetcher returns upstream payloads, consulting and populating the cache
type Fetcher struct {
	baseURL string
	http    *clients.HTTPClient
	cache   *cache.Cache
	pool    *ratelimit.Pool
	metrics *metrics.Metrics
	log     Logger
	now     func() time.Time
}

// NewFetcher creates a fetcher
func NewFetcher(opts FetcherOpts) (*Fetcher, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if opts.HTTP == nil || opts.Cache == nil || opts.Pool == nil || opts.Logger == nil {
		return nil, fmt.Errorf("http client, cache, pool and logger are required")
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}

	return &Fetcher{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    opts.HTTP,
		cache:   opts.Cache,
		pool:    opts.Pool,
		metrics: opts.Metrics,
		log:     opts.Logger,
		now:     opts.Clock,
	}, nil
}

// Fetch returns the payload for path (e.g. "/league/123"), ErrNotFound, or an
// *UpstreamError. Context errors are returned unchanged.
func (f *Fetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	url := f.baseURL + path
	key := cache.Key(http.MethodGet, url)

	if payload, ok := f.lookup(ctx, key); ok {
		return payload, nil
	}

	release, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	// Another request may have filled the entry while we were queued
	if payload, ok := f.lookup(ctx, key); ok {
		return payload, nil
	}

	payload, err := f.do(ctx, url, path)
	if err != nil {
		return nil, err
	}

	if err := f.cache.Put(ctx, key, payload, f.now()); err != nil {
		f.log.Error("failed to cache upstream payload", "path", path, "error", err)
	}

	return payload, nil
}

// Invalidate drops the cached payload for path so the next Fetch goes upstream
func (f *Fetcher) Invalidate(ctx context.Context, path string) error {
	return f.cache.Invalidate(ctx, cache.Key(http.MethodGet, f.baseURL+path))
}

func (f *Fetcher) lookup(ctx context.Context, key string) ([]byte, bool) {
	payload, ok, err := f.cache.Get(ctx, key)
	if err != nil {
		f.log.Warn("cache lookup failed, fetching upstream", "key", key, "error", err)
		return nil, false
	}
	return payload, ok
}

func (f *Fetcher) do(ctx context.Context, url, path string) ([]byte, error) {
	start := time.Now()
	defer func() {
		f.metrics.UpstreamDuration.Observe(time.Since(start).Seconds())
	}()

	resp, err := f.http.DoRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		f.metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeFailure).Inc()
		f.log.Warn("upstream request failed", "path", path, "error", err)
		return nil, &UpstreamError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		f.metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeFailure).Inc()
		return nil, &UpstreamError{Path: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		f.metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeNotFound).Inc()
		f.log.Debug("upstream resource not found", "path", path)
		return nil, ErrNotFound

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		f.metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeFailure).Inc()
		f.log.Warn("upstream returned error status", "path", path, "status", resp.StatusCode)
		return nil, &UpstreamError{
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       snippet(body),
			Err:        errors.New(http.StatusText(resp.StatusCode)),
		}
	}

	// The upstream answers unknown ids with 200 and a literal null
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		f.metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeNotFound).Inc()
		f.log.Debug("upstream returned empty body", "path", path)
		return nil, ErrNotFound
	}

	f.metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeOK).Inc()
	f.log.Debug("upstream fetch", "path", path, "bytes", len(body), "duration_ms", time.Since(start).Milliseconds())
	return body, nil
}

func snippet(body []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
