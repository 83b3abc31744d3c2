package ratelimit

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lyzr/lineage/common/metrics"
	"golang.org/x/sync/semaphore"
)

// DefaultPoolSize keeps us comfortably under the upstream's practical rate limit
const DefaultPoolSize = 10

// Pool is a fixed-size permit pool bounding concurrent upstream requests.
// Excess callers queue in FIFO order; nobody is rejected.
type Pool struct {
	sem      *semaphore.Weighted
	size     int64
	inFlight atomic.Int64
	metrics  *metrics.Metrics
}

// NewPool creates a pool with size permits
func NewPool(size int, m *metrics.Metrics) (*Pool, error) {
	if size < 1 {
		return nil, fmt.Errorf("pool size must be positive, got %d", size)
	}
	return &Pool{
		sem:     semaphore.NewWeighted(int64(size)),
		size:    int64(size),
		metrics: m,
	}, nil
}

// Acquire blocks until a permit is free or ctx is done. The returned release
// func must be called exactly once; extra calls are ignored.
func (p *Pool) Acquire(ctx context.Context) (func(), error) {
	start := time.Now()
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.LimiterWait.Observe(time.Since(start).Seconds())
		p.metrics.UpstreamInflight.Inc()
	}
	p.inFlight.Add(1)

	var released atomic.Bool
	return func() {
		if !released.CompareAndSwap(false, true) {
			return
		}
		p.inFlight.Add(-1)
		if p.metrics != nil {
			p.metrics.UpstreamInflight.Dec()
		}
		p.sem.Release(1)
	}, nil
}

// InFlight returns the number of permits currently held
func (p *Pool) InFlight() int64 {
	return p.inFlight.Load()
}

// Size returns the pool capacity
func (p *Pool) Size() int64 {
	return p.size
}
