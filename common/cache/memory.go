package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. It does not survive restarts and is
// used for tests and single-shot CLI runs.
type MemoryStore struct {
	data      map[string]Entry
	mu        sync.RWMutex
	retention time.Duration
	done      chan struct{}
	closeOnce sync.Once
	log       Logger
}

// NewMemoryStore creates a memory store that evicts entries older than retention
func NewMemoryStore(retention time.Duration, log Logger) *MemoryStore {
	s := &MemoryStore{
		data:      make(map[string]Entry),
		retention: retention,
		done:      make(chan struct{}),
		log:       log,
	}

	go s.cleanup()

	return s
}

// Load retrieves an entry
func (s *MemoryStore) Load(ctx context.Context, key string) (*Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.data[key]
	if !exists {
		return nil, false, nil
	}
	return &entry, true, nil
}

// Save stores an entry. The payload is copied so callers may reuse their buffer.
func (s *MemoryStore) Save(ctx context.Context, key string, entry Entry) error {
	payload := make([]byte, len(entry.Payload))
	copy(payload, entry.Payload)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = Entry{Payload: payload, FetchedAt: entry.FetchedAt}
	return nil
}

// Delete removes an entry
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

// Close stops the cleanup goroutine and drops all entries
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)

		s.mu.Lock()
		s.data = make(map[string]Entry)
		s.mu.Unlock()

		s.log.Info("memory cache closed")
	})
	return nil
}

// Len returns the number of stored entries
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// cleanup removes entries past retention periodically
func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.evictBefore(time.Now().Add(-s.retention))
		}
	}
}

func (s *MemoryStore) evictBefore(cutoff time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, entry := range s.data {
		if entry.FetchedAt.Before(cutoff) {
			delete(s.data, key)
		}
	}
}
