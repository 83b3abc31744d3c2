package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	rediscommon "github.com/lyzr/lineage/common/redis"
)

const redisKeyPrefix = "lineage:cache:"

// redisEnvelope is the stored value; one SET writes payload and timestamp together
type redisEnvelope struct {
	Payload   []byte `json:"payload"`
	FetchedAt int64  `json:"fetched_at"`
}

// RedisStore keeps entries in Redis. Keys expire after retention so Redis
// reclaims stale responses on its own.
type RedisStore struct {
	client    *rediscommon.Client
	retention time.Duration
	log       Logger
}

// NewRedisStore creates a Redis-backed store
func NewRedisStore(client *rediscommon.Client, retention time.Duration, log Logger) *RedisStore {
	return &RedisStore{
		client:    client,
		retention: retention,
		log:       log,
	}
}

// Load retrieves an entry
func (s *RedisStore) Load(ctx context.Context, key string) (*Entry, bool, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+key)
	if errors.Is(err, rediscommon.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var env redisEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.log.Warn("discarding unreadable cache entry", "key", key, "error", err)
		return nil, false, nil
	}
	return &Entry{Payload: env.Payload, FetchedAt: time.UnixMilli(env.FetchedAt).UTC()}, true, nil
}

// Save writes an entry with a single SET
func (s *RedisStore) Save(ctx context.Context, key string, entry Entry) error {
	raw, err := json.Marshal(redisEnvelope{
		Payload:   entry.Payload,
		FetchedAt: entry.FetchedAt.UTC().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	return s.client.Set(ctx, redisKeyPrefix+key, raw, s.retention)
}

// Delete removes an entry
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Delete(ctx, redisKeyPrefix+key)
}

// Close is a no-op; the Redis client is owned by bootstrap
func (s *RedisStore) Close() error {
	return nil
}
