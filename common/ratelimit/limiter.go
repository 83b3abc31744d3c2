package ratelimit

import (
	"context"
	_ "embed"
	"fmt"

	rediscommon "github.com/lyzr/lineage/common/redis"
	"github.com/redis/go-redis/v9"
)

//go:embed rate_limit.lua
var rateLimitScript string

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// RateLimitResult contains the result of a rate limit check
type RateLimitResult struct {
	Allowed           bool  // Whether the request is allowed
	CurrentCount      int64 // Current count in the window
	Limit             int64 // The limit that was checked
	RetryAfterSeconds int64 // Seconds until the limit resets (0 if allowed)
}

// RateLimiter throttles inbound API clients using Redis + Lua.
// It never gates upstream fetches; that is the Pool's job.
type RateLimiter struct {
	redis  *rediscommon.Client
	script *redis.Script
	logger Logger
}

// NewRateLimiter creates a new rate limiter with embedded Lua script
func NewRateLimiter(redisClient *rediscommon.Client, logger Logger) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		script: redis.NewScript(rateLimitScript),
		logger: logger,
	}
}

// CheckClientLimit checks the fixed-window limit for one client identity
func (r *RateLimiter) CheckClientLimit(ctx context.Context, clientID string, limit int64, windowSec int) (*RateLimitResult, error) {
	key := fmt.Sprintf("rate_limit:client:%s", clientID)
	return r.checkLimit(ctx, key, limit, windowSec)
}

// checkLimit executes the rate limit Lua script
func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int64, windowSec int) (*RateLimitResult, error) {
	result, err := r.redis.RunScript(ctx, r.script, []string{key}, limit, windowSec)
	if err != nil {
		r.logger.Error("rate limit check failed", "key", key, "error", err)
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	return parseScriptResult(result, key, limit, r.logger)
}

// parseScriptResult decodes {allowed, current_count, limit, retry_after}
func parseScriptResult(result interface{}, key string, limit int64, logger Logger) (*RateLimitResult, error) {
	resultArray, ok := result.([]interface{})
	if !ok || len(resultArray) != 4 {
		return nil, fmt.Errorf("unexpected script result format")
	}

	values := make([]int64, 4)
	for i, raw := range resultArray {
		v, ok := raw.(int64)
		if !ok {
			return nil, fmt.Errorf("unexpected script result element %d: %T", i, raw)
		}
		values[i] = v
	}

	rateLimitResult := &RateLimitResult{
		Allowed:           values[0] == 1,
		CurrentCount:      values[1],
		Limit:             values[2],
		RetryAfterSeconds: values[3],
	}

	if !rateLimitResult.Allowed {
		logger.Warn("rate limit exceeded",
			"key", key,
			"current", rateLimitResult.CurrentCount,
			"limit", limit,
			"retry_after", rateLimitResult.RetryAfterSeconds)
	} else {
		logger.Debug("rate limit check passed",
			"key", key,
			"current", rateLimitResult.CurrentCount,
			"limit", limit)
	}

	return rateLimitResult, nil
}
