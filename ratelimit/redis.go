// Copyright (c) 2025 Eventloop HQ.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisWindowScript increments the window counter atomically.
// KEYS[1] = counter key
// ARGV[1] = window in milliseconds
// Returns {count, remaining_ms}. The key expires with the window, so
// counters self-clean.
var redisWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
    redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
    ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisStore implements Store using Redis, sharing counters across
// instances.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a store backed by the Redis instance at addr.
func NewRedisStore(addr string) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &RedisStore{client: rdb}
}

// Incr implements Store via the Lua script.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	res, err := redisWindowScript.Run(ctx, s.client, []string{"ratelimit:" + key}, window.Milliseconds()).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis limiter error: %w", err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return 0, 0, fmt.Errorf("invalid response from lua script")
	}

	count, _ := vals[0].(int64)
	ttlMs, _ := vals[1].(int64)

	return count, time.Duration(ttlMs) * time.Millisecond, nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
