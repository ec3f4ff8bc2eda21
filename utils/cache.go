package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	scanBatch     = 1000
	maxScanRounds = 10 // limit rounds to avoid long loops
)

// RedisCache exposes the key-value and counter primitives the services consume.
type RedisCache struct {
	rc *redis.Client
}

// NewRedisCache wraps an existing client.
func NewRedisCache(rc *redis.Client) *RedisCache {
	return &RedisCache{rc: rc}
}

// Get returns the cached value, reporting a miss as ok=false with a nil error.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rc.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		Sugar.Debugf("cache get miss key=%s", key)
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set stores value under key; ttl <= 0 keeps the key without expiry.
func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return c.rc.Set(ctx, key, value, ttl).Err()
}

// Del removes the given keys.
func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rc.Del(ctx, keys...).Err()
}

// DelPattern deletes keys matching a glob pattern using SCAN, never KEYS.
// Hitting the round limit is reported as an error since matching keys may
// remain.
func (c *RedisCache) DelPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for i := 0; i < maxScanRounds; i++ {
		keys, next, err := c.rc.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			pipe := c.rc.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
	return fmt.Errorf("pattern %s: scan limit of %d rounds reached", pattern, maxScanRounds)
}

// Incr atomically increments key and returns the new value.
func (c *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	return c.rc.Incr(ctx, key).Result()
}

// Expire sets the time to live of key.
func (c *RedisCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return c.rc.Expire(ctx, key, ttl).Err()
}
