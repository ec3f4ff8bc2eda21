package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Counter is the atomic increment + expiry primitive of the cache server.
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// RateLimiter is a fixed-window per-user throttle. The window opens on the
// first increment, which is the only call that sets the key's expiry, so a
// burst straddling two windows can admit up to twice the limit.
type RateLimiter struct {
	counter Counter
	scope   string
	max     int64
	window  time.Duration
	log     *zap.Logger
}

func NewRateLimiter(counter Counter, scope string, max int, window time.Duration, log *zap.Logger) *RateLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &RateLimiter{
		counter: counter,
		scope:   scope,
		max:     int64(max),
		window:  window,
		log:     log,
	}
}

// Key returns the counter key for a user, rate:<scope>:user:<id>.
func (r *RateLimiter) Key(userID string) string {
	return fmt.Sprintf("rate:%s:user:%s", r.scope, userID)
}

// CheckAndConsume records one action for userID and fails with
// RateLimitExceeded once the window holds more than the allowed count.
func (r *RateLimiter) CheckAndConsume(ctx context.Context, userID string) error {
	key := r.Key(userID)
	n, err := r.counter.Incr(ctx, key)
	if err != nil {
		return &Error{Kind: KindUnavailable, Msg: "rate limit counter", Err: err}
	}
	if n == 1 {
		if err := r.counter.Expire(ctx, key, r.window); err != nil {
			// without an expiry the key would throttle the user forever
			r.log.Warn("rate limit expiry failed", zap.String("key", key), zap.Error(err))
			return &Error{Kind: KindUnavailable, Msg: "rate limit expiry", Err: err}
		}
	}
	if n > r.max {
		return newError(KindRateLimitExceeded,
			"rate limit exceeded: maximum %d actions per %d seconds", r.max, int(r.window.Seconds()))
	}
	return nil
}
