package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter counts events per key in a fixed window.
type RateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewRateLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{rdb: rdb, prefix: prefix, limit: limit, window: window}
}

// Allow records one event for key and reports whether it is within the limit.
// Without redis, or with a non-positive limit, everything is allowed.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if rl == nil || rl.rdb == nil || rl.limit <= 0 {
		return true, nil
	}

	k := fmt.Sprintf("rate:%s:%s", rl.prefix, key)
	count, err := rl.rdb.Incr(ctx, k).Result()
	if err != nil {
		return false, err
	}
	// Set expiration if first time
	if count == 1 {
		rl.rdb.Expire(ctx, k, rl.window)
	}
	return count <= int64(rl.limit), nil
}
