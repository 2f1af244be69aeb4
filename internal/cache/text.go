package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// TextCache stores strings with a TTL. A nil client turns every call into a miss.
type TextCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewTextCache(rdb *redis.Client, prefix string, ttl time.Duration) *TextCache {
	return &TextCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *TextCache) Get(ctx context.Context, key string) (string, bool, error) {
	if c == nil || c.rdb == nil {
		return "", false, nil
	}
	val, err := c.rdb.Get(ctx, c.prefix+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *TextCache) Set(ctx context.Context, key, value string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Set(ctx, c.prefix+key, value, c.ttl).Err()
}
