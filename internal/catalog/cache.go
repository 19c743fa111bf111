package catalog

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const networkKeyPrefix = "catalog:network:"

// RedisCache is a shared byte cache for network documents. A nil client
// disables caching and every call becomes a miss.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wraps client; client may be nil.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) get(ctx context.Context, networkID string) ([]byte, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, networkKeyPrefix+networkID).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *RedisCache) set(ctx context.Context, networkID string, data []byte, ttl time.Duration) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Set(ctx, networkKeyPrefix+networkID, data, ttl)
}

func (c *RedisCache) invalidate(ctx context.Context, networkID string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, networkKeyPrefix+networkID).Err()
}
