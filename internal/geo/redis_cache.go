package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultIPCacheTTL matches how long a visitor's IP is assumed to stay put.
const DefaultIPCacheTTL = 24 * time.Hour

// RedisCache shares IP lookups between API instances.
type RedisCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisCache returns nil when client is nil so callers can pass it straight through.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultIPCacheTTL
	}
	return &RedisCache{redis: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, ip string) (Result, bool, error) {
	if c == nil {
		return Result{}, false, nil
	}
	data, err := c.redis.Get(ctx, ipKey(ip)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Result{}, false, nil
		}
		return Result{}, false, fmt.Errorf("geo: cache get: %w", err)
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return Result{}, false, fmt.Errorf("geo: cache decode: %w", err)
	}
	return res, true, nil
}

func (c *RedisCache) Set(ctx context.Context, ip string, res Result) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("geo: cache encode: %w", err)
	}
	if err := c.redis.Set(ctx, ipKey(ip), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("geo: cache set: %w", err)
	}
	return nil
}

func ipKey(ip string) string {
	return fmt.Sprintf("geo:ip:%s", ip)
}
