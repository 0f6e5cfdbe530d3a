package contact

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SubmissionClock remembers when a client last submitted successfully.
// It is best-effort: callers treat any error as "no prior submission".
type SubmissionClock interface {
	Last(ctx context.Context, key string) (time.Time, bool, error)
	Mark(ctx context.Context, key string, at time.Time) error
}

// MemoryClock keeps timestamps in process, for a single instance or tests.
type MemoryClock struct {
	mu   sync.Mutex
	last map[string]time.Time
}

func NewMemoryClock() *MemoryClock {
	return &MemoryClock{last: make(map[string]time.Time)}
}

func (c *MemoryClock) Last(ctx context.Context, key string) (time.Time, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.last[key]
	return t, ok, nil
}

func (c *MemoryClock) Mark(ctx context.Context, key string, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last[key] = at
	return nil
}

const clockKeyPrefix = "contact:last:"

// RedisClock shares timestamps across instances. Keys expire after ttl so
// idle clients leave nothing behind.
type RedisClock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClock returns nil when client is nil.
func NewRedisClock(client *redis.Client, ttl time.Duration) *RedisClock {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisClock{client: client, ttl: ttl}
}

func (c *RedisClock) Last(ctx context.Context, key string) (time.Time, bool, error) {
	raw, err := c.client.Get(ctx, clockKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("contact: read submission clock: %w", err)
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("contact: parse submission clock: %w", err)
	}
	return time.UnixMilli(ms), true, nil
}

func (c *RedisClock) Mark(ctx context.Context, key string, at time.Time) error {
	if err := c.client.Set(ctx, clockKeyPrefix+key, strconv.FormatInt(at.UnixMilli(), 10), c.ttl).Err(); err != nil {
		return fmt.Errorf("contact: write submission clock: %w", err)
	}
	return nil
}

var (
	_ SubmissionClock = (*MemoryClock)(nil)
	_ SubmissionClock = (*RedisClock)(nil)
)
