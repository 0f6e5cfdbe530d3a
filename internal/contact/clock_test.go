package contact

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisClock(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	clock := NewRedisClock(rdb, 10*time.Second)
	ctx := context.Background()

	_, ok, err := clock.Last(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, ok)

	at := time.UnixMilli(time.Now().UnixMilli())
	require.NoError(t, clock.Mark(ctx, "sess-1", at))

	got, ok, err := clock.Last(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, at.Equal(got))
	assert.Equal(t, 10*time.Second, mr.TTL(clockKeyPrefix+"sess-1"))

	mr.FastForward(11 * time.Second)
	_, ok, err = clock.Last(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisClockDownIsAnError(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	_, _, err := NewRedisClock(rdb, 0).Last(context.Background(), "sess-1")
	assert.Error(t, err)
}

func TestNewRedisClockNil(t *testing.T) {
	assert.Nil(t, NewRedisClock(nil, time.Second))
}
