package repository

import (
	"context"
	"testing"
	"time"

	"resort/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimiter(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer Close(client)

	ctx := context.Background()
	require.NoError(t, Ping(ctx, client))

	limiter := NewRedisRateLimiter(client, "booking_rate")

	for i := 0; i < 3; i++ {
		allowed, err := limiter.CheckRateLimit(ctx, 1, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := limiter.CheckRateLimit(ctx, 1, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	assert.True(t, s.Exists("booking_rate:1"))
	assert.Equal(t, time.Minute, s.TTL("booking_rate:1"))

	s.FastForward(2 * time.Minute)
	allowed, err = limiter.CheckRateLimit(ctx, 1, 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisRateLimiter_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	limiter := NewRedisRateLimiter(client, "")
	_, err := limiter.CheckRateLimit(context.Background(), 1, 3, time.Minute)
	assert.Error(t, err)

	assert.Error(t, Ping(context.Background(), client))
}

func TestRedisRateLimiter_NilClient(t *testing.T) {
	limiter := NewRedisRateLimiter(nil, "")
	_, err := limiter.CheckRateLimit(context.Background(), 1, 3, time.Minute)
	assert.Error(t, err)
}

func TestMemoryRateLimiter(t *testing.T) {
	limiter := NewMemoryRateLimiter()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	allowed, _ := limiter.CheckRateLimit(ctx, 1, 2, time.Minute)
	assert.True(t, allowed)
	allowed, _ = limiter.CheckRateLimit(ctx, 1, 2, time.Minute)
	assert.True(t, allowed)
	allowed, _ = limiter.CheckRateLimit(ctx, 1, 2, time.Minute)
	assert.False(t, allowed)

	allowed, _ = limiter.CheckRateLimit(ctx, 2, 2, time.Minute)
	assert.True(t, allowed, "limits are per user")

	now = now.Add(2 * time.Minute)
	allowed, _ = limiter.CheckRateLimit(ctx, 1, 2, time.Minute)
	assert.True(t, allowed)
}
