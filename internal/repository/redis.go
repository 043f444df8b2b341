package repository

import (
	"context"
	"fmt"
	"time"

	"resort/internal/config"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter counts booking attempts per user in fixed windows shared by every API instance.
type RedisRateLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisClient builds a client from the redis config section.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisRateLimiter(client *redis.Client, prefix string) *RedisRateLimiter {
	if prefix == "" {
		prefix = "rate_limit"
	}
	return &RedisRateLimiter{client: client, prefix: prefix}
}

func (r *RedisRateLimiter) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	key := fmt.Sprintf("%s:%d", r.prefix, userID)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	// The window is anchored at the first hit.
	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count <= int64(limit), nil
}

// Ping checks that the server answers.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close is a nil-safe client close.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
