package repository

import (
	"context"
	"sync/atomic"
	"time"

	"resort/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverRateLimiter prefers the shared limiter and falls back to the local
// one while it is unreachable, probing it again once a minute.
type FailoverRateLimiter struct {
	primary   domain.RateLimiter
	fallback  domain.RateLimiter
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverRateLimiter(primary, fallback domain.RateLimiter, logger *zerolog.Logger) *FailoverRateLimiter {
	return &FailoverRateLimiter{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverRateLimiter) markDown(err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary rate limiter failed, falling back to memory")
	}
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverRateLimiter) shouldProbe() bool {
	return time.Since(time.Unix(0, r.lastCheck.Load())) > recoveryInterval
}

func (r *FailoverRateLimiter) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() || r.shouldProbe() {
		allowed, err := r.primary.CheckRateLimit(ctx, userID, limit, window)
		if err == nil {
			if r.isDown.Swap(false) {
				r.logger.Info().Msg("Primary rate limiter recovered")
			}
			return allowed, nil
		}
		r.markDown(err)
	}

	return r.fallback.CheckRateLimit(ctx, userID, limit, window)
}
