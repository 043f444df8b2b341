package api

import (
	"sync"

	"resort/internal/config"

	"golang.org/x/time/rate"
)

// keyLimiter hands out one token bucket per client key.
type keyLimiter struct {
	limiters sync.Map
	rps      rate.Limit
	burst    int
}

func newKeyLimiter(cfg config.APIRateLimitConfig) *keyLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}
	return &keyLimiter{rps: rate.Limit(cfg.RPS), burst: burst}
}

func (l *keyLimiter) enabled() bool {
	return l.rps > 0
}

func (l *keyLimiter) allow(key string) bool {
	return l.getLimiter(key).Allow()
}

func (l *keyLimiter) getLimiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		if lim, ok := v.(*rate.Limiter); ok {
			return lim
		}
	}

	lim := rate.NewLimiter(l.rps, l.burst)
	actual, loaded := l.limiters.LoadOrStore(key, lim)
	if loaded {
		if actualLim, ok := actual.(*rate.Limiter); ok {
			return actualLim
		}
	}
	return lim
}
