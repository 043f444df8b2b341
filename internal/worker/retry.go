package worker

import (
	"math"
	"time"

	"resort/internal/config"
)

// RetryPolicy defines exponential backoff parameters.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

func RetryPolicyFromConfig(cfg config.RetryConfig) RetryPolicy {
	return RetryPolicy{
		MaxRetries:    cfg.MaxRetries,
		InitialDelay:  cfg.BaseDelay,
		MaxDelay:      cfg.MaxDelay,
		BackoffFactor: cfg.Factor,
	}
}

// Exhausted reports whether a failed attempt (1-based) was the last one allowed.
func (r RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= r.MaxRetries
}

// NextDelay returns delay for a given attempt (1-based) with clamping.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := r.InitialDelay
	if base <= 0 {
		base = time.Second
	}
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	delay := float64(base) * math.Pow(factor, float64(attempt-1))
	if r.MaxDelay > 0 && delay > float64(r.MaxDelay) {
		return r.MaxDelay
	}
	if delay >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}
