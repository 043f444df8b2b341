package repository

import (
	"context"
	"sync"
	"time"
)

type MemoryRateLimiter struct {
	mu      sync.Mutex
	entries map[int64]*rateLimitEntry
	now     func() time.Time
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{entries: make(map[int64]*rateLimitEntry), now: time.Now}
}

func (r *MemoryRateLimiter) CheckRateLimit(_ context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[userID]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.entries[userID] = entry
	}
	entry.count++

	return entry.count <= limit, nil
}
