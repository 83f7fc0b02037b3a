package memory

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	count   int
	started time.Time
}

// RateLimiter allows rate hits per key within each window.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    int
	window  time.Duration
	now     func() time.Time
}

func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	return &RateLimiter{buckets: make(map[string]*bucket), rate: rate, window: window, now: time.Now}
}

func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, error) {
	if rl.rate <= 0 {
		return true, nil
	}
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	b, ok := rl.buckets[key]
	if !ok || now.Sub(b.started) >= rl.window {
		rl.buckets[key] = &bucket{count: 1, started: now}
		return true, nil
	}
	if b.count < rl.rate {
		b.count++
		return true, nil
	}
	return false, nil
}
