package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store keeps per-key hit timestamps for a sliding window.
type Store interface {
	// Get counts hits for key strictly after since.
	Get(ctx context.Context, key string, since time.Time) (int, error)
	// Increment records a hit at the given time. ttl bounds how long the key must be kept.
	Increment(ctx context.Context, key string, at time.Time, ttl time.Duration) error
	// EvictExpired drops hits at or before the cutoff and returns the number of keys removed.
	EvictExpired(ctx context.Context, cutoff time.Time) (int, error)
}

// Limiter allows at most max hits per key in any sliding window.
type Limiter struct {
	store  Store
	max    int
	window time.Duration
	clock  func() time.Time

	// serializes check-then-increment within this process
	mu sync.Mutex
}

type Option func(*Limiter)

// WithClock overrides time.Now.
func WithClock(clock func() time.Time) Option {
	return func(l *Limiter) { l.clock = clock }
}

func New(store Store, max int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{store: store, max: max, window: window, clock: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records a hit for key and reports whether it is within the limit.
// On store failure it allows the hit and returns the error for logging.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	n, err := l.store.Get(ctx, key, now.Add(-l.window))
	if err != nil {
		return true, fmt.Errorf("rate limit get: %w", err)
	}
	if n >= l.max {
		return false, nil
	}
	if err := l.store.Increment(ctx, key, now, l.window); err != nil {
		return true, fmt.Errorf("rate limit increment: %w", err)
	}
	return true, nil
}

// Evict removes hits that fell out of the window.
func (l *Limiter) Evict(ctx context.Context) (int, error) {
	return l.store.EvictExpired(ctx, l.clock().Add(-l.window))
}

// RunEviction evicts on every tick until ctx is done.
func (l *Limiter) RunEviction(ctx context.Context, interval time.Duration, onError func(error)) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := l.Evict(ctx); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}
