// Package ratelimit throttles outbound provider requests to a fixed quota per window.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"fxsignal-go/internal/metrics"
)

// Limiter is a fixed-window counter: at most quota requests per window,
// counted from the first request of the window. Bursts straddling a window
// boundary are accepted; requests are only ever delayed, never dropped.
type Limiter struct {
	mu          sync.Mutex
	quota       int
	window      time.Duration
	windowStart time.Time
	calls       int
	now         func() time.Time
	sleep       func(context.Context, time.Duration) error
}

// New builds a limiter allowing quota requests per window.
func New(quota int, window time.Duration) *Limiter {
	if quota <= 0 {
		quota = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		quota:  quota,
		window: window,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Wait blocks until a request may be issued without exceeding the quota,
// then records it. Returns early only on context cancellation.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	now := l.now()

	if l.windowStart.IsZero() || now.Sub(l.windowStart) > l.window {
		l.windowStart = now
		l.calls = 0
	}

	if l.calls >= l.quota {
		remaining := l.window - now.Sub(l.windowStart)
		l.mu.Unlock()
		metrics.RateLimitWaitsTotal.Inc()
		if err := l.sleep(ctx, remaining); err != nil {
			return err
		}
		l.mu.Lock()
		l.windowStart = l.now()
		l.calls = 0
	}

	l.calls++
	l.mu.Unlock()
	return nil
}

// Remaining reports how many requests are left in the current window.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.windowStart.IsZero() || l.now().Sub(l.windowStart) > l.window {
		return l.quota
	}
	if left := l.quota - l.calls; left > 0 {
		return left
	}
	return 0
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
