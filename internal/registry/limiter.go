package registry

import (
	"context"
	"sync"
	"time"
)

// windowLimiter enforces a fixed-window request budget, matching the
// Companies House published limit (N requests per rolling window).
// When the budget is spent, Wait blocks until the window resets.
type windowLimiter struct {
	mu          sync.Mutex
	limit       int
	window      time.Duration
	windowStart time.Time
	used        int
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

func newWindowLimiter(limit int, window time.Duration) *windowLimiter {
	return &windowLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Wait consumes one request from the current window, blocking for the
// remainder of the window when the budget is exhausted.
func (l *windowLimiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		if l.windowStart.IsZero() || now.Sub(l.windowStart) >= l.window {
			l.windowStart = now
			l.used = 0
		}
		if l.used < l.limit {
			l.used++
			l.mu.Unlock()
			return nil
		}
		wait := l.window - now.Sub(l.windowStart)
		l.mu.Unlock()

		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}
