package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter spaces granted slots per key by at least a fixed interval.
// Keys are source keys for listing fetches and hostnames for body fetches.
type RateLimiter struct {
	interval time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRateLimiter builds a limiter; interval <= 0 disables waiting.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{
		interval: interval,
		limiters: map[string]*rate.Limiter{},
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Interval returns the configured minimum spacing.
func (l *RateLimiter) Interval() time.Duration { return l.interval }

// Wait blocks until key may be used again or ctx is done.
func (l *RateLimiter) Wait(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.interval <= 0 {
		return nil
	}

	now := l.now()
	r := l.limiter(key).ReserveN(now, 1)
	if !r.OK() {
		return fmt.Errorf("rate limiter: cannot reserve slot for %s", key)
	}

	delay := r.DelayFrom(now)
	if delay <= 0 {
		return nil
	}
	if err := l.sleep(ctx, delay); err != nil {
		r.CancelAt(l.now())
		return err
	}
	return nil
}

func (l *RateLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.interval), 1)
		l.limiters[key] = lim
	}
	return lim
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
