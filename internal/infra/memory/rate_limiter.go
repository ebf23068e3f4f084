package memory

import (
	"context"
	"sync"
	"time"

	"vpn-subscription-bot/internal/domain/ports/repository"

	"golang.org/x/time/rate"
)

var _ repository.RateLimiter = (*RateLimiter)(nil)

// RateLimiter keeps one token bucket per key; limit hits per window map to
// a refill rate of limit/window with a burst of limit.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{limiters: map[string]*rate.Limiter{}}
}

func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(float64(limit)/window.Seconds()), limit)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow(), nil
}
