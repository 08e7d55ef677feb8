package common

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter bounds how often callers may hit a downstream service. The
// limits can be changed while callers are waiting. A nil *RateLimiter never
// blocks.
type RateLimiter struct {
	mu      sync.RWMutex
	limiter *rate.Limiter
}

// NewRateLimiter creates a RateLimiter allowing rps events per second with the
// given burst. A non-positive rps returns nil, meaning unlimited.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		return nil
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(rps), max(burst, 1))}
}

// Wait blocks until an event is allowed or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return ctx.Err()
	}
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return rl.limiter.Wait(ctx)
}

// Limit returns the current events-per-second limit.
func (rl *RateLimiter) Limit() float64 {
	if rl == nil {
		return float64(rate.Inf)
	}
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return float64(rl.limiter.Limit())
}

// UpdateLimits adjusts the limiter's requests per second and burst size.
func (rl *RateLimiter) UpdateLimits(rps float64, burst int) {
	if rl == nil {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.limiter.SetLimit(rate.Limit(rps))
	rl.limiter.SetBurst(max(burst, 1))
}
