package limiter

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimiter throttles requests against a remote completion endpoint to a
// configured requests-per-minute budget.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a rate limiter for maxRPM requests per minute.
// A non-positive maxRPM disables throttling.
func NewRateLimiter(maxRPM int) *RateLimiter {
	if maxRPM <= 0 {
		return &RateLimiter{}
	}
	burst := maxRPM / 10
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(float64(maxRPM)/60.0), burst),
	}
}

// Wait blocks until the limiter allows the next request or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.limiter == nil {
		return nil
	}
	if err := rl.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}
	return nil
}
