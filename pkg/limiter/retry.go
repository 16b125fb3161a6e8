package limiter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryConfig holds retry configuration. MaxRetries <= 0 retries without
// bound; cancellation is then the only way out of the loop.
type RetryConfig struct {
	MaxRetries    int           `json:"max_retries"`
	BaseDelay     time.Duration `json:"base_delay"`
	MaxDelay      time.Duration `json:"max_delay"`
	BackoffFactor float64       `json:"backoff_factor"`
	Jitter        bool          `json:"jitter"`
}

// DefaultRetryConfig returns a default retry configuration.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:    3,
		BaseDelay:     100 * time.Millisecond,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	}
}

// RetryableFunc represents a function that can be retried.
type RetryableFunc func(ctx context.Context) (interface{}, error)

// RetryManager manages retry logic.
type RetryManager struct {
	config  *RetryConfig
	onRetry func(attempt int, err error)
}

// NewRetryManager creates a new retry manager. onRetry, when non-nil, is
// invoked before every re-attempt with the failed attempt number and error.
func NewRetryManager(config *RetryConfig, onRetry func(attempt int, err error)) *RetryManager {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &RetryManager{config: config, onRetry: onRetry}
}

// Execute executes a function with retry logic. Every error except a context
// cancellation is treated as transient; cancellation aborts immediately and
// propagates to the caller.
func (rm *RetryManager) Execute(ctx context.Context, fn RetryableFunc) (interface{}, error) {
	var lastErr error

	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if isCancellation(ctx, err) {
			return nil, err
		}

		if rm.config.MaxRetries > 0 && attempt >= rm.config.MaxRetries {
			break
		}

		if rm.onRetry != nil {
			rm.onRetry(attempt+1, err)
		}

		delay := rm.calculateDelay(attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// isCancellation reports whether err or the context carries a user-initiated
// cancellation or deadline.
func isCancellation(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// calculateDelay calculates the delay for the given attempt.
func (rm *RetryManager) calculateDelay(attempt int) time.Duration {
	delay := float64(rm.config.BaseDelay) * math.Pow(rm.config.BackoffFactor, float64(attempt))

	if delay > float64(rm.config.MaxDelay) {
		delay = float64(rm.config.MaxDelay)
	}

	if rm.config.Jitter {
		jitter := rand.Float64()*0.5 - 0.25 // -0.25 to +0.25
		delay = delay * (1 + jitter)
	}

	return time.Duration(delay)
}
