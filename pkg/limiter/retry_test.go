package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(maxRetries int) *RetryConfig {
	return &RetryConfig{
		MaxRetries:    maxRetries,
		BaseDelay:     time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func TestRetry_SucceedsOnThirdAttempt(t *testing.T) {
	attempts := 0
	rm := NewRetryManager(fastConfig(5), nil)

	result, err := rm.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("transient failure")
		}
		return "done", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "done", result)
	assert.Equal(t, 3, attempts)
}

func TestRetry_Exhaustion(t *testing.T) {
	attempts := 0
	rm := NewRetryManager(fastConfig(2), nil)

	_, err := rm.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		attempts++
		return nil, errors.New("always failing")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, 3, attempts) // initial attempt + 2 retries
}

func TestRetry_CancellationPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	rm := NewRetryManager(fastConfig(0), nil) // unbounded

	_, err := rm.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return nil, errors.New("transient failure")
	})

	require.Error(t, err)
	assert.LessOrEqual(t, attempts, 3)
}

func TestRetry_ContextErrorNotRetried(t *testing.T) {
	rm := NewRetryManager(fastConfig(5), nil)
	attempts := 0

	_, err := rm.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		attempts++
		return nil, context.Canceled
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestRetry_OnRetryCallback(t *testing.T) {
	var reported []int
	rm := NewRetryManager(fastConfig(2), func(attempt int, err error) {
		reported = append(reported, attempt)
	})

	_, _ = rm.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("boom")
	})

	assert.Equal(t, []int{1, 2}, reported)
}
