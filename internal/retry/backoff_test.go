package retry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() BackoffConfig {
	return BackoffConfig{
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  3,
	}
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	backoff := NewBackoff(fastConfig())
	calls := 0

	err := backoff.Retry(context.Background(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	backoff := NewBackoff(fastConfig())
	calls := 0

	err := backoff.Retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("attempt %d failed", calls)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	backoff := NewBackoff(fastConfig())
	calls := 0
	wantErr := fmt.Errorf("persistent failure")

	err := backoff.Retry(context.Background(), func() error {
		calls++
		return wantErr
	})
	assert.Equal(t, wantErr, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithPredicateStopsOnNonRetryable(t *testing.T) {
	backoff := NewBackoff(fastConfig())
	calls := 0
	fatal := fmt.Errorf("fatal")

	err := backoff.RetryWithPredicate(context.Background(), func() error {
		calls++
		return fatal
	}, func(err error) bool { return false })

	assert.Equal(t, fatal, err)
	assert.Equal(t, 1, calls)
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	cfg := fastConfig()
	cfg.InitialDelay = time.Second
	backoff := NewBackoff(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := backoff.Retry(ctx, func() error {
		calls++
		return fmt.Errorf("fail")
	})
	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, 1, calls)
}

func TestDelayGrowsAndCaps(t *testing.T) {
	backoff := NewBackoff(BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     300 * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  5,
	})

	assert.Equal(t, 100*time.Millisecond, backoff.GetNextDelay(1))
	assert.Equal(t, 200*time.Millisecond, backoff.GetNextDelay(2))
	assert.Equal(t, 300*time.Millisecond, backoff.GetNextDelay(3))
	assert.Equal(t, 300*time.Millisecond, backoff.GetNextDelay(4))
}

func TestDelayJitterStaysInBounds(t *testing.T) {
	backoff := NewBackoff(BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		MaxAttempts:  3,
		Jitter:       true,
	})

	for i := 0; i < 100; i++ {
		delay := backoff.GetNextDelay(2)
		assert.GreaterOrEqual(t, delay, 150*time.Millisecond)
		assert.LessOrEqual(t, delay, 250*time.Millisecond)
	}
}
