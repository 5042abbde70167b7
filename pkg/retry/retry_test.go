package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() *Config {
	return &Config{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDoWithResult_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	result, err := DoWithResult(context.Background(), fastConfig(), func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("503 service unavailable")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

func TestDoWithResult_PermanentErrorReturnsImmediately(t *testing.T) {
	calls := 0
	_, err := DoWithResult(context.Background(), fastConfig(), func() (string, error) {
		calls++
		return "", errors.New("401 invalid api key")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls, "permanent errors are not retried")
}

func TestDoWithResult_ExhaustsBudget(t *testing.T) {
	calls := 0
	_, err := DoWithResult(context.Background(), fastConfig(), func() (int, error) {
		calls++
		return 0, errors.New("rate limit exceeded")
	})

	assert.Error(t, err)
	assert.Equal(t, 4, calls, "initial attempt plus MaxRetries")
}

func TestDoWithResult_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{MaxRetries: 5, InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 1}

	done := make(chan error, 1)
	go func() {
		_, err := DoWithResult(ctx, cfg, func() (int, error) {
			return 0, errors.New("timeout")
		})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("retry did not observe cancellation")
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(errors.New("connection refused")))
	assert.True(t, IsRetryable(errors.New("HTTP 429 Too Many Requests")))
	assert.True(t, IsRetryable(errors.New("upstream overloaded")))
	assert.False(t, IsRetryable(errors.New("invalid api key")))
	assert.False(t, IsRetryable(nil))
}
