package helper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}
}

func TestRetry(t *testing.T) {
	t.Run("Valid first attempt succeeds", func(t *testing.T) {
		calls := 0
		result, err := Retry(context.Background(), fastPolicy(3), func(ctx context.Context) (string, error) {
			calls++
			return "ok", nil
		})

		require.NoError(t, err, "Expected Retry to succeed")
		assert.Equal(t, "ok", result, "Expected result of the call")
		assert.Equal(t, 1, calls, "Expected exactly one call")
	})

	t.Run("Valid success after transient failures", func(t *testing.T) {
		calls := 0
		result, err := Retry(context.Background(), fastPolicy(3), func(ctx context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("temporary")
			}
			return 42, nil
		})

		require.NoError(t, err, "Expected Retry to succeed on the third attempt")
		assert.Equal(t, 42, result, "Expected result of the successful call")
		assert.Equal(t, 3, calls, "Expected three calls")
	})

	t.Run("Invalid attempts exhausted", func(t *testing.T) {
		calls := 0
		cause := errors.New("still down")
		_, err := Retry(context.Background(), fastPolicy(2), func(ctx context.Context) (int, error) {
			calls++
			return 0, cause
		})

		assert.ErrorIs(t, err, cause, "Expected last error to be returned")
		assert.Equal(t, 2, calls, "Expected calls to stop at MaxAttempts")
	})

	t.Run("Invalid non retryable error stops immediately", func(t *testing.T) {
		calls := 0
		fatal := errors.New("quota exceeded")
		policy := fastPolicy(5)
		policy.Retryable = func(err error) bool { return !errors.Is(err, fatal) }

		_, err := Retry(context.Background(), policy, func(ctx context.Context) (int, error) {
			calls++
			return 0, fatal
		})

		assert.ErrorIs(t, err, fatal, "Expected non retryable error to be returned")
		assert.Equal(t, 1, calls, "Expected no retry for non retryable errors")
	})

	t.Run("Invalid cancelled context aborts the backoff", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		policy := RetryPolicy{MaxAttempts: 3, InitialDelay: time.Hour}
		calls := 0

		_, err := Retry(ctx, policy, func(ctx context.Context) (int, error) {
			calls++
			cancel()
			return 0, errors.New("failed")
		})

		assert.ErrorIs(t, err, context.Canceled, "Expected cancellation to be reported")
		assert.Equal(t, 1, calls, "Expected no further attempt after cancellation")
	})

	t.Run("Valid per attempt timeout is applied", func(t *testing.T) {
		policy := fastPolicy(1)
		policy.Timeout = 10 * time.Millisecond

		_, err := Retry(context.Background(), policy, func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		})

		assert.ErrorIs(t, err, context.DeadlineExceeded, "Expected the attempt to time out")
	})
}
