package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/siherrmann/graphrag/model"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	t.Run("Nil error stays nil", func(t *testing.T) {
		assert.NoError(t, ClassifyError("generate", nil))
	})

	t.Run("Quota and credential failures", func(t *testing.T) {
		for _, msg := range []string{
			"error, status code: 429, message: You exceeded your current quota, please check your plan and billing details",
			"insufficient_quota",
			"googleapi: Error 403: API key not valid. Please pass a valid API key.",
			"status code: 401, invalid x-api-key",
			"Your credit balance is too low",
		} {
			err := ClassifyError("generate", errors.New(msg))
			assert.True(t, model.IsQuotaError(err), "Expected %q to be a quota error", msg)
			assert.Equal(t, "MODEL_QUOTA_EXCEEDED", model.CodeOf(err))
		}
	})

	t.Run("Transient failures", func(t *testing.T) {
		for _, msg := range []string{
			"429 Too Many Requests",
			"dial tcp: connection refused",
			"503 service unavailable",
			"Error 429, Message: Resource has been exhausted, Status: RESOURCE_EXHAUSTED",
		} {
			err := ClassifyError("generate", errors.New(msg))
			assert.False(t, model.IsQuotaError(err), "Expected %q not to be a quota error", msg)
			assert.True(t, model.IsTransientModelError(err))
			assert.True(t, IsTransient(err), "Expected %q to be retried", msg)
		}
	})

	t.Run("Context errors keep their identity", func(t *testing.T) {
		err := ClassifyError("generate", context.DeadlineExceeded)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.ErrorIs(t, err, model.ErrModelCall)
		assert.True(t, IsTransient(err))
	})

	t.Run("Already classified errors are returned unchanged", func(t *testing.T) {
		wrapped := fmt.Errorf("wrapped: %w", model.NewModelQuotaError("embed", errors.New("billing")))
		assert.Equal(t, wrapped, ClassifyError("generate", wrapped))
	})
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("invalid request: unknown model")))
	assert.False(t, IsTransient(context.Canceled), "Expected cancellation not to be retried")
	assert.False(t, IsTransient(model.NewModelQuotaError("generate", errors.New("429 quota"))))
}
