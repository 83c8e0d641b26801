package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/siherrmann/graphrag/model"
)

// quotaMarkers identify failures that need new credentials or billing, not a retry.
var quotaMarkers = []string{
	"insufficient_quota",
	"exceeded your current quota",
	"billing",
	"credit balance",
	"api key not valid",
	"api_key_invalid",
	"invalid api key",
	"invalid x-api-key",
	"unauthorized",
	"permission denied",
	"permission_denied",
	"status code: 401",
	"status code: 403",
	"error 401",
	"error 403",
}

// transientMarkers identify failures that may succeed on retry.
var transientMarkers = []string{
	"rate limit",
	"429",
	"too many requests",
	"resource_exhausted",
	"timeout",
	"connection",
	"temporary",
	"unavailable",
	"overloaded",
	"500",
	"502",
	"503",
	"504",
	"eof",
}

// ClassifyError wraps a model service error into the typed model error taxonomy.
// Quota, billing and credential failures become model quota errors, everything
// else is a model call error.
func ClassifyError(message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, model.ErrModelQuota) || errors.Is(err, model.ErrModelCall) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return model.NewModelCallError(message, err)
	}

	lower := strings.ToLower(err.Error())
	for _, marker := range quotaMarkers {
		if strings.Contains(lower, marker) {
			return model.NewModelQuotaError(message, err)
		}
	}
	return model.NewModelCallError(message, err)
}

// IsTransient reports if the raw error text looks like a failure worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, model.ErrModelQuota) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	lower := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
