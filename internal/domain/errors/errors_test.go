package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	cause := context.DeadlineExceeded
	err := NewMLServiceError(CodeMLTimeout, "request timed out").WithCause(cause)

	assert.Equal(t, "ml service error: request timed out: context deadline exceeded", err.Error())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "ml", err.Details["service"])
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		errType   ErrorType
		status    int
		retryable bool
	}{
		{"validation", NewValidationError("BAD", "bad input"), ErrorTypeValidation, 400, false},
		{"registry", NewRegistryUnavailableError("store down"), ErrorTypeRegistryUnavailable, 503, false},
		{"ml", NewMLServiceError(CodeMLBadStatus, "503"), ErrorTypeMLService, 502, false},
		{"internal", NewInternalError("boom"), ErrorTypeInternal, 500, false},
		{"rate limit", NewRateLimitError("slow down"), ErrorTypeRateLimited, 429, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, IsType(wrapped, tt.errType))
			assert.Equal(t, tt.status, GetStatusCode(wrapped))
			assert.Equal(t, tt.retryable, IsRetryable(wrapped))
		})
	}

	t.Run("plain error", func(t *testing.T) {
		plain := fmt.Errorf("plain")
		assert.False(t, IsType(plain, ErrorTypeInternal))
		assert.Equal(t, 500, GetStatusCode(plain))
	})
}
