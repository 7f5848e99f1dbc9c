package errors

import (
	"fmt"
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================================================================
// Classification
// ==========================================================================

func TestGetErrorCategory(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		category string
	}{
		{ErrCodeCapabilityDenied, "CAPABILITY"},
		{ErrCodeServiceTimeout, "TRANSPORT"},
		{ErrCodeSessionNotFound, "TRANSPORT"},
		{ErrCodeIncompleteData, "VALIDATION"},
		{ErrCodePartialRegistration, "PARTIAL"},
		{ErrCodeDuplicateRegistration, "DUPLICATE"},
		{ErrCodeUnauthorized, "AUTH"},
		{ErrCodeSessionActive, "STATE"},
		{ErrCodeInternal, "OTHER"},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.category, GetErrorCategory(tt.code))
		})
	}
}

func TestMessageKey(t *testing.T) {
	assert.Equal(t, "error.duplicate_registration", MessageKey(ErrCodeDuplicateRegistration))
	assert.Equal(t, "error.microphone_denied", MessageKey(ErrCodeCapabilityDenied))
	assert.Equal(t, "error.registration_failed", MessageKey(ErrCodeTransportFailure))
}

func TestServiceError_RetryableByStatus(t *testing.T) {
	assert.True(t, NewServiceError("api", 503, "").Retryable)
	assert.True(t, NewServiceError("api", 0, "").Retryable)
	assert.False(t, NewServiceError("api", 422, "").Retryable)
}

// ==========================================================================
// Unwrapping
// ==========================================================================

func TestAs_WrappedChain(t *testing.T) {
	inner := NewTimeoutError("transcription", nil)
	wrapped := fmt.Errorf("voice pipeline: %w", inner)

	got, ok := As(wrapped)
	require.True(t, ok)
	assert.Same(t, inner, got)
	assert.True(t, HasCode(wrapped, ErrCodeServiceTimeout))
	assert.True(t, IsRetryable(wrapped))
}

func TestNormalize_ForeignError(t *testing.T) {
	got := Normalize(fmt.Errorf("boom"))

	assert.Equal(t, ErrCodeInternal, got.Code)
	assert.Contains(t, got.Details, "boom")
}

// ==========================================================================
// BPMN conversion
// ==========================================================================

func TestConvertToBPMNError(t *testing.T) {
	t.Run("transient keeps retries", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewTransportError("api", fmt.Errorf("connection reset")))

		assert.Equal(t, string(ErrCodeTransportFailure), bpmn.Code)
		assert.Equal(t, 3, bpmn.Retries)
		assert.True(t, bpmn.Retryable)
	})

	t.Run("non-retryable drops retries", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewServiceError("api", 404, "gone"))

		assert.Equal(t, 0, bpmn.Retries)
		vars := bpmn.ToErrorVariables()
		assert.Equal(t, string(ErrCodeServiceFailure), vars["originalErrorCode"])
		assert.Equal(t, false, vars["retryable"])
	})
}

func TestDecide(t *testing.T) {
	transient := ConvertToBPMNError(NewTransportError("api", nil))
	permanent := ConvertToBPMNError(NewPartialRegistrationError("u1", nil))

	tests := []struct {
		name       string
		jobRetries int32
		bpmn       *BPMNError
		want       JobOutcome
	}{
		{"transient with broker budget", 5, transient, JobOutcome{Retries: 3}},
		{"broker budget lower", 2, transient, JobOutcome{Retries: 1}},
		{"last broker retry throws", 1, transient, JobOutcome{Throw: true}},
		{"permanent throws", 5, permanent, JobOutcome{Throw: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 1, Retries: tt.jobRetries}}
			assert.Equal(t, tt.want, Decide(job, tt.bpmn))
		})
	}
}
