// Package errors provides the standardized error taxonomy for registration sessions.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Local validation, raised before any network call
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeIncompleteData   ErrorCode = "INCOMPLETE_DATA"

	// Device capability
	ErrCodeCapabilityDenied ErrorCode = "CAPABILITY_DENIED"

	// Transport / service
	ErrCodeTransportFailure ErrorCode = "TRANSPORT_FAILURE"
	ErrCodeServiceFailure   ErrorCode = "SERVICE_FAILURE"
	ErrCodeServiceTimeout   ErrorCode = "SERVICE_TIMEOUT"
	ErrCodeInvalidResponse  ErrorCode = "INVALID_RESPONSE"
	ErrCodeSessionNotFound  ErrorCode = "SESSION_NOT_FOUND"

	// Account outcomes
	ErrCodeDuplicateRegistration ErrorCode = "DUPLICATE_REGISTRATION"
	ErrCodeInvalidCredentials    ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUnauthorized          ErrorCode = "UNAUTHORIZED"
	ErrCodePartialRegistration   ErrorCode = "PARTIAL_REGISTRATION"

	// Session state machine
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeTurnInProgress    ErrorCode = "TURN_IN_PROGRESS"
	ErrCodeSessionActive     ErrorCode = "SESSION_ACTIVE"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key to the error metadata and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewValidationError creates a non-retryable local validation error.
func NewValidationError(field, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Registration data is invalid",
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"field": field},
		Timestamp: time.Now().UTC(),
	}
}

// NewIncompleteDataError reports the fields still missing before completion.
func NewIncompleteDataError(missing []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeIncompleteData,
		Message:   "Required registration fields are missing",
		Details:   fmt.Sprintf("missing: %s", strings.Join(missing, ", ")),
		Retryable: false,
		Metadata:  map[string]interface{}{"missing": missing},
		Timestamp: time.Now().UTC(),
	}
}

// NewCapabilityDeniedError is raised when the microphone cannot be acquired.
func NewCapabilityDeniedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCapabilityDenied,
		Message:   "Microphone access denied or unavailable",
		Details:   errDetails(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransportError wraps a network level failure talking to a collaborator.
func NewTransportError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTransportFailure,
		Message:   fmt.Sprintf("Could not reach %s", service),
		Details:   errDetails(err),
		Retryable: true,
		Metadata:  map[string]interface{}{"service": service},
		Timestamp: time.Now().UTC(),
	}
}

// NewServiceError wraps a non-success reply from a collaborator.
func NewServiceError(service string, status int, detail string) *StandardError {
	return &StandardError{
		Code:      ErrCodeServiceFailure,
		Message:   fmt.Sprintf("%s returned an error", service),
		Details:   detail,
		Retryable: status >= 500 || status == 0,
		Metadata:  map[string]interface{}{"service": service, "status": status},
		Timestamp: time.Now().UTC(),
	}
}

// NewTimeoutError creates a retryable timeout error.
func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeServiceTimeout,
		Message:   fmt.Sprintf("%s timed out", service),
		Details:   errDetails(err),
		Retryable: true,
		Metadata:  map[string]interface{}{"service": service},
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidResponseError is raised when a reply cannot be decoded or fails its schema.
func NewInvalidResponseError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidResponse,
		Message:   fmt.Sprintf("Unexpected response from %s", service),
		Details:   errDetails(err),
		Retryable: true,
		Metadata:  map[string]interface{}{"service": service},
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionNotFoundError is raised when the conversation service lost the session.
func NewSessionNotFoundError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionNotFound,
		Message:   "Conversation session not found",
		Details:   fmt.Sprintf("sessionId: %s", sessionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateRegistrationError is raised when the phone number is already registered.
func NewDuplicateRegistrationError(detail string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateRegistration,
		Message:   "Phone number already registered",
		Details:   detail,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidCredentialsError is raised by login with a wrong phone/password pair.
func NewInvalidCredentialsError(detail string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidCredentials,
		Message:   "Invalid phone number or password",
		Details:   detail,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnauthorizedError is raised when the stored identity token is rejected.
func NewUnauthorizedError(detail string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthorized,
		Message:   "Authentication required",
		Details:   detail,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPartialRegistrationError reports an identity created without its worker profile.
func NewPartialRegistrationError(userID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePartialRegistration,
		Message:   "Account created but worker profile could not be saved",
		Details:   errDetails(err),
		Retryable: true,
		Metadata:  map[string]interface{}{"userId": userID},
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTransitionError is raised for an undefined (state, event) pair.
func NewInvalidTransitionError(machine, state, event string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTransition,
		Message:   fmt.Sprintf("%s cannot handle %s while %s", machine, event, state),
		Details:   fmt.Sprintf("state: %s, event: %s", state, event),
		Retryable: false,
		Metadata:  map[string]interface{}{"state": state, "event": event},
		Timestamp: time.Now().UTC(),
	}
}

// NewTurnInProgressError rejects a second conversation turn while one is in flight.
func NewTurnInProgressError() *StandardError {
	return &StandardError{
		Code:      ErrCodeTurnInProgress,
		Message:   "A message is already being processed",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionActiveError rejects opening a second signup surface.
func NewSessionActiveError(active string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionActive,
		Message:   "Another registration session is already open",
		Details:   fmt.Sprintf("active: %s", active),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   errDetails(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func errDetails(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended job retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeTransportFailure,
		ErrCodeServiceFailure,
		ErrCodeInvalidResponse:
		return 3

	case ErrCodeServiceTimeout:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// As extracts a StandardError from an error chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// Normalize always returns a StandardError, wrapping foreign errors as internal.
func Normalize(err error) *StandardError {
	if stdErr, ok := As(err); ok {
		return stdErr
	}
	return NewInternalError(err)
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := As(err)
	return ok && stdErr.Code == code
}

// IsRetryable reports whether the user can retry the operation that produced err.
func IsRetryable(err error) bool {
	stdErr, ok := As(err)
	return ok && stdErr.Retryable
}

// GetErrorCategory returns the taxonomy bucket of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeCapabilityDenied:
		return "CAPABILITY"
	case ErrCodeTransportFailure, ErrCodeServiceFailure, ErrCodeServiceTimeout,
		ErrCodeInvalidResponse, ErrCodeSessionNotFound:
		return "TRANSPORT"
	case ErrCodeValidationFailed, ErrCodeIncompleteData:
		return "VALIDATION"
	case ErrCodePartialRegistration:
		return "PARTIAL"
	case ErrCodeDuplicateRegistration:
		return "DUPLICATE"
	case ErrCodeInvalidCredentials, ErrCodeUnauthorized:
		return "AUTH"
	case ErrCodeInvalidTransition, ErrCodeTurnInProgress, ErrCodeSessionActive:
		return "STATE"
	default:
		return "OTHER"
	}
}

// MessageKey maps an error code to the catalog key of its user-visible message.
func MessageKey(code ErrorCode) string {
	switch code {
	case ErrCodeValidationFailed:
		return "error.validation"
	case ErrCodeIncompleteData:
		return "error.incomplete_data"
	case ErrCodeCapabilityDenied:
		return "error.microphone_denied"
	case ErrCodeServiceTimeout:
		return "error.timeout"
	case ErrCodeDuplicateRegistration:
		return "error.duplicate_registration"
	case ErrCodeInvalidCredentials:
		return "error.invalid_credentials"
	case ErrCodePartialRegistration:
		return "error.partial_registration"
	case ErrCodeSessionNotFound:
		return "error.session_expired"
	case ErrCodeTurnInProgress:
		return "error.turn_in_progress"
	default:
		return "error.registration_failed"
	}
}
