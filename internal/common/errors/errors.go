// Package errors provides standardized error handling for the reminder
// dispatcher.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeStoreUnreachable    ErrorCode = "STORE_UNREACHABLE"
	ErrCodeMarkSentFailed      ErrorCode = "MARK_SENT_FAILED"
	ErrCodePushSendFailed      ErrorCode = "PUSH_SEND_FAILED"
	ErrCodeSubscriptionExpired ErrorCode = "SUBSCRIPTION_EXPIRED"
	ErrCodeSubscriptionInvalid ErrorCode = "SUBSCRIPTION_INVALID"
	ErrCodeNoAudienceTier      ErrorCode = "NO_AUDIENCE_TIER"
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

// NewStoreUnreachableError creates a retryable store access error. A
// failed due-record query aborts the whole scan pass; the next scheduled
// invocation retries it.
func NewStoreUnreachableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreUnreachable,
		Message:   "Notification store query failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewMarkSentFailedError creates a retryable write-back error. The
// record stays pending and will be reprocessed, at the risk of a
// duplicate delivery.
func NewMarkSentFailedError(recordID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMarkSentFailed,
		Message:   "Failed to mark notification as sent",
		Details:   fmt.Sprintf("recordId: %s, error: %s", recordID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPushSendFailedError creates a non-retryable delivery error. A
// failed send is logged and never blocks the rest of the audience.
func NewPushSendFailedError(endpoint string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePushSendFailed,
		Message:   "Web Push delivery failed",
		Details:   fmt.Sprintf("endpoint: %s, error: %s", truncateEndpoint(endpoint), err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubscriptionExpiredError marks a push endpoint that answered 404 or
// 410. The subscription is left in the store; removal is manual.
func NewSubscriptionExpiredError(endpoint string, statusCode int) *StandardError {
	return &StandardError{
		Code:      ErrCodeSubscriptionExpired,
		Message:   "Push subscription is expired or revoked",
		Details:   fmt.Sprintf("endpoint: %s, status: %d", truncateEndpoint(endpoint), statusCode),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubscriptionInvalidError creates a non-retryable validation error
// for a malformed subscription descriptor.
func NewSubscriptionInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSubscriptionInvalid,
		Message:   "Invalid push subscription payload",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoAudienceTierError describes a due record whose lead time matches
// no configured window. Not a failure: the record is dropped rather than
// reprocessed forever.
func NewNoAudienceTierError(recordID string, leadDays float64) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoAudienceTier,
		Message:   "Reminder lead time matches no audience tier",
		Details:   fmt.Sprintf("recordId: %s, leadDays: %.3f", recordID, leadDays),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// Endpoints are long opaque URLs; keep logs readable.
func truncateEndpoint(endpoint string) string {
	if len(endpoint) > 60 {
		return endpoint[:60] + "..."
	}
	return endpoint
}
