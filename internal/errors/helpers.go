package errors

import (
	"fmt"
)

// Common error creators for frequent use cases

// NewValidationError creates a validation error with field context
func NewValidationError(field, message string) *AppError {
	return New(ErrCodeValidationFailed, message).
		WithContext("field", field).
		WithUserMessage(fmt.Sprintf("Invalid %s: %s", field, message))
}

// NewInvalidParticipantsError creates an error for a degenerate or
// unresolvable participant set.
func NewInvalidParticipantsError(message string) *AppError {
	return New(ErrCodeInvalidParticipants, message).
		WithUserMessage("Conversation participants are invalid")
}

// NewEmptyMessageError creates the local validation error for a blank
// outgoing message.
func NewEmptyMessageError() *AppError {
	return New(ErrCodeEmptyMessage, "message text is empty after trimming").
		WithUserMessage("Message cannot be empty")
}

// NewDatabaseError creates a database error with operation context
func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseQuery, fmt.Sprintf("database %s failed", operation)).
		WithContext("operation", operation).
		WithUserMessage("Database operation failed")
}

// NewSendError classifies a failed message send. Server-side rejections
// carry the HTTP status; transport failures have statusCode 0.
func NewSendError(statusCode int, err error) *AppError {
	appErr := Wrap(err, ErrCodeSendFailed, "message send failed").
		WithUserMessage("Message could not be sent")
	if statusCode > 0 {
		appErr = appErr.WithContext("status_code", statusCode)
	}
	return appErr
}

// NewPollError classifies a failed history poll. Always retryable: the
// sync engine retries on its next interval.
func NewPollError(err error) *AppError {
	return WrapRetryable(err, ErrCodePollFailed, "message poll failed")
}

// NewAPIError creates an error for messaging API calls, marking
// transient status codes retryable.
func NewAPIError(endpoint string, statusCode int, err error) *AppError {
	appErr := Wrap(err, ErrCodeInternalError, "messaging API call failed").
		WithContext("endpoint", endpoint).
		WithContext("status_code", statusCode)

	if statusCode == 401 || statusCode == 403 {
		appErr.Code = ErrCodeAuthorization
	}
	if statusCode >= 500 || statusCode == 429 || statusCode == 408 {
		appErr.Retryable = true
	}
	return appErr
}

// NewTimeoutError creates a timeout error with context
func NewTimeoutError(operation string, duration string) *AppError {
	return New(ErrCodeTimeout, fmt.Sprintf("%s timed out after %s", operation, duration)).
		WithContext("operation", operation).
		WithContext("timeout", duration).
		WithUserMessage("Operation timed out, please try again")
}

// NewNotFoundError creates a not-found error for a named resource
func NewNotFoundError(resource, id string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithContext("resource", resource).
		WithContext("id", id)
}
