package service

import (
	"context"

	"chatsync/internal/privacy"
)

// ContextKey is a package-local type to prevent context key collisions
type ContextKey string

// VerboseContextKey is the strongly-typed context key for verbose logging flag
const VerboseContextKey ContextKey = "verbose"

// IsVerboseLogging checks if verbose logging is enabled from context
func IsVerboseLogging(ctx context.Context) bool {
	if verbose, ok := ctx.Value(VerboseContextKey).(bool); ok {
		return verbose
	}
	return false
}

// Standard field names. Use these exact names for consistency across
// all logging calls.
const (
	// Core identifiers
	LogFieldConversationID = "conversation_id"
	LogFieldMessageID      = "message_id"
	LogFieldClientTempID   = "client_temp_id"
	LogFieldUserID         = "user_id"
	LogFieldSenderID       = "sender_id"

	// Service and operation fields
	LogFieldService   = "service"
	LogFieldOperation = "operation"
	LogFieldComponent = "component"
	LogFieldMethod    = "method"

	// Performance and metrics
	LogFieldDuration = "duration_ms"
	LogFieldCount    = "count"
	LogFieldSize     = "size_bytes"

	// Network
	LogFieldURL        = "url"
	LogFieldEndpoint   = "endpoint"
	LogFieldStatusCode = "status_code"
	LogFieldRemoteIP   = "remote_ip"
	LogFieldRequestID  = "request_id"
	LogFieldTraceID    = "trace_id"

	// Error and debugging
	LogFieldErrorCode = "error_code"
	LogFieldAttempt   = "attempt"
)

// SanitizeUserID masks a user identifier for logging.
func SanitizeUserID(userID string) string {
	return privacy.MaskUserID(userID)
}

// SanitizeMessageID shortens a message or temp ID for logging.
func SanitizeMessageID(msgID string) string {
	return privacy.ShortenMessageID(msgID)
}
