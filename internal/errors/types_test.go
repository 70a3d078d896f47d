package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorError(t *testing.T) {
	err := New(ErrCodeEmptyMessage, "message text is empty after trimming")
	assert.Equal(t, "EMPTY_MESSAGE: message text is empty after trimming", err.Error())

	wrapped := Wrap(fmt.Errorf("disk full"), ErrCodeDatabaseQuery, "insert failed")
	assert.Equal(t, "DATABASE_QUERY: insert failed: disk full", wrapped.Error())
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(cause, ErrCodeInternalError, "something broke")
	assert.Equal(t, cause, err.Unwrap())
}

func TestWithContext(t *testing.T) {
	err := New(ErrCodeNotFound, "conversation not found").
		WithContext("conversation_id", "conv-1").
		WithContext("attempt", 2)

	require.NotNil(t, err.Context)
	assert.Equal(t, "conv-1", err.Context["conversation_id"])
	assert.Equal(t, 2, err.Context["attempt"])
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(WrapRetryable(fmt.Errorf("x"), ErrCodePollFailed, "poll failed")))
	assert.False(t, IsRetryable(New(ErrCodeEmptyMessage, "empty")))
	assert.False(t, IsRetryable(fmt.Errorf("plain error")))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeSendFailed, GetCode(New(ErrCodeSendFailed, "send failed")))
	assert.Equal(t, ErrCodeInternalError, GetCode(fmt.Errorf("plain error")))
	assert.True(t, HasCode(New(ErrCodePollFailed, "x"), ErrCodePollFailed))
	assert.False(t, HasCode(New(ErrCodePollFailed, "x"), ErrCodeSendFailed))
}

func TestGetUserMessage(t *testing.T) {
	withMsg := New(ErrCodeEmptyMessage, "internal detail").WithUserMessage("Message cannot be empty")
	assert.Equal(t, "Message cannot be empty", GetUserMessage(withMsg))

	assert.Equal(t, "An internal error occurred", GetUserMessage(New(ErrCodeInternalError, "detail")))
	assert.Equal(t, "An internal error occurred", GetUserMessage(fmt.Errorf("plain")))
}

func TestNewAPIErrorClassification(t *testing.T) {
	tests := []struct {
		status    int
		wantCode  ErrorCode
		retryable bool
	}{
		{401, ErrCodeAuthorization, false},
		{403, ErrCodeAuthorization, false},
		{404, ErrCodeInternalError, false},
		{408, ErrCodeInternalError, true},
		{429, ErrCodeInternalError, true},
		{500, ErrCodeInternalError, true},
		{503, ErrCodeInternalError, true},
	}

	for _, tt := range tests {
		err := NewAPIError("/api/v1/conversations", tt.status, fmt.Errorf("status %d", tt.status))
		assert.Equal(t, tt.wantCode, err.Code, "status %d", tt.status)
		assert.Equal(t, tt.retryable, err.Retryable, "status %d", tt.status)
	}
}

func TestNewSendError(t *testing.T) {
	transport := NewSendError(0, fmt.Errorf("connection refused"))
	assert.Equal(t, ErrCodeSendFailed, transport.Code)
	assert.Nil(t, transport.Context)

	rejected := NewSendError(422, fmt.Errorf("rejected"))
	assert.Equal(t, 422, rejected.Context["status_code"])
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("message", "m-1")
	assert.Equal(t, ErrCodeNotFound, err.Code)
	assert.Equal(t, "message", err.Context["resource"])
	assert.Equal(t, "m-1", err.Context["id"])
}
