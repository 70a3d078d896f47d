package validation

import (
	"strings"
	"testing"

	"chatsync/internal/constants"
	"chatsync/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUserID(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		wantErr bool
	}{
		{name: "valid", userID: "alice"},
		{name: "valid uuid", userID: "7b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"},
		{name: "empty", userID: "", wantErr: true},
		{name: "too long", userID: strings.Repeat("a", constants.MaxIDLength+1), wantErr: true},
		{name: "newline", userID: "alice\nbob", wantErr: true},
		{name: "null byte", userID: "alice\x00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUserID(tt.userID)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateMessageText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		want     string
		wantCode errors.ErrorCode
	}{
		{name: "plain", text: "hello", want: "hello"},
		{name: "trimmed", text: "  hello  ", want: "hello"},
		{name: "internal whitespace kept", text: " a  b ", want: "a  b"},
		{name: "empty", text: "", wantCode: errors.ErrCodeEmptyMessage},
		{name: "whitespace only", text: " \t\n ", wantCode: errors.ErrCodeEmptyMessage},
		{name: "too long", text: strings.Repeat("x", constants.MaxMessageTextLength+1), wantCode: errors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateMessageText(tt.text)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, tt.wantCode))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateMessageTextMaxLengthBoundary(t *testing.T) {
	exact := strings.Repeat("x", constants.MaxMessageTextLength)
	got, err := ValidateMessageText(exact)
	require.NoError(t, err)
	assert.Len(t, got, constants.MaxMessageTextLength)
}

func TestValidateIDs(t *testing.T) {
	assert.NoError(t, ValidateConversationID("conv-1"))
	assert.Error(t, ValidateConversationID(""))
	assert.NoError(t, ValidateMessageID("m-1"))
	assert.Error(t, ValidateMessageID(strings.Repeat("m", constants.MaxIDLength+1)))
}
