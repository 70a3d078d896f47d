package validation

import (
	"fmt"
	"strings"

	"chatsync/internal/constants"
	"chatsync/internal/errors"
)

// ValidateUserID validates a user identifier for length and control
// characters. Existence is checked separately against the directory.
func ValidateUserID(userID string) error {
	if userID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "user ID cannot be empty")
	}
	if len(userID) > constants.MaxIDLength {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("user ID too long (max %d characters)", constants.MaxIDLength))
	}
	return validateNoControlChars(userID, "user ID")
}

// ValidateConversationID validates a conversation identifier.
func ValidateConversationID(conversationID string) error {
	if conversationID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "conversation ID cannot be empty")
	}
	if len(conversationID) > constants.MaxIDLength {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("conversation ID too long (max %d characters)", constants.MaxIDLength))
	}
	return validateNoControlChars(conversationID, "conversation ID")
}

// ValidateMessageID validates a message identifier.
func ValidateMessageID(messageID string) error {
	if messageID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "message ID cannot be empty")
	}
	if len(messageID) > constants.MaxIDLength {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("message ID too long (max %d characters)", constants.MaxIDLength))
	}
	return validateNoControlChars(messageID, "message ID")
}

// ValidateMessageText checks outgoing message content. Returns
// EmptyMessage when the trimmed text is blank; this is the local
// validation that never reaches the network.
func ValidateMessageText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", errors.NewEmptyMessageError()
	}
	if len(trimmed) > constants.MaxMessageTextLength {
		return "", errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("message too long (max %d characters)", constants.MaxMessageTextLength))
	}
	return trimmed, nil
}

func validateNoControlChars(value, what string) error {
	for _, char := range value {
		if char == '\x00' || char == '\n' || char == '\r' || char == '\t' {
			return errors.New(errors.ErrCodeInvalidInput,
				fmt.Sprintf("%s contains invalid characters", what))
		}
	}
	return nil
}
