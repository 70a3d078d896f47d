package privacy

import (
	"chatsync/internal/constants"
)

// MaskUserID shows only the trailing characters of a user identifier
// so logs stay correlatable without exposing the full ID.
func MaskUserID(userID string) string {
	if userID == "" {
		return ""
	}
	if len(userID) > constants.DefaultUserMaskLength {
		return "***" + userID[len(userID)-constants.DefaultUserMaskLength:]
	}
	return "***"
}

// ShortenMessageID truncates message and temp IDs for logging.
func ShortenMessageID(id string) string {
	if id == "" {
		return ""
	}
	if len(id) > constants.DefaultMessageIDLogLength {
		return id[:constants.DefaultMessageIDLogLength] + "..."
	}
	return id
}

// MaskSensitiveFields masks well-known sensitive keys in a log field
// map. Message text is never logged at all; this guards identifiers.
func MaskSensitiveFields(fields map[string]interface{}) map[string]interface{} {
	masked := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		switch k {
		case "user_id", "sender_id", "participant_id":
			if s, ok := v.(string); ok {
				masked[k] = MaskUserID(s)
				continue
			}
		case "message_id", "client_temp_id":
			if s, ok := v.(string); ok {
				masked[k] = ShortenMessageID(s)
				continue
			}
		case "text", "message_text":
			masked[k] = "[redacted]"
			continue
		}
		masked[k] = v
	}
	return masked
}
