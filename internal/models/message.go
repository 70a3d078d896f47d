package models

import (
	"time"
)

// Message is a confirmed, server-assigned message in a conversation log.
// Seq is the insertion order at the store and the tie-break for messages
// that share a CreatedAt timestamp.
type Message struct {
	ID             string    `json:"id" db:"id"`
	ConversationID string    `json:"conversationId" db:"conversation_id"`
	SenderID       string    `json:"senderId" db:"sender_id"`
	Text           string    `json:"text" db:"text"`
	ClientTempID   string    `json:"clientTempId,omitempty" db:"client_temp_id"`
	Seq            int64     `json:"-" db:"seq"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// MessageSummary is the denormalized last-message cache kept on a
// conversation for listing.
type MessageSummary struct {
	Text      string    `json:"text"`
	SenderID  string    `json:"senderId"`
	Timestamp time.Time `json:"timestamp"`
}
