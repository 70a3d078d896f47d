package models

import "time"

// Conversation is a thread between a fixed participant set. The
// participant set is immutable after creation; only message appends
// mutate the record, by refreshing LastMessage.
type Conversation struct {
	ID             string          `json:"id" db:"id"`
	Title          string          `json:"title,omitempty" db:"title"`
	ParticipantIDs []string        `json:"participantIds"`
	LastMessage    *MessageSummary `json:"lastMessageSummary,omitempty"`
	CreatedAt      time.Time       `json:"createdAt" db:"created_at"`
}

// ConversationSummary annotates a conversation with the viewing user's
// unread count for listing.
type ConversationSummary struct {
	Conversation
	UnreadCount int `json:"unreadCount"`
}

// ReadMarker is a per-user, per-conversation pointer to the newest
// message the user has seen. Advances monotonically by message Seq.
type ReadMarker struct {
	ConversationID string    `json:"conversationId" db:"conversation_id"`
	UserID         string    `json:"userId" db:"user_id"`
	MessageID      string    `json:"messageId" db:"message_id"`
	MessageSeq     int64     `json:"-" db:"message_seq"`
	MarkedAt       time.Time `json:"markedAt" db:"marked_at"`
}
