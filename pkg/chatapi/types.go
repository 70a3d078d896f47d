package chatapi

import (
	"chatsync/internal/models"
)

// CreateConversationRequest asks for the conversation with exactly the
// given participant set, creating it when none exists. Safe to repeat
// with the same input.
type CreateConversationRequest struct {
	ParticipantIDs []string `json:"participantIds"`
	Title          string   `json:"title,omitempty"`
}

// SendMessageRequest carries an outgoing message. ClientTempID is the
// client-session-unique correlation token echoed back in the response.
type SendMessageRequest struct {
	Text         string `json:"text"`
	ClientTempID string `json:"clientTempId"`
}

// MarkReadRequest advances the caller's read marker through the given
// message. Regressive updates are silent no-ops on the server.
type MarkReadRequest struct {
	ThroughMessageID string `json:"throughMessageId"`
}

// ConversationListResponse is the conversation listing payload.
type ConversationListResponse struct {
	Conversations []models.ConversationSummary `json:"conversations"`
}

// MessagesResponse is the history fetch payload, in append order.
type MessagesResponse struct {
	Messages []models.Message `json:"messages"`
}

// ErrorResponse is the error payload for non-2xx responses.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
