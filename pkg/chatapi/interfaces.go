package chatapi

import (
	"context"

	"chatsync/internal/models"
)

// MessageFetcher fetches conversation history. An empty afterID asks
// for the most recent bounded page; otherwise only messages strictly
// after the given message are returned, in append order.
type MessageFetcher interface {
	FetchMessages(ctx context.Context, conversationID, afterID string) ([]models.Message, error)
}

// MessageSender dispatches an outgoing message. The returned message is
// the confirmed server record, echoing the request's ClientTempID.
type MessageSender interface {
	SendMessage(ctx context.Context, conversationID string, req SendMessageRequest) (*models.Message, error)
}

// Client is the full messaging API surface consumed by client-side
// components.
type Client interface {
	MessageFetcher
	MessageSender
	ListConversations(ctx context.Context) ([]models.ConversationSummary, error)
	CreateConversation(ctx context.Context, req CreateConversationRequest) (*models.Conversation, error)
	MarkRead(ctx context.Context, conversationID, throughMessageID string) error
}
