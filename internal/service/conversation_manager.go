package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"chatsync/internal/errors"
	"chatsync/internal/metrics"
	"chatsync/internal/models"
	"chatsync/internal/validation"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ConversationStore is the persistence surface the manager needs for
// conversations and read markers.
type ConversationStore interface {
	CreateConversation(ctx context.Context, conv *models.Conversation, participantKey string) error
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	GetConversationsByParticipantKey(ctx context.Context, key string) ([]*models.Conversation, error)
	GetConversationsForUser(ctx context.Context, userID string) ([]*models.Conversation, error)
	SaveReadMarker(ctx context.Context, marker *models.ReadMarker) (bool, error)
	GetReadMarker(ctx context.Context, conversationID, userID string) (*models.ReadMarker, error)
}

// MessageStore is the persistence surface for the append-only message
// log.
type MessageStore interface {
	InsertMessage(ctx context.Context, msg *models.Message) error
	GetMessageByID(ctx context.Context, id string) (*models.Message, error)
	ListMessagesAfterSeq(ctx context.Context, conversationID string, afterSeq int64, limit int) ([]models.Message, error)
	ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error)
	CountMessagesAfterSeq(ctx context.Context, conversationID string, afterSeq int64) (int, error)
}

// ConversationManager owns conversation lifecycle and the server side
// of the message log: listing with unread counts, get-or-create by
// participant set, appends, history pages and read markers.
type ConversationManager interface {
	ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error)
	CreateOrGetConversation(ctx context.Context, participantIDs []string, title string) (*models.Conversation, error)
	AppendMessage(ctx context.Context, conversationID, senderID, text, clientTempID string) (*models.Message, error)
	FetchMessages(ctx context.Context, conversationID, userID, afterID string, limit int) ([]models.Message, error)
	MarkRead(ctx context.Context, conversationID, userID, throughMessageID string) error
}

type conversationManager struct {
	conversations ConversationStore
	messages      MessageStore
	users         UserDirectory
	logger        *logrus.Logger
}

func NewConversationManager(conversations ConversationStore, messages MessageStore, users UserDirectory, logger *logrus.Logger) ConversationManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &conversationManager{
		conversations: conversations,
		messages:      messages,
		users:         users,
		logger:        logger,
	}
}

// NormalizeParticipants deduplicates and sorts a participant set.
// Returns InvalidParticipants when fewer than two distinct IDs remain.
func NormalizeParticipants(participantIDs []string) ([]string, error) {
	seen := make(map[string]bool, len(participantIDs))
	normalized := make([]string, 0, len(participantIDs))
	for _, id := range participantIDs {
		if err := validation.ValidateUserID(id); err != nil {
			return nil, errors.NewInvalidParticipantsError(err.Error())
		}
		if !seen[id] {
			seen[id] = true
			normalized = append(normalized, id)
		}
	}
	if len(normalized) < 2 {
		return nil, errors.NewInvalidParticipantsError("at least 2 distinct participants required")
	}
	sort.Strings(normalized)
	return normalized, nil
}

// participantKey is the order-independent lookup key for a participant
// set.
func participantKey(normalized []string) string {
	return strings.Join(normalized, ",")
}

func (m *conversationManager) ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	if err := validation.ValidateUserID(userID); err != nil {
		return nil, err
	}

	convs, err := m.conversations.GetConversationsForUser(ctx, userID)
	if err != nil {
		return nil, errors.NewDatabaseError("list conversations", err)
	}

	summaries := make([]models.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		unread, err := m.unreadCount(ctx, conv.ID, userID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, models.ConversationSummary{
			Conversation: *conv,
			UnreadCount:  unread,
		})
	}

	// Most recently active first; conversations with no messages sink
	// to the end. The store returns creation order, so the stable sort
	// keeps it as the tie-break.
	sort.SliceStable(summaries, func(i, j int) bool {
		li, lj := summaries[i].LastMessage, summaries[j].LastMessage
		switch {
		case li == nil:
			return false
		case lj == nil:
			return true
		default:
			return li.Timestamp.After(lj.Timestamp)
		}
	})

	return summaries, nil
}

func (m *conversationManager) CreateOrGetConversation(ctx context.Context, participantIDs []string, title string) (*models.Conversation, error) {
	normalized, err := NormalizeParticipants(participantIDs)
	if err != nil {
		return nil, err
	}

	for _, id := range normalized {
		exists, err := m.users.UserExists(ctx, id)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternalError, "user lookup failed")
		}
		if !exists {
			return nil, errors.NewInvalidParticipantsError("unknown participant").
				WithContext("participant_id", id)
		}
	}

	key := participantKey(normalized)
	existing, err := m.conversations.GetConversationsByParticipantKey(ctx, key)
	if err != nil {
		return nil, errors.NewDatabaseError("lookup conversation", err)
	}
	for _, conv := range existing {
		// Only an explicit, differing title forces a fresh thread.
		if title == "" || conv.Title == title {
			return conv, nil
		}
	}

	conv := &models.Conversation{
		ID:             uuid.NewString(),
		Title:          title,
		ParticipantIDs: normalized,
		CreatedAt:      time.Now().UTC(),
	}
	if err := m.conversations.CreateConversation(ctx, conv, key); err != nil {
		return nil, errors.NewDatabaseError("create conversation", err)
	}

	metrics.IncrementCounter("conversations_created_total", nil, "Conversations created")
	m.logger.WithFields(logrus.Fields{
		LogFieldConversationID: conv.ID,
		LogFieldCount:          len(normalized),
	}).Info("Conversation created")

	return conv, nil
}

func (m *conversationManager) AppendMessage(ctx context.Context, conversationID, senderID, text, clientTempID string) (*models.Message, error) {
	if err := validation.ValidateConversationID(conversationID); err != nil {
		return nil, err
	}
	if err := validation.ValidateUserID(senderID); err != nil {
		return nil, err
	}
	trimmed, err := validation.ValidateMessageText(text)
	if err != nil {
		return nil, err
	}

	conv, err := m.requireParticipant(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		Text:           trimmed,
		ClientTempID:   clientTempID,
		CreatedAt:      time.Now().UTC(),
	}
	if err := m.messages.InsertMessage(ctx, msg); err != nil {
		return nil, errors.NewDatabaseError("insert message", err)
	}

	metrics.IncrementCounter("messages_appended_total", nil, "Messages appended to conversation logs")
	m.logger.WithFields(logrus.Fields{
		LogFieldConversationID: conversationID,
		LogFieldMessageID:      SanitizeMessageID(msg.ID),
		LogFieldSenderID:       SanitizeUserID(senderID),
	}).Debug("Message appended")

	return msg, nil
}

func (m *conversationManager) FetchMessages(ctx context.Context, conversationID, userID, afterID string, limit int) ([]models.Message, error) {
	if err := validation.ValidateConversationID(conversationID); err != nil {
		return nil, err
	}
	if _, err := m.requireParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 1
	}

	if afterID == "" {
		msgs, err := m.messages.ListRecentMessages(ctx, conversationID, limit)
		if err != nil {
			return nil, errors.NewDatabaseError("fetch recent messages", err)
		}
		return msgs, nil
	}

	after, err := m.messages.GetMessageByID(ctx, afterID)
	if err != nil {
		return nil, errors.NewDatabaseError("resolve history cursor", err)
	}
	if after == nil || after.ConversationID != conversationID {
		return nil, errors.NewNotFoundError("message", afterID)
	}

	msgs, err := m.messages.ListMessagesAfterSeq(ctx, conversationID, after.Seq, limit)
	if err != nil {
		return nil, errors.NewDatabaseError("fetch messages", err)
	}
	return msgs, nil
}

func (m *conversationManager) MarkRead(ctx context.Context, conversationID, userID, throughMessageID string) error {
	if err := validation.ValidateMessageID(throughMessageID); err != nil {
		return err
	}
	if _, err := m.requireParticipant(ctx, conversationID, userID); err != nil {
		return err
	}

	msg, err := m.messages.GetMessageByID(ctx, throughMessageID)
	if err != nil {
		return errors.NewDatabaseError("resolve read marker message", err)
	}
	if msg == nil || msg.ConversationID != conversationID {
		return errors.NewNotFoundError("message", throughMessageID)
	}

	advanced, err := m.conversations.SaveReadMarker(ctx, &models.ReadMarker{
		ConversationID: conversationID,
		UserID:         userID,
		MessageID:      msg.ID,
		MessageSeq:     msg.Seq,
	})
	if err != nil {
		return errors.NewDatabaseError("save read marker", err)
	}
	if !advanced {
		// Stale or regressive marker: deliberate silent no-op.
		m.logger.WithFields(logrus.Fields{
			LogFieldConversationID: conversationID,
			LogFieldUserID:         SanitizeUserID(userID),
			LogFieldMessageID:      SanitizeMessageID(throughMessageID),
		}).Debug("Ignoring stale read marker")
	}
	return nil
}

func (m *conversationManager) unreadCount(ctx context.Context, conversationID, userID string) (int, error) {
	marker, err := m.conversations.GetReadMarker(ctx, conversationID, userID)
	if err != nil {
		return 0, errors.NewDatabaseError("get read marker", err)
	}
	var afterSeq int64
	if marker != nil {
		afterSeq = marker.MessageSeq
	}
	count, err := m.messages.CountMessagesAfterSeq(ctx, conversationID, afterSeq)
	if err != nil {
		return 0, errors.NewDatabaseError("count unread messages", err)
	}
	return count, nil
}

// requireParticipant loads the conversation and checks the user is a
// member, so non-participants can neither read nor write a thread.
func (m *conversationManager) requireParticipant(ctx context.Context, conversationID, userID string) (*models.Conversation, error) {
	if err := validation.ValidateUserID(userID); err != nil {
		return nil, err
	}
	conv, err := m.conversations.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, errors.NewDatabaseError("get conversation", err)
	}
	if conv == nil {
		return nil, errors.NewNotFoundError("conversation", conversationID)
	}
	for _, id := range conv.ParticipantIDs {
		if id == userID {
			return conv, nil
		}
	}
	return nil, errors.New(errors.ErrCodeAuthorization, "user is not a conversation participant").
		WithContext("conversation_id", conversationID)
}
