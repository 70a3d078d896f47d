package service

import (
	"context"
	"sync"
	"time"

	"chatsync/internal/constants"
	"chatsync/internal/errors"
	"chatsync/internal/metrics"
	"chatsync/internal/validation"
	"chatsync/pkg/chatapi"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Composer sends messages optimistically: the entry appears as pending
// in the visible sequence immediately, then confirms or fails when the
// server acknowledges. Confirmation flows through the same Reconcile
// path as polling, so an acknowledgement and a poll result for the same
// message cannot produce a duplicate.
type Composer struct {
	client      chatapi.MessageSender
	engine      *SyncEngine
	logger      *logrus.Logger
	sendTimeout time.Duration
	wg          sync.WaitGroup
}

func NewComposer(client chatapi.MessageSender, engine *SyncEngine, sendTimeoutSec int, logger *logrus.Logger) *Composer {
	if sendTimeoutSec <= 0 {
		sendTimeoutSec = constants.DefaultSendTimeoutSec
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Composer{
		client:      client,
		engine:      engine,
		logger:      logger,
		sendTimeout: time.Duration(sendTimeoutSec) * time.Second,
	}
}

// Send appends a pending entry to the open conversation and dispatches
// the message in the background. Returns the client temp ID that
// tracks the entry through confirmation or failure.
//
// Empty text (after trimming) is rejected locally; nothing is
// dispatched and no entry appears.
func (c *Composer) Send(ctx context.Context, conversationID, senderID, text string) (string, error) {
	state, ok := c.engine.State(conversationID)
	if !ok {
		return "", errors.NewNotFoundError("conversation session", conversationID)
	}

	trimmed, err := validation.ValidateMessageText(text)
	if err != nil {
		return "", err
	}

	tempID := uuid.NewString()
	if err := state.AppendPending(tempID, senderID, trimmed); err != nil {
		return "", err
	}

	c.wg.Add(1)
	go c.dispatch(state, conversationID, senderID, trimmed, tempID)

	c.logger.WithFields(logrus.Fields{
		LogFieldConversationID: conversationID,
		LogFieldClientTempID:   SanitizeMessageID(tempID),
	}).Debug("Message dispatched")

	return tempID, nil
}

// Retry re-sends a failed entry. The failed entry is removed and the
// text goes out again as a brand new pending entry with a fresh temp
// ID, so the server sees a distinct message and the old failure leaves
// no residue.
func (c *Composer) Retry(ctx context.Context, conversationID, clientTempID string) (string, error) {
	state, ok := c.engine.State(conversationID)
	if !ok {
		return "", errors.NewNotFoundError("conversation session", conversationID)
	}

	entry, ok := state.FailedEntry(clientTempID)
	if !ok {
		return "", errors.NewNotFoundError("failed message", clientTempID)
	}
	if !state.RemoveFailed(clientTempID) {
		return "", errors.NewNotFoundError("failed message", clientTempID)
	}

	metrics.IncrementCounter("composer_retries_total", nil, "Failed sends retried")
	return c.Send(ctx, conversationID, entry.SenderID, entry.Text)
}

// Wait blocks until all in-flight dispatches have settled. Used during
// shutdown and in tests.
func (c *Composer) Wait() {
	c.wg.Wait()
}

// dispatch runs detached from the caller's context: navigating away
// from a conversation must not cancel a send that is already on the
// wire. The closed thread state drops the result instead.
func (c *Composer) dispatch(state *ThreadState, conversationID, senderID, text, tempID string) {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), c.sendTimeout)
	defer cancel()

	start := time.Now()
	msg, err := c.client.SendMessage(ctx, conversationID, chatapi.SendMessageRequest{
		Text:         text,
		ClientTempID: tempID,
	})
	metrics.RecordTimer("composer_send_duration", time.Since(start), nil, "Message send round-trip time")

	if err != nil {
		state.MarkFailed(tempID)
		metrics.IncrementCounter("composer_send_failures_total", nil, "Message sends that failed")
		c.logger.WithFields(logrus.Fields{
			LogFieldConversationID: conversationID,
			LogFieldClientTempID:   SanitizeMessageID(tempID),
			LogFieldErrorCode:      errors.GetCode(err),
		}).WithError(err).Warn("Message send failed")
		return
	}

	confirmed := *msg
	if confirmed.ClientTempID == "" {
		// Server did not echo the temp ID; restore it from the local
		// mapping so the pending entry still confirms in place.
		confirmed.ClientTempID = tempID
	}
	state.Reconcile(confirmed)

	metrics.IncrementCounter("composer_sends_total", nil, "Messages sent successfully")
	c.logger.WithFields(logrus.Fields{
		LogFieldConversationID: conversationID,
		LogFieldMessageID:      SanitizeMessageID(confirmed.ID),
		LogFieldClientTempID:   SanitizeMessageID(tempID),
	}).Debug("Message confirmed")
}
