package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"chatsync/internal/constants"
	"chatsync/internal/errors"
	"chatsync/internal/metrics"
	"chatsync/internal/models"
	"chatsync/pkg/chatapi"
	"chatsync/pkg/synchealth"

	"github.com/sirupsen/logrus"
)

// SyncEngine keeps the visible state of each open conversation
// consistent with the server log by periodic polling. One session per
// open conversation; sessions poll independently so a slow
// conversation never stalls another.
type SyncEngine struct {
	client chatapi.MessageFetcher
	logger *logrus.Logger

	mu               sync.RWMutex
	pollInterval     time.Duration
	pageSize         int
	failureThreshold int
	sessions         map[string]*conversationSession
}

type conversationSession struct {
	conversationID string
	state          *ThreadState
	health         *synchealth.Tracker
	cancel         context.CancelFunc
	wg             sync.WaitGroup

	// pollMu serializes poll attempts so a slow in-flight fetch and
	// the next tick cannot interleave their high-water updates.
	pollMu     sync.Mutex
	lastSeenID string
}

func NewSyncEngine(client chatapi.MessageFetcher, cfg models.SyncConfig, logger *logrus.Logger) *SyncEngine {
	if logger == nil {
		logger = logrus.New()
	}
	engine := &SyncEngine{
		client:   client,
		logger:   logger,
		sessions: make(map[string]*conversationSession),
	}
	engine.ApplyConfig(cfg)
	return engine
}

// ApplyConfig updates poll tuning. Existing sessions keep their
// ticker interval until reopened; thresholds apply to new sessions.
func (e *SyncEngine) ApplyConfig(cfg models.SyncConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pollInterval = time.Duration(cfg.PollIntervalSec) * time.Second
	if e.pollInterval <= 0 {
		e.pollInterval = time.Duration(constants.DefaultPollIntervalSec) * time.Second
	}
	e.pageSize = cfg.HistoryPageSize
	if e.pageSize <= 0 {
		e.pageSize = constants.DefaultHistoryPageSize
	}
	e.failureThreshold = cfg.PollFailureThreshold
	if e.failureThreshold <= 0 {
		e.failureThreshold = constants.DefaultPollFailureThreshold
	}
}

// OpenConversation fetches the most recent history page, seeds the
// visible state and starts the polling loop. Opening an already-open
// conversation returns the existing state.
func (e *SyncEngine) OpenConversation(ctx context.Context, conversationID string) (*ThreadState, error) {
	e.mu.Lock()
	if sess, ok := e.sessions[conversationID]; ok {
		e.mu.Unlock()
		return sess.state, nil
	}
	interval := e.pollInterval
	threshold := e.failureThreshold
	e.mu.Unlock()

	history, err := e.client.FetchMessages(ctx, conversationID, "")
	if err != nil {
		return nil, errors.NewPollError(err).WithContext("conversation_id", conversationID)
	}

	sess := &conversationSession{
		conversationID: conversationID,
		state:          NewThreadState(conversationID),
		health:         synchealth.New(threshold),
	}
	for _, msg := range history {
		sess.state.Reconcile(msg)
	}
	if len(history) > 0 {
		sess.lastSeenID = history[len(history)-1].ID
	}

	e.mu.Lock()
	if existing, ok := e.sessions[conversationID]; ok {
		// Lost the race to another open; discard our session.
		e.mu.Unlock()
		sess.state.Close()
		return existing.state, nil
	}
	loopCtx, cancel := context.WithCancel(ctx)
	sess.cancel = cancel
	e.sessions[conversationID] = sess
	e.mu.Unlock()

	sess.wg.Add(1)
	go e.pollLoop(loopCtx, sess, interval)

	e.logger.WithFields(logrus.Fields{
		LogFieldConversationID: conversationID,
		LogFieldCount:          len(history),
	}).Info("Conversation opened")

	return sess.state, nil
}

// Poll runs a single poll step for an open conversation. Exposed for
// on-demand refresh; the background loop calls the same path.
func (e *SyncEngine) Poll(ctx context.Context, conversationID string) error {
	e.mu.RLock()
	sess, ok := e.sessions[conversationID]
	e.mu.RUnlock()
	if !ok {
		return errors.NewNotFoundError("conversation session", conversationID)
	}
	return e.pollSession(ctx, sess)
}

// State returns the visible state for an open conversation.
func (e *SyncEngine) State(conversationID string) (*ThreadState, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	sess, ok := e.sessions[conversationID]
	if !ok {
		return nil, false
	}
	return sess.state, true
}

// OpenThreads returns the states of all open conversations.
func (e *SyncEngine) OpenThreads() []*ThreadState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	states := make([]*ThreadState, 0, len(e.sessions))
	for _, sess := range e.sessions {
		states = append(states, sess.state)
	}
	return states
}

// CloseConversation stops polling and freezes the visible state. Any
// in-flight result arriving afterwards is dropped by the closed state.
func (e *SyncEngine) CloseConversation(conversationID string) {
	e.mu.Lock()
	sess, ok := e.sessions[conversationID]
	if ok {
		delete(e.sessions, conversationID)
	}
	e.mu.Unlock()
	if !ok {
		return
	}

	sess.cancel()
	sess.state.Close()
	sess.wg.Wait()

	e.logger.WithField(LogFieldConversationID, conversationID).Info("Conversation closed")
}

// Shutdown closes every open conversation.
func (e *SyncEngine) Shutdown() {
	e.mu.RLock()
	ids := make([]string, 0, len(e.sessions))
	for id := range e.sessions {
		ids = append(ids, id)
	}
	e.mu.RUnlock()

	for _, id := range ids {
		e.CloseConversation(id)
	}
}

func (e *SyncEngine) pollLoop(ctx context.Context, sess *conversationSession, interval time.Duration) {
	defer sess.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Failures are deliberately swallowed here: a poll error
			// is retried on the next tick and only surfaces through
			// the degraded flag.
			_ = e.pollSession(ctx, sess)
		}
	}
}

func (e *SyncEngine) pollSession(ctx context.Context, sess *conversationSession) error {
	sess.pollMu.Lock()
	defer sess.pollMu.Unlock()

	msgs, err := e.client.FetchMessages(ctx, sess.conversationID, sess.lastSeenID)
	if err != nil {
		return e.recordPollFailure(sess, err)
	}
	if ctx.Err() != nil {
		// Cancelled while the fetch was in flight; drop the result.
		return ctx.Err()
	}

	sess.health.RecordSuccess()
	if sess.state.Degraded() {
		sess.state.SetDegraded(false)
		e.logger.WithField(LogFieldConversationID, sess.conversationID).Info("Conversation sync recovered")
	}

	if len(msgs) == 0 {
		return nil
	}

	applied := 0
	for _, msg := range msgs {
		// Reconcile drops anything already present by identity, so an
		// overlapping page (clock skew, retried fetch) cannot
		// duplicate entries.
		if sess.state.Reconcile(msg) {
			applied++
		}
	}
	sess.lastSeenID = msgs[len(msgs)-1].ID

	metrics.AddToCounter("sync_messages_applied_total", float64(applied), nil, "Messages merged into visible state by polling")
	if IsVerboseLogging(ctx) {
		e.logger.WithFields(logrus.Fields{
			LogFieldConversationID: sess.conversationID,
			LogFieldCount:          applied,
		}).Debug("Poll applied new messages")
	}
	return nil
}

func (e *SyncEngine) recordPollFailure(sess *conversationSession, err error) error {
	status := sess.health.RecordFailure(err)
	metrics.IncrementCounter("sync_poll_failures_total", nil, "Failed poll attempts")

	if status == synchealth.StatusDegraded && !sess.state.Degraded() {
		sess.state.SetDegraded(true)
		e.logger.WithFields(logrus.Fields{
			LogFieldConversationID: sess.conversationID,
			"consecutive_failures": strconv.Itoa(sess.health.ConsecutiveFailures()),
		}).Warn("Conversation sync degraded")
	} else {
		e.logger.WithFields(logrus.Fields{
			LogFieldConversationID: sess.conversationID,
		}).Debug("Poll failed, retrying on next interval")
	}

	return errors.NewPollError(err).WithContext("conversation_id", sess.conversationID)
}
