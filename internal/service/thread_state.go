package service

import (
	"sync"
	"time"

	"chatsync/internal/errors"
	"chatsync/internal/models"
)

// ThreadState is the client-visible message sequence for one open
// conversation. The sync engine's poll results and the composer's send
// acknowledgements both funnel through Reconcile, under one mutex, so
// a confirmed message can never appear twice regardless of which path
// delivers it first.
//
// Entries mutate in place: a pending entry keeps its position when it
// confirms, so locally-authored messages always render in composition
// order.
type ThreadState struct {
	mu             sync.Mutex
	conversationID string
	entries        []models.ThreadEntry
	byTempID       map[string]int
	byMessageID    map[string]int
	closed         bool
	degraded       bool
}

func NewThreadState(conversationID string) *ThreadState {
	return &ThreadState{
		conversationID: conversationID,
		byTempID:       make(map[string]int),
		byMessageID:    make(map[string]int),
	}
}

func (t *ThreadState) ConversationID() string {
	return t.conversationID
}

// AppendPending inserts an optimistic entry at the tail of the visible
// sequence. Fails if the thread is closed or the temp ID is already
// tracked.
func (t *ThreadState) AppendPending(clientTempID, senderID, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return errors.New(errors.ErrCodeInternalError, "thread is closed")
	}
	if _, exists := t.byTempID[clientTempID]; exists {
		return errors.New(errors.ErrCodeInternalError, "duplicate client temp ID")
	}

	t.entries = append(t.entries, models.ThreadEntry{
		State:        models.EntryStatePending,
		ClientTempID: clientTempID,
		SenderID:     senderID,
		Text:         text,
		LocalAt:      time.Now(),
	})
	t.byTempID[clientTempID] = len(t.entries) - 1
	return nil
}

// Reconcile merges one confirmed server message into the visible
// sequence. It is the single transition path for both poll results and
// send acknowledgements:
//
//   - a pending entry matching the message's client temp ID confirms in
//     place, keeping its position;
//   - a message whose ID is already present is dropped (idempotent
//     polling, overlapping pages, poll/ack races);
//   - anything else appends at the tail in server order.
//
// Returns true when the sequence changed. After Close it always
// returns false: a late in-flight result must not mutate a disposed
// view.
func (t *ThreadState) Reconcile(msg models.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return false
	}
	if _, seen := t.byMessageID[msg.ID]; seen {
		return false
	}

	if msg.ClientTempID != "" {
		if idx, ok := t.byTempID[msg.ClientTempID]; ok && t.entries[idx].State == models.EntryStatePending {
			entry := &t.entries[idx]
			entry.State = models.EntryStateConfirmed
			entry.MessageID = msg.ID
			entry.Text = msg.Text
			entry.CreatedAt = msg.CreatedAt
			t.byMessageID[msg.ID] = idx
			return true
		}
		// Temp ID unknown or already terminal: fall through to the
		// identity check above and append as a fresh confirmed entry.
	}

	t.entries = append(t.entries, models.ThreadEntry{
		State:        models.EntryStateConfirmed,
		ClientTempID: msg.ClientTempID,
		MessageID:    msg.ID,
		SenderID:     msg.SenderID,
		Text:         msg.Text,
		CreatedAt:    msg.CreatedAt,
		LocalAt:      time.Now(),
	})
	t.byMessageID[msg.ID] = len(t.entries) - 1
	return true
}

// MarkFailed transitions a pending entry to failed. The entry stays
// visible so the user can see what did not send and retry it.
func (t *ThreadState) MarkFailed(clientTempID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return false
	}
	idx, ok := t.byTempID[clientTempID]
	if !ok || t.entries[idx].State != models.EntryStatePending {
		return false
	}
	t.entries[idx].State = models.EntryStateFailed
	return true
}

// FailedEntry returns a copy of the failed entry for the given temp ID.
func (t *ThreadState) FailedEntry(clientTempID string) (models.ThreadEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.byTempID[clientTempID]
	if !ok || t.entries[idx].State != models.EntryStateFailed {
		return models.ThreadEntry{}, false
	}
	return t.entries[idx], true
}

// RemoveFailed discards a failed entry, typically just before a retry
// re-sends its text under a fresh temp ID.
func (t *ThreadState) RemoveFailed(clientTempID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return false
	}
	idx, ok := t.byTempID[clientTempID]
	if !ok || t.entries[idx].State != models.EntryStateFailed {
		return false
	}

	t.entries = append(t.entries[:idx], t.entries[idx+1:]...)
	t.reindexLocked()
	return true
}

// Entries returns a copy of the visible sequence.
func (t *ThreadState) Entries() []models.ThreadEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	entries := make([]models.ThreadEntry, len(t.entries))
	copy(entries, t.entries)
	return entries
}

// PendingOlderThan counts pending entries that have been waiting for a
// send acknowledgement longer than the given age.
func (t *ThreadState) PendingOlderThan(age time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-age)
	count := 0
	for _, entry := range t.entries {
		if entry.State == models.EntryStatePending && entry.LocalAt.Before(cutoff) {
			count++
		}
	}
	return count
}

// SetDegraded flags the view as out of sync past the failure
// threshold. Informational only.
func (t *ThreadState) SetDegraded(degraded bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.degraded = degraded
}

func (t *ThreadState) Degraded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.degraded
}

// Close freezes the state. Every later mutation is a no-op, which is
// how in-flight poll and send results are dropped after the user
// navigates away.
func (t *ThreadState) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}

func (t *ThreadState) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *ThreadState) reindexLocked() {
	t.byTempID = make(map[string]int, len(t.entries))
	t.byMessageID = make(map[string]int, len(t.entries))
	for i, entry := range t.entries {
		if entry.ClientTempID != "" {
			t.byTempID[entry.ClientTempID] = i
		}
		if entry.MessageID != "" {
			t.byMessageID[entry.MessageID] = i
		}
	}
}
