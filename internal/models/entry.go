package models

import "time"

// EntryState is the lifecycle state of a message entry in a client's
// visible sequence.
type EntryState string

const (
	EntryStatePending   EntryState = "pending"
	EntryStateConfirmed EntryState = "confirmed"
	EntryStateFailed    EntryState = "failed"
)

// ThreadEntry is one element of the client-visible message sequence for
// an open conversation. A pending or failed entry carries only a
// ClientTempID; a confirmed entry carries the server MessageID and
// CreatedAt. An entry transitions in place so locally-authored messages
// keep their composition order.
type ThreadEntry struct {
	State        EntryState `json:"state"`
	ClientTempID string     `json:"clientTempId,omitempty"`
	MessageID    string     `json:"messageId,omitempty"`
	SenderID     string     `json:"senderId"`
	Text         string     `json:"text"`
	CreatedAt    time.Time  `json:"createdAt,omitempty"`
	LocalAt      time.Time  `json:"-"`
}
