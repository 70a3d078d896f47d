package synchealth

import (
	"sync"
	"time"
)

// Status describes the sync health of one conversation view.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
)

// Tracker counts consecutive poll failures for a conversation and
// flips to degraded once a threshold is crossed. Any success resets
// it. Degraded is informational: polling continues on its interval.
type Tracker struct {
	mu                  sync.Mutex
	threshold           int
	consecutiveFailures int
	lastErr             error
	lastFailure         time.Time
}

// New creates a tracker that degrades after threshold consecutive
// failures. A threshold below 1 is treated as 1.
func New(threshold int) *Tracker {
	if threshold < 1 {
		threshold = 1
	}
	return &Tracker{threshold: threshold}
}

// RecordSuccess resets the failure streak.
func (t *Tracker) RecordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutiveFailures = 0
	t.lastErr = nil
}

// RecordFailure notes a failed poll and returns the resulting status.
func (t *Tracker) RecordFailure(err error) Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutiveFailures++
	t.lastErr = err
	t.lastFailure = time.Now()
	return t.statusLocked()
}

// Status returns the current health status.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.statusLocked()
}

// Degraded reports whether the failure threshold has been crossed.
func (t *Tracker) Degraded() bool {
	return t.Status() == StatusDegraded
}

// ConsecutiveFailures returns the current failure streak length.
func (t *Tracker) ConsecutiveFailures() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.consecutiveFailures
}

// LastError returns the most recent failure, or nil after a success.
func (t *Tracker) LastError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

func (t *Tracker) statusLocked() Status {
	if t.consecutiveFailures >= t.threshold {
		return StatusDegraded
	}
	return StatusHealthy
}
