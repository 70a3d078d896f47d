package service

import (
	"context"
	"sync"
	"time"

	"chatsync/internal/constants"
	"chatsync/internal/metrics"

	"github.com/sirupsen/logrus"
)

// PendingMonitor periodically scans open conversations for sends that
// have been stuck in pending longer than the stale threshold. A stuck
// pending entry usually means the send timeout is too generous or the
// acknowledgement was lost; the monitor surfaces it through logs and a
// gauge without touching the entries themselves.
type PendingMonitor struct {
	engine         *SyncEngine
	logger         *logrus.Logger
	checkInterval  time.Duration
	staleThreshold time.Duration

	mu      sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

func NewPendingMonitor(engine *SyncEngine, monitorIntervalSec, stalePendingSec int, logger *logrus.Logger) *PendingMonitor {
	if monitorIntervalSec <= 0 {
		monitorIntervalSec = constants.DefaultMonitorIntervalSec
	}
	if stalePendingSec <= 0 {
		stalePendingSec = constants.DefaultStalePendingSec
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &PendingMonitor{
		engine:         engine,
		logger:         logger,
		checkInterval:  time.Duration(monitorIntervalSec) * time.Second,
		staleThreshold: time.Duration(stalePendingSec) * time.Second,
	}
}

// Start launches the monitoring loop. Safe to call once; subsequent
// calls are no-ops until Stop.
func (m *PendingMonitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})

	go m.run(ctx, m.stopCh, m.doneCh)
	m.logger.WithField("check_interval", m.checkInterval.String()).Info("Pending send monitor started")
}

// Stop halts the monitoring loop and waits for it to exit.
func (m *PendingMonitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	done := m.doneCh
	m.mu.Unlock()

	<-done
	m.logger.Info("Pending send monitor stopped")
}

func (m *PendingMonitor) run(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			m.checkOnce()
		}
	}
}

func (m *PendingMonitor) checkOnce() {
	total := 0
	for _, state := range m.engine.OpenThreads() {
		stale := state.PendingOlderThan(m.staleThreshold)
		if stale == 0 {
			continue
		}
		total += stale
		m.logger.WithFields(logrus.Fields{
			LogFieldConversationID: state.ConversationID(),
			LogFieldCount:          stale,
		}).Warn("Stale pending sends detected")
	}
	metrics.SetGauge("composer_stale_pending", float64(total), nil, "Pending sends older than the stale threshold")
}
