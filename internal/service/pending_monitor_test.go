package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingMonitorStartStop(t *testing.T) {
	engine := NewSyncEngine(newStubFetcher(), testSyncConfig(), nil)
	defer engine.Shutdown()

	monitor := NewPendingMonitor(engine, 1, 1, nil)

	monitor.Start(context.Background())
	// Second start is a no-op while running.
	monitor.Start(context.Background())

	monitor.Stop()
	// Stop after stop is safe.
	monitor.Stop()
}

func TestPendingMonitorCountsStaleSends(t *testing.T) {
	engine := NewSyncEngine(newStubFetcher(), testSyncConfig(), nil)
	defer engine.Shutdown()

	state, err := engine.OpenConversation(context.Background(), "conv-1")
	require.NoError(t, err)
	require.NoError(t, state.AppendPending("tmp-1", "alice", "stuck"))

	monitor := NewPendingMonitor(engine, 1, 1, nil)
	monitor.staleThreshold = -1 // everything pending counts as stale
	monitor.checkOnce()

	assert.Equal(t, 1, state.PendingOlderThan(monitor.staleThreshold))
}
