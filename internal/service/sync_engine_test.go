package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"chatsync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	mu      sync.Mutex
	pages   map[string][]models.Message
	err     error
	calls   []string
	afterID []string
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{pages: make(map[string][]models.Message)}
}

func (f *stubFetcher) FetchMessages(ctx context.Context, conversationID, afterID string) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, conversationID)
	f.afterID = append(f.afterID, afterID)
	if f.err != nil {
		return nil, f.err
	}
	return f.pages[afterID], nil
}

func (f *stubFetcher) setPage(afterID string, msgs []models.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[afterID] = msgs
}

func (f *stubFetcher) setError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *stubFetcher) lastAfterID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.afterID) == 0 {
		return ""
	}
	return f.afterID[len(f.afterID)-1]
}

func testSyncConfig() models.SyncConfig {
	return models.SyncConfig{
		PollIntervalSec:      3600, // background ticks never fire in tests
		HistoryPageSize:      50,
		PollFailureThreshold: 3,
	}
}

func TestSyncEngineOpenSeedsHistory(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.setPage("", []models.Message{
		confirmedMsg("m-1", "alice", "hello", ""),
		confirmedMsg("m-2", "bob", "hi", ""),
	})
	engine := NewSyncEngine(fetcher, testSyncConfig(), nil)
	defer engine.Shutdown()

	state, err := engine.OpenConversation(context.Background(), "conv-1")
	require.NoError(t, err)

	entries := state.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "m-1", entries[0].MessageID)
	assert.Equal(t, "m-2", entries[1].MessageID)
}

func TestSyncEngineOpenIsIdempotent(t *testing.T) {
	fetcher := newStubFetcher()
	engine := NewSyncEngine(fetcher, testSyncConfig(), nil)
	defer engine.Shutdown()

	first, err := engine.OpenConversation(context.Background(), "conv-1")
	require.NoError(t, err)
	second, err := engine.OpenConversation(context.Background(), "conv-1")
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestSyncEngineOpenFailsWhenSeedFails(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.setError(fmt.Errorf("server unreachable"))
	engine := NewSyncEngine(fetcher, testSyncConfig(), nil)

	_, err := engine.OpenConversation(context.Background(), "conv-1")
	assert.Error(t, err)

	_, ok := engine.State("conv-1")
	assert.False(t, ok)
}

func TestSyncEnginePollAdvancesHighWaterMark(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.setPage("", []models.Message{confirmedMsg("m-1", "alice", "hello", "")})
	fetcher.setPage("m-1", []models.Message{confirmedMsg("m-2", "bob", "hi", "")})
	engine := NewSyncEngine(fetcher, testSyncConfig(), nil)
	defer engine.Shutdown()

	state, err := engine.OpenConversation(context.Background(), "conv-1")
	require.NoError(t, err)

	require.NoError(t, engine.Poll(context.Background(), "conv-1"))
	assert.Equal(t, "m-1", fetcher.lastAfterID())
	require.Len(t, state.Entries(), 2)

	// Next poll resumes from the new high-water mark.
	require.NoError(t, engine.Poll(context.Background(), "conv-1"))
	assert.Equal(t, "m-2", fetcher.lastAfterID())
	assert.Len(t, state.Entries(), 2)
}

func TestSyncEnginePollDeduplicatesOverlappingPage(t *testing.T) {
	fetcher := newStubFetcher()
	m1 := confirmedMsg("m-1", "alice", "hello", "")
	m2 := confirmedMsg("m-2", "bob", "hi", "")
	fetcher.setPage("", []models.Message{m1})
	fetcher.setPage("m-1", []models.Message{m1, m2})
	engine := NewSyncEngine(fetcher, testSyncConfig(), nil)
	defer engine.Shutdown()

	state, err := engine.OpenConversation(context.Background(), "conv-1")
	require.NoError(t, err)

	require.NoError(t, engine.Poll(context.Background(), "conv-1"))

	entries := state.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "m-1", entries[0].MessageID)
	assert.Equal(t, "m-2", entries[1].MessageID)
}

func TestSyncEnginePollConfirmsPendingSend(t *testing.T) {
	fetcher := newStubFetcher()
	engine := NewSyncEngine(fetcher, testSyncConfig(), nil)
	defer engine.Shutdown()

	state, err := engine.OpenConversation(context.Background(), "conv-1")
	require.NoError(t, err)
	require.NoError(t, state.AppendPending("tmp-1", "alice", "hello"))

	fetcher.setPage("", []models.Message{confirmedMsg("m-1", "alice", "hello", "tmp-1")})
	require.NoError(t, engine.Poll(context.Background(), "conv-1"))

	entries := state.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, models.EntryStateConfirmed, entries[0].State)
	assert.Equal(t, "m-1", entries[0].MessageID)
}

func TestSyncEngineDegradedAfterConsecutiveFailures(t *testing.T) {
	fetcher := newStubFetcher()
	cfg := testSyncConfig()
	cfg.PollFailureThreshold = 3
	engine := NewSyncEngine(fetcher, cfg, nil)
	defer engine.Shutdown()

	state, err := engine.OpenConversation(context.Background(), "conv-1")
	require.NoError(t, err)

	fetcher.setError(fmt.Errorf("network down"))
	for i := 0; i < 2; i++ {
		assert.Error(t, engine.Poll(context.Background(), "conv-1"))
		assert.False(t, state.Degraded())
	}
	assert.Error(t, engine.Poll(context.Background(), "conv-1"))
	assert.True(t, state.Degraded())

	// A single success clears the flag.
	fetcher.setError(nil)
	require.NoError(t, engine.Poll(context.Background(), "conv-1"))
	assert.False(t, state.Degraded())
}

func TestSyncEngineIntermittentFailuresStayHealthy(t *testing.T) {
	fetcher := newStubFetcher()
	engine := NewSyncEngine(fetcher, testSyncConfig(), nil)
	defer engine.Shutdown()

	state, err := engine.OpenConversation(context.Background(), "conv-1")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		fetcher.setError(fmt.Errorf("flaky"))
		assert.Error(t, engine.Poll(context.Background(), "conv-1"))
		fetcher.setError(nil)
		require.NoError(t, engine.Poll(context.Background(), "conv-1"))
	}
	assert.False(t, state.Degraded())
}

func TestSyncEngineCloseFreezesState(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.setPage("", []models.Message{confirmedMsg("m-1", "alice", "hello", "")})
	engine := NewSyncEngine(fetcher, testSyncConfig(), nil)

	state, err := engine.OpenConversation(context.Background(), "conv-1")
	require.NoError(t, err)

	engine.CloseConversation("conv-1")

	assert.True(t, state.Closed())
	_, ok := engine.State("conv-1")
	assert.False(t, ok)
	assert.Error(t, engine.Poll(context.Background(), "conv-1"))

	// Closing again is a no-op.
	engine.CloseConversation("conv-1")
}

func TestSyncEngineReopenAfterClose(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.setPage("", []models.Message{confirmedMsg("m-1", "alice", "hello", "")})
	engine := NewSyncEngine(fetcher, testSyncConfig(), nil)
	defer engine.Shutdown()

	first, err := engine.OpenConversation(context.Background(), "conv-1")
	require.NoError(t, err)
	engine.CloseConversation("conv-1")

	second, err := engine.OpenConversation(context.Background(), "conv-1")
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.False(t, second.Closed())
	require.Len(t, second.Entries(), 1)
}

func TestSyncEngineBackgroundPolling(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.setPage("", []models.Message{confirmedMsg("m-1", "alice", "hello", "")})
	fetcher.setPage("m-1", []models.Message{confirmedMsg("m-2", "bob", "hi", "")})

	cfg := testSyncConfig()
	cfg.PollIntervalSec = 1
	engine := NewSyncEngine(fetcher, cfg, nil)
	defer engine.Shutdown()

	state, err := engine.OpenConversation(context.Background(), "conv-1")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(state.Entries()) == 2
	}, 5*time.Second, 50*time.Millisecond)
}
