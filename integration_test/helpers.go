package integration_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"chatsync/internal/database"
	"chatsync/internal/models"
	"chatsync/internal/service"
	"chatsync/pkg/chatapi"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// loopbackAPI adapts the server-side conversation manager to the
// client-side fetcher/sender interfaces, so a full client stack (sync
// engine, composer) can run against a real store without HTTP in
// between. Send failures can be injected to exercise the failure path.
type loopbackAPI struct {
	manager service.ConversationManager
	userID  string

	mu        sync.Mutex
	failSends bool
	sendGate  chan struct{}
}

func (l *loopbackAPI) FetchMessages(ctx context.Context, conversationID, afterID string) ([]models.Message, error) {
	return l.manager.FetchMessages(ctx, conversationID, l.userID, afterID, 50)
}

func (l *loopbackAPI) SendMessage(ctx context.Context, conversationID string, req chatapi.SendMessageRequest) (*models.Message, error) {
	l.mu.Lock()
	gate := l.sendGate
	fail := l.failSends
	l.mu.Unlock()

	if fail {
		return nil, fmt.Errorf("injected send failure")
	}

	msg, err := l.manager.AppendMessage(ctx, conversationID, l.userID, req.Text, req.ClientTempID)
	if err != nil {
		return nil, err
	}

	// Holding the gate delays the acknowledgement while the message is
	// already durable, which is exactly the window where a poll can
	// deliver it first.
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return msg, nil
}

func (l *loopbackAPI) setFailSends(fail bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failSends = fail
}

// testClient is one user's full client stack.
type testClient struct {
	userID   string
	api      *loopbackAPI
	engine   *service.SyncEngine
	composer *service.Composer
}

// testEnvironment wires a shared store and manager with per-user
// client stacks.
type testEnvironment struct {
	t       *testing.T
	db      *database.Database
	manager service.ConversationManager
	logger  *logrus.Logger
}

func newTestEnvironment(t *testing.T) *testEnvironment {
	t.Helper()

	db, err := database.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	return &testEnvironment{
		t:       t,
		db:      db,
		manager: service.NewConversationManager(db, db, service.NewAllowAllDirectory(), logger),
		logger:  logger,
	}
}

func (env *testEnvironment) newClient(userID string) *testClient {
	env.t.Helper()

	api := &loopbackAPI{manager: env.manager, userID: userID}
	cfg := models.SyncConfig{
		PollIntervalSec:      3600,
		HistoryPageSize:      50,
		PollFailureThreshold: 3,
	}
	engine := service.NewSyncEngine(api, cfg, env.logger)
	env.t.Cleanup(engine.Shutdown)

	return &testClient{
		userID:   userID,
		api:      api,
		engine:   engine,
		composer: service.NewComposer(api, engine, 5, env.logger),
	}
}

func (env *testEnvironment) createConversation(participants ...string) *models.Conversation {
	env.t.Helper()
	conv, err := env.manager.CreateOrGetConversation(context.Background(), participants, "")
	require.NoError(env.t, err)
	return conv
}
