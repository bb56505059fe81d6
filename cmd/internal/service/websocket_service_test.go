package service

import (
	"agenthelper/cmd/internal/contract"
	"agenthelper/cmd/internal/domain/events"
	"agenthelper/cmd/internal/domain/sqlite"
	"agenthelper/cmd/internal/domain/sqlite/repository"
	"agenthelper/cmd/internal/infrastructure/aws/websocket"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu      sync.Mutex
	posts   map[string][]*contract.OutgoingSocketMessage
	deleted []string
	gone    map[string]bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		posts: make(map[string][]*contract.OutgoingSocketMessage),
		gone:  make(map[string]bool),
	}
}

func (g *fakeGateway) PostToConnection(_ context.Context, connID string, data interface{}) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gone[connID] {
		return websocket.ErrGone
	}
	g.posts[connID] = append(g.posts[connID], data.(*contract.OutgoingSocketMessage))
	return nil
}

func (g *fakeGateway) DeleteConnection(_ context.Context, connID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted = append(g.deleted, connID)
	return nil
}

func newWSService(t *testing.T) (*WebSocketService, *fakeGateway) {
	t.Helper()
	db, err := sqlite.Init(sqlite.MemoryPath)
	require.NoError(t, err)

	gw := newFakeGateway()
	return NewWebSocketService(repository.NewConnectionRepository(db), gw), gw
}

func TestWebSocketService_BroadcastDropsGoneConnections(t *testing.T) {
	svc, gw := newWSService(t)
	require.Nil(t, svc.RegisterConnection(1, "alive", 2_000_000_000))
	require.Nil(t, svc.RegisterConnection(2, "closed", 2_000_000_000))
	gw.gone["closed"] = true

	evt := &events.PresenceUpdated{UserID: 1, PreviousStatus: contract.StatusOffline, Status: contract.StatusOnline}
	require.NoError(t, svc.PresenceChanged(context.Background(), evt))

	require.Len(t, gw.posts["alive"], 1)
	msg := gw.posts["alive"][0]
	assert.Equal(t, contract.EventPresenceUpdated, msg.Type)
	assert.Same(t, evt, msg.Data)

	remaining, err := svc.ConnRepo.FindAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"alive"}, remaining)
}

func TestWebSocketService_RegisterStoresMillis(t *testing.T) {
	svc, _ := newWSService(t)
	require.Nil(t, svc.RegisterConnection(1, "c1", 1_700_000_000))

	stale, err := svc.ConnRepo.FindStale(1_700_000_000_001, 1<<40)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, int64(1_700_000_000_000), stale[0].ExpiresAt)
}

func TestWebSocketService_PingIsAcked(t *testing.T) {
	svc, gw := newWSService(t)
	require.Nil(t, svc.RegisterConnection(1, "c1", 0))

	svc.HandleMessage(context.Background(), &contract.IncomingSocketMessage{Type: contract.EventPing}, "c1")
	svc.HandleMessage(context.Background(), &contract.IncomingSocketMessage{Type: "unknown"}, "c1")

	require.Len(t, gw.posts["c1"], 1)
	assert.Equal(t, contract.EventAck, gw.posts["c1"][0].Type)
}

func TestWebSocketService_Terminate(t *testing.T) {
	svc, gw := newWSService(t)
	require.Nil(t, svc.RegisterConnection(1, "c1", 0))

	svc.Terminate(context.Background(), "c1", &events.ConnectionKill{Code: contract.KillCodeStale})

	require.Len(t, gw.posts["c1"], 1)
	assert.Equal(t, contract.EventConnectionKill, gw.posts["c1"][0].Type)
	assert.Equal(t, []string{"c1"}, gw.deleted)

	remaining, err := svc.ConnRepo.FindAll()
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
