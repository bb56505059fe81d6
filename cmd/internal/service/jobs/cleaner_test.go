package jobs

import (
	"agenthelper/cmd/internal/contract"
	"agenthelper/cmd/internal/domain/entity"
	"agenthelper/cmd/internal/domain/events"
	"agenthelper/cmd/internal/domain/sqlite"
	"agenthelper/cmd/internal/domain/sqlite/repository"
	"agenthelper/cmd/internal/service"
	"agenthelper/cmd/internal/utils"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type killRecorder struct {
	mu    sync.Mutex
	kills map[string]contract.KillCode
}

func (k *killRecorder) PostToConnection(_ context.Context, connID string, data interface{}) error {
	msg := data.(*contract.OutgoingSocketMessage)
	if ck, ok := msg.Data.(*events.ConnectionKill); ok {
		k.mu.Lock()
		k.kills[connID] = ck.Code
		k.mu.Unlock()
	}
	return nil
}

func (k *killRecorder) DeleteConnection(context.Context, string) error {
	return nil
}

func TestConnectionCleaner(t *testing.T) {
	db, err := sqlite.Init(sqlite.MemoryPath)
	require.NoError(t, err)
	repo := repository.NewConnectionRepository(db)
	gw := &killRecorder{kills: make(map[string]contract.KillCode)}
	ws := service.NewWebSocketService(repo, gw)

	now := utils.NowUTC()
	require.NoError(t, repo.Save(&entity.Connection{ConnectionID: "fresh", UserID: 1, LastHeartbeatAt: now, CreatedAt: now}))
	require.NoError(t, repo.Save(&entity.Connection{ConnectionID: "silent", UserID: 1, LastHeartbeatAt: now - 5*60*1000, CreatedAt: now}))
	require.NoError(t, repo.Save(&entity.Connection{ConnectionID: "expired", UserID: 2, ExpiresAt: now - 1000, LastHeartbeatAt: now, CreatedAt: now}))

	cleaner := NewConnectionCleaner(ws, time.Minute)
	assert.Equal(t, 2, cleaner.cleanup(context.Background()))

	assert.Equal(t, map[string]contract.KillCode{
		"silent":  contract.KillCodeStale,
		"expired": contract.KillCodeExpired,
	}, gw.kills)

	remaining, err := repo.FindAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, remaining)

	assert.Equal(t, 0, cleaner.cleanup(context.Background()))
}

func TestConnectionCleaner_StopsWithContext(t *testing.T) {
	cleaner := NewConnectionCleaner(nil, 0)
	assert.Equal(t, 5*time.Minute, cleaner.interval)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cleaner.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleaner did not stop")
	}
}
