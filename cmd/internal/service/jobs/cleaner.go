package jobs

import (
	"agenthelper/cmd/internal/contract"
	"agenthelper/cmd/internal/domain/entity"
	"agenthelper/cmd/internal/domain/events"
	"agenthelper/cmd/internal/service"
	"agenthelper/cmd/internal/utils"
	"context"
	"time"

	"github.com/labstack/gommon/log"
)

// ConnectionCleaner drops websocket listeners that stopped pinging or whose
// token expired. It only touches the connection registry, presence records
// are never expired by a sweep.
type ConnectionCleaner struct {
	wsService *service.WebSocketService
	interval  time.Duration
}

func NewConnectionCleaner(wsService *service.WebSocketService, interval time.Duration) *ConnectionCleaner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &ConnectionCleaner{wsService: wsService, interval: interval}
}

func (c *ConnectionCleaner) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	log.Info("Connection cleaner cron started")

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping connection cleaner...")
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *ConnectionCleaner) cleanup(ctx context.Context) int {
	now := utils.NowUTC()
	limit := entity.HeartbeatPeriodMillis + entity.HeartbeatToleranceMillis
	conns, err := c.wsService.ConnRepo.FindStale(now, limit)
	if err != nil {
		log.Errorf("Cleaner: failed to fetch stale connections: %v", err)
		return 0
	}

	if len(conns) == 0 {
		return 0
	}

	log.Infof("Cleaner: Found %d stale connections. Terminating...", len(conns))

	for _, conn := range conns {
		code := contract.KillCodeStale
		if conn.ExpiresAt > 0 && conn.ExpiresAt <= now {
			code = contract.KillCodeExpired
		}
		c.wsService.Terminate(ctx, conn.ConnectionID, &events.ConnectionKill{Code: code})
	}
	return len(conns)
}
