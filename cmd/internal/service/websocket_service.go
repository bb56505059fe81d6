package service

import (
	"agenthelper/cmd/internal/contract"
	"agenthelper/cmd/internal/domain/entity"
	"agenthelper/cmd/internal/domain/events"
	"agenthelper/cmd/internal/infrastructure/aws/websocket"
	"agenthelper/cmd/internal/utils"
	"agenthelper/cmd/internal/utils/apierror"
	"context"
	"errors"

	"github.com/labstack/gommon/log"
)

type ConnectionRepository interface {
	Save(conn *entity.Connection) error
	Delete(connID string) error
	FindByUserID(userID int64) ([]string, error)
	FindAll() ([]string, error)
	FindStale(now int64, hbLimit int64) ([]*entity.Connection, error)
	UpdateHeartbeat(connID string, now int64) error
}

// WebSocketService keeps track of the badge listeners connected through the
// API Gateway and pushes presence transitions to them.
type WebSocketService struct {
	ConnRepo ConnectionRepository
	Gateway  websocket.GatewayClient
}

func NewWebSocketService(repo ConnectionRepository, gateway websocket.GatewayClient) *WebSocketService {
	return &WebSocketService{
		ConnRepo: repo,
		Gateway:  gateway,
	}
}

func (s *WebSocketService) RegisterConnection(userID int64, connectionID string, exp int64) apierror.ErrorResponse {
	now := utils.NowUTC()
	conn := &entity.Connection{
		ConnectionID:    connectionID,
		UserID:          userID,
		ExpiresAt:       exp * 1000, // "exp" is stored in seconds, our app uses millis
		LastHeartbeatAt: now,        // Avoid users getting disconnected immediately
		CreatedAt:       now,
	}

	if err := s.ConnRepo.Save(conn); err != nil {
		log.Errorf("failed to save connection: %v", err)
		return apierror.InternalServerError
	}
	return nil
}

func (s *WebSocketService) RemoveConnection(connectionID string) {
	// We don't return error here because if it fails, it's not the client's fault
	_ = s.ConnRepo.Delete(connectionID)
}

func (s *WebSocketService) HandleMessage(ctx context.Context, msg *contract.IncomingSocketMessage, connID string) {
	switch msg.Type {
	case contract.EventPing:
		s.handlePing(ctx, connID)
	default:
		log.Debugf("ignoring socket message %q from %s", msg.Type, connID)
	}
}

// PresenceChanged broadcasts the transition to every listener, it satisfies
// PresenceNotifier.
func (s *WebSocketService) PresenceChanged(ctx context.Context, evt *events.PresenceUpdated) error {
	return s.Broadcast(ctx, evt)
}

// Broadcast sends an event to ALL connected users.
// This iterates through every active connection in the DB.
func (s *WebSocketService) Broadcast(ctx context.Context, evt events.SocketEvent) error {
	conns, err := s.ConnRepo.FindAll()
	if err != nil {
		log.Errorf("failed to fetch all connections for broadcast: %v", err)
		return err
	}

	envelope := &contract.OutgoingSocketMessage{
		Type: evt.GetType(),
		Data: evt,
	}

	for _, connID := range conns {
		// We ignore errors here so one stale connection doesn't block others
		err := s.Gateway.PostToConnection(ctx, connID, envelope)
		if errors.Is(err, websocket.ErrGone) {
			_ = s.ConnRepo.Delete(connID)
		}
	}
	return nil
}

// Terminate sends a "poison pill" message and then drops the connection.
func (s *WebSocketService) Terminate(ctx context.Context, connID string, ck *events.ConnectionKill) {
	msg := &contract.OutgoingSocketMessage{
		Type: ck.GetType(),
		Data: ck,
	}

	_ = s.Gateway.PostToConnection(ctx, connID, msg)
	_ = s.Gateway.DeleteConnection(ctx, connID)
	_ = s.ConnRepo.Delete(connID)
}

func (s *WebSocketService) handlePing(ctx context.Context, connID string) {
	now := utils.NowUTC()
	err := s.ConnRepo.UpdateHeartbeat(connID, now)
	if err != nil {
		log.Errorf("failed to update heartbeat: %v", err)
		return
	}

	ack := &events.Ack{}
	err = s.Gateway.PostToConnection(ctx, connID, &contract.OutgoingSocketMessage{
		Type: ack.GetType(),
	})
	if err != nil {
		log.Errorf("failed to post ack to conn %s: %v", connID, err)
	}
}
