package events

import "agenthelper/cmd/internal/contract"

type SocketEvent interface {
	GetType() contract.EventType
}

type Ack struct{}

func (*Ack) GetType() contract.EventType {
	return contract.EventAck
}

type ConnectionKill struct {
	Code   contract.KillCode `json:"code"`
	Reason *string           `json:"reason,omitempty"`
}

func (e *ConnectionKill) GetType() contract.EventType {
	return contract.EventConnectionKill
}

// PresenceUpdated is emitted only when a heartbeat flips a user's visible
// status, never on plain lastSeen refreshes.
type PresenceUpdated struct {
	UserID         int64                   `json:"user_id"`
	PreviousStatus contract.PresenceStatus `json:"previous_status"`
	Status         contract.PresenceStatus `json:"status"`
	SessionID      string                  `json:"session_id,omitempty"`
	LastSeen       string                  `json:"last_seen"`
}

func (e *PresenceUpdated) GetType() contract.EventType {
	return contract.EventPresenceUpdated
}
