package contract

type EventType string

const (
	EventPing EventType = "ping"

	EventConnectionKill EventType = "CONNECTION_KILL"
	EventAck            EventType = "ACK"

	EventPresenceUpdated EventType = "PRESENCE_UPDATED"
)

type KillCode string

const (
	KillCodeStale   KillCode = "STALE"
	KillCodeExpired KillCode = "EXPIRED"
)

// IncomingSocketMessage is used for messages we receive from the users.
type IncomingSocketMessage struct {
	Type EventType `json:"type"`
}

// OutgoingSocketMessage is what we send to the Client
type OutgoingSocketMessage struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data,omitempty"`
}
