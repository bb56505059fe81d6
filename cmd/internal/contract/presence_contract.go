package contract

// HeaderUserID carries the reporting user when the body does not.
const HeaderUserID = "X-User-Id"

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

func StatusOf(isOnline bool) PresenceStatus {
	if isOnline {
		return StatusOnline
	}
	return StatusOffline
}

// HeartbeatMetadata is purely descriptive, the server only logs it.
type HeartbeatMetadata struct {
	UserAgent            string `json:"user_agent,omitempty" validate:"max=512"`
	PageTitle            string `json:"page_title,omitempty" validate:"max=256"`
	SecondsSinceActivity int64  `json:"seconds_since_activity"`
	HeartbeatIntervalMs  int64  `json:"heartbeat_interval_ms"`
}

// HeartbeatRequest is sent by a session's activity monitor, both by the
// regular heartbeat endpoint and by the unload beacon.
type HeartbeatRequest struct {
	UserID       int64              `json:"user_id,omitempty" validate:"gte=0"`
	SessionID    string             `json:"session_id,omitempty" validate:"max=64"`
	IsActive     *bool              `json:"is_active,omitempty"`
	IsOnline     *bool              `json:"is_online,omitempty"`
	PageHidden   bool               `json:"page_hidden"`
	PageVisible  bool               `json:"page_visible,omitempty"`
	PageUnload   bool               `json:"page_unload,omitempty"`
	LastActivity int64              `json:"last_activity,omitempty" validate:"gte=0"`
	Metadata     *HeartbeatMetadata `json:"metadata,omitempty"`
}

// Online resolves the reported flag, "is_active" wins over the legacy
// "is_online". The second value is false when neither was sent.
func (r *HeartbeatRequest) Online() (bool, bool) {
	switch {
	case r.IsActive != nil:
		return *r.IsActive, true
	case r.IsOnline != nil:
		return *r.IsOnline, true
	default:
		return false, false
	}
}

type HeartbeatResponse struct {
	Success        bool           `json:"success"`
	UserID         int64          `json:"user_id"`
	PreviousStatus PresenceStatus `json:"previous_status"`
	CurrentStatus  PresenceStatus `json:"current_status"`
	StatusChanged  bool           `json:"status_changed"`
	LastSeen       string         `json:"last_seen"`
}

// HeartbeatFailure is the body returned when a heartbeat could not be recorded.
type HeartbeatFailure struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

type PresenceResponse struct {
	UserID   int64          `json:"user_id"`
	Username string         `json:"username"`
	Status   PresenceStatus `json:"status"`
	IsOnline bool           `json:"is_online"`
	LastSeen *string        `json:"last_seen"`
}
