package service

import (
	"agenthelper/cmd/internal/contract"
	"agenthelper/cmd/internal/domain/entity"
	"agenthelper/cmd/internal/domain/events"
	"agenthelper/cmd/internal/domain/policy"
	"agenthelper/cmd/internal/utils"
	"agenthelper/cmd/internal/utils/apierror"
	"context"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
)

const notifyTimeout = 5 * time.Second

type PresenceRepository interface {
	FindByID(id int64) (*entity.User, error)
	FindOnline() ([]*entity.User, error)
	UpdatePresence(id int64, isOnline bool, now int64) (*entity.User, error)
}

// PresenceNotifier is told about online/offline transitions so badges can
// be refreshed elsewhere. Failures never fail the heartbeat itself.
type PresenceNotifier interface {
	PresenceChanged(ctx context.Context, evt *events.PresenceUpdated) error
}

// PresenceService is the presence reconciler: the single write path for the
// presence columns of a user.
//
// Concurrent heartbeats for the same user are not merged, the last write
// wins, so one tab going hidden can flip a user offline while another tab
// is still active.
type PresenceService struct {
	Repo      PresenceRepository
	Validate  *validator.Validate
	Policy    *policy.UserPolicy
	Notifiers []PresenceNotifier

	// now is swappable for tests
	now func() int64
}

func NewPresenceService(repo PresenceRepository, validate *validator.Validate, userPolicy *policy.UserPolicy, notifiers ...PresenceNotifier) *PresenceService {
	return &PresenceService{
		Repo:      repo,
		Validate:  validate,
		Policy:    userPolicy,
		Notifiers: notifiers,
		now:       utils.NowUTC,
	}
}

// ProcessHeartbeat records a heartbeat for userID and reports whether the
// visible status changed. lastSeen is refreshed on every call, even when the
// online flag stays the same.
func (s *PresenceService) ProcessHeartbeat(ctx context.Context, actor *entity.User, userID int64, req *contract.HeartbeatRequest) (*contract.HeartbeatResponse, apierror.ErrorResponse) {
	if userID <= 0 {
		return nil, apierror.MissingUserIDError
	}

	utils.Sanitize(req)
	if err := s.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}

	isOnline, ok := req.Online()
	if !ok {
		apierr := apierror.NewStructured(400)
		apierr.Add("is_active", "This field is required")
		return nil, apierr
	}

	if perr := s.Policy.CanReportPresence(actor, userID); perr != nil {
		return nil, perr
	}

	now := s.now()
	previous, err := s.Repo.UpdatePresence(userID, isOnline, now)
	if err != nil {
		log.Errorf("failed to record heartbeat for user %d (session %s): %v", userID, req.SessionID, err)
		return nil, apierror.BackendUnavailableError
	}

	if previous == nil {
		log.Warnf("heartbeat for unknown user %d (session %s)", userID, req.SessionID)
		return nil, apierror.UserNotFoundError
	}

	resp := &contract.HeartbeatResponse{
		Success:        true,
		UserID:         userID,
		PreviousStatus: contract.StatusOf(previous.IsOnline),
		CurrentStatus:  contract.StatusOf(isOnline),
		StatusChanged:  previous.IsOnline != isOnline,
		LastSeen:       utils.FormatEpoch(now),
	}

	logHeartbeat(userID, req, resp)
	if resp.StatusChanged {
		s.notify(ctx, &events.PresenceUpdated{
			UserID:         userID,
			PreviousStatus: resp.PreviousStatus,
			Status:         resp.CurrentStatus,
			SessionID:      req.SessionID,
			LastSeen:       resp.LastSeen,
		})
	}
	return resp, nil
}

func (s *PresenceService) GetPresence(rawId string) (*contract.PresenceResponse, apierror.ErrorResponse) {
	userId, err := strconv.ParseInt(rawId, 10, 64)
	if err != nil || userId <= 0 {
		return nil, apierror.NewInvalidParamTypeError("id", "int64")
	}

	user, err := s.Repo.FindByID(userId)
	if err != nil {
		log.Errorf("failed to find user (%d) presence: %v", userId, err)
		return nil, apierror.BackendUnavailableError
	}

	if user == nil || !user.Active {
		return nil, apierror.UserNotFoundError
	}
	return toPresenceResponse(user), nil
}

func (s *PresenceService) GetOnlineUsers() ([]*contract.PresenceResponse, apierror.ErrorResponse) {
	users, err := s.Repo.FindOnline()
	if err != nil {
		log.Errorf("failed to list online users: %v", err)
		return nil, apierror.BackendUnavailableError
	}

	resp := make([]*contract.PresenceResponse, len(users))
	for i, user := range users {
		resp[i] = toPresenceResponse(user)
	}
	return resp, nil
}

func (s *PresenceService) notify(ctx context.Context, evt *events.PresenceUpdated) {
	// Beacons may close the request right after the write, notifications
	// should still go out.
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	for _, n := range s.Notifiers {
		if err := n.PresenceChanged(nctx, evt); err != nil {
			log.Warnf("failed to notify presence change of user %d: %v", evt.UserID, err)
		}
	}
}

func logHeartbeat(userID int64, req *contract.HeartbeatRequest, resp *contract.HeartbeatResponse) {
	if resp.StatusChanged {
		log.Infof("user %d went %s -> %s (session %s, hidden=%t, unload=%t)",
			userID, resp.PreviousStatus, resp.CurrentStatus, req.SessionID, req.PageHidden, req.PageUnload)
		return
	}

	if req.Metadata != nil {
		log.Debugf("heartbeat user=%d session=%s status=%s idle=%ds agent=%q",
			userID, req.SessionID, resp.CurrentStatus, req.Metadata.SecondsSinceActivity, req.Metadata.UserAgent)
	}
}

func toPresenceResponse(user *entity.User) *contract.PresenceResponse {
	return &contract.PresenceResponse{
		UserID:   user.ID,
		Username: user.Username,
		Status:   contract.StatusOf(user.IsOnline),
		IsOnline: user.IsOnline,
		LastSeen: utils.FormatEpochPtr(user.LastSeen),
	}
}
