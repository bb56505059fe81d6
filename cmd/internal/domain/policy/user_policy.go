package policy

import (
	"agenthelper/cmd/internal/domain/entity"
	"agenthelper/cmd/internal/utils/apierror"
)

const (
	mngUsers    = entity.PermissionManageUsers
	mngPresence = entity.PermissionManagePresence
)

// UserPolicy encapsulates all business rules for user manipulation.
// It returns apierror.ErrorResponse directly for seamless integration with handlers.
//
// A nil actor is an anonymous caller. Without authentication configured
// every rule passes for it, once a token verifier exists it passes none.
type UserPolicy struct {
	authEnabled bool
}

func NewUserPolicy(authEnabled bool) *UserPolicy {
	return &UserPolicy{authEnabled: authEnabled}
}

// CanCreateUser checks if 'actor' can provision new accounts.
func (p *UserPolicy) CanCreateUser(actor *entity.User) apierror.ErrorResponse {
	if actor == nil {
		return p.anonymous()
	}

	if !actor.Permissions.HasEffective(mngUsers) {
		return permError(mngUsers)
	}
	return nil
}

// CanReportPresence checks if 'actor' can send heartbeats for 'targetID'.
// Everyone may report their own presence.
func (p *UserPolicy) CanReportPresence(actor *entity.User, targetID int64) apierror.ErrorResponse {
	if actor == nil {
		return p.anonymous()
	}

	if actor.ID == targetID {
		return nil
	}

	if !actor.Permissions.HasEffective(mngPresence) {
		return permError(mngPresence)
	}
	return nil
}

func (p *UserPolicy) anonymous() apierror.ErrorResponse {
	if p.authEnabled {
		return apierror.UnauthorizedError
	}
	return nil
}

func permError(perm entity.Permission) *apierror.APIError {
	return apierror.NewPermissionError(int64(perm))
}
