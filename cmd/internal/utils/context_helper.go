package utils

import (
	"agenthelper/cmd/internal/domain/entity"
	"agenthelper/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

const ContextUserKey = "user"

func GetUserFromContext(c echo.Context) (*entity.User, apierror.ErrorResponse) {
	val := c.Get(ContextUserKey)
	if val == nil {
		log.Warnf("route %s attempted to read nil user from context", c.Request().URL)
		return nil, apierror.UnauthorizedError
	}

	user, ok := val.(*entity.User)
	if !ok {
		log.Warnf("expected user type at '%s' context key, got %T", ContextUserKey, val)
		return nil, apierror.InternalServerError
	}
	return user, nil
}

// OptionalUserFromContext returns the authenticated actor, or nil when the
// server runs without authentication.
func OptionalUserFromContext(c echo.Context) *entity.User {
	user, _ := c.Get(ContextUserKey).(*entity.User)
	return user
}

const ContextTokenKey = "token"

// GetTokenFromContext returns the verified token the auth middleware stored,
// nil without one.
func GetTokenFromContext(c echo.Context) *TokenData {
	token, _ := c.Get(ContextTokenKey).(*TokenData)
	return token
}
