package middleware

import (
	"agenthelper/cmd/internal/domain/entity"
	"agenthelper/cmd/internal/utils"
	"agenthelper/cmd/internal/utils/apierror"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

type UserRepository interface {
	FindActiveBySub(sub string) (*entity.User, error)
}

type AuthMiddlewareConfig struct {
	Verifier *utils.TokenVerifier
	UserRepo UserRepository

	// Optional lets requests without an Authorization header through
	// anonymously. A header that is present must still be valid.
	Optional bool
}

// NewAuthMiddleware creates the handler with dependencies injected
func NewAuthMiddleware(cfg *AuthMiddlewareConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
			if header == "" && cfg.Optional {
				return next(c)
			}

			tokenData, err := cfg.Verifier.ParseTokenDataCtx(c)
			if err != nil {
				log.Debugf("rejected token on %s: %v", c.Request().URL.Path, err)
				return c.JSON(http.StatusUnauthorized, apierror.InvalidAuthTokenError)
			}

			user, err := cfg.UserRepo.FindActiveBySub(tokenData.Sub)
			if err != nil {
				log.Errorf("failed to resolve user by sub: %v", err)
				return c.JSON(http.StatusInternalServerError, apierror.InternalServerError)
			}

			if user == nil {
				// valid token, but the account was removed or deactivated
				return c.JSON(http.StatusUnauthorized, apierror.UserNotFoundError)
			}

			c.Set(utils.ContextUserKey, user)
			c.Set(utils.ContextTokenKey, tokenData)
			return next(c)
		}
	}
}
