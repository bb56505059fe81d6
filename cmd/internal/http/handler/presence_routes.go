package handler

import (
	"agenthelper/cmd/internal/contract"
	"agenthelper/cmd/internal/domain/entity"
	"agenthelper/cmd/internal/utils"
	"agenthelper/cmd/internal/utils/apierror"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

type PresenceService interface {
	ProcessHeartbeat(ctx context.Context, actor *entity.User, userID int64, req *contract.HeartbeatRequest) (*contract.HeartbeatResponse, apierror.ErrorResponse)
	GetPresence(rawId string) (*contract.PresenceResponse, apierror.ErrorResponse)
	GetOnlineUsers() ([]*contract.PresenceResponse, apierror.ErrorResponse)
}

type DefaultPresenceRoute struct {
	PresenceService PresenceService
}

func NewPresenceDefault(presenceService PresenceService) *DefaultPresenceRoute {
	return &DefaultPresenceRoute{PresenceService: presenceService}
}

func (p *DefaultPresenceRoute) Heartbeat(c echo.Context) error {
	var req contract.HeartbeatRequest
	if err := c.Bind(&req); err != nil {
		return heartbeatFailure(c, apierror.MalformedBodyError)
	}

	userID, apierr := resolveUserID(c, req.UserID)
	if apierr != nil {
		return heartbeatFailure(c, apierr)
	}

	actor := utils.OptionalUserFromContext(c)
	resp, apierr := p.PresenceService.ProcessHeartbeat(c.Request().Context(), actor, userID, &req)
	if apierr != nil {
		return heartbeatFailure(c, apierr)
	}
	return c.JSON(http.StatusOK, resp)
}

// Beacon is the unload variant of Heartbeat. Browsers send beacons with
// whatever content type they like and never read the answer, so the body is
// decoded by hand and failures are only logged.
func (p *DefaultPresenceRoute) Beacon(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		log.Warnf("failed to read beacon body: %v", err)
		return c.NoContent(http.StatusBadRequest)
	}

	var req contract.HeartbeatRequest
	if err = json.Unmarshal(body, &req); err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	userID, apierr := resolveUserID(c, req.UserID)
	if apierr != nil {
		log.Debugf("dropping beacon without a valid user id")
		return c.NoContent(http.StatusNoContent)
	}

	actor := utils.OptionalUserFromContext(c)
	if _, apierr = p.PresenceService.ProcessHeartbeat(c.Request().Context(), actor, userID, &req); apierr != nil {
		log.Warnf("beacon for user %d was not recorded (status %d)", userID, apierr.Code())
	}
	return c.NoContent(http.StatusNoContent)
}

func (p *DefaultPresenceRoute) GetPresence(c echo.Context) error {
	rawId := strings.TrimSpace(c.Param("id"))
	if rawId == "" {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("id"))
	}

	presence, apierr := p.PresenceService.GetPresence(rawId)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, presence)
}

func (p *DefaultPresenceRoute) GetOnline(c echo.Context) error {
	users, apierr := p.PresenceService.GetOnlineUsers()
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"users": users}
	return c.JSON(http.StatusOK, &resp)
}

// resolveUserID prefers the header, then the body, then the authenticated
// actor.
func resolveUserID(c echo.Context, bodyID int64) (int64, apierror.ErrorResponse) {
	if raw := strings.TrimSpace(c.Request().Header.Get(contract.HeaderUserID)); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return 0, apierror.NewInvalidParamTypeError(contract.HeaderUserID, "int64")
		}
		return id, nil
	}

	if bodyID > 0 {
		return bodyID, nil
	}

	if actor := utils.OptionalUserFromContext(c); actor != nil {
		return actor.ID, nil
	}
	return 0, apierror.MissingUserIDError
}

func heartbeatFailure(c echo.Context, apierr apierror.ErrorResponse) error {
	resp := &contract.HeartbeatFailure{Success: false}

	switch e := apierr.(type) {
	case *apierror.APIError:
		resp.Message = e.Message
	case *apierror.StructuredError:
		resp.Message = "Invalid heartbeat payload"
		resp.Errors = e.Errors
	default:
		resp.Message = http.StatusText(apierr.Code())
	}
	return c.JSON(apierr.Code(), resp)
}
