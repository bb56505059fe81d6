package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

type DefaultHealthRoute struct {
	check func() error
}

// NewHealthRoute reports unhealthy while check fails. Used by the compose
// healthcheck.
func NewHealthRoute(check func() error) *DefaultHealthRoute {
	return &DefaultHealthRoute{check: check}
}

func (h *DefaultHealthRoute) Health(c echo.Context) error {
	if h.check != nil {
		if err := h.check(); err != nil {
			log.Errorf("health check failed: %v", err)
			return c.String(http.StatusServiceUnavailable, "UNAVAILABLE")
		}
	}
	return c.String(http.StatusOK, "OK")
}
