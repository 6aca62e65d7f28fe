package api

import (
	"github.com/labstack/echo/v4"

	"DemandLoop/internal/service/live"
	xhttp "DemandLoop/pkg/http"
	xlogger "DemandLoop/pkg/logger"
	"DemandLoop/pkg/util"
)

// LiveHandler upgrades /api/live to a WebSocket streaming prediction events.
// ?placeIds=a,b limits the stream to those venues.
type LiveHandler struct {
	logger *xlogger.Logger
	hub    *live.Hub
}

func NewLiveHandler(logger *xlogger.Logger, hub *live.Hub) *LiveHandler {
	return &LiveHandler{logger: logger, hub: hub}
}

var _ xhttp.Handler = (*LiveHandler)(nil)

func (h *LiveHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/live", h.Live)
}

func (h *LiveHandler) Live(c echo.Context) error {
	ids := util.SplitList(c.QueryParam("placeIds"))
	if err := h.hub.ServeWS(c.Response(), c.Request(), ids); err != nil {
		// the upgrader has already written the failure response
		h.logger.Warn("live upgrade failed", xlogger.Error(err))
	}
	return nil
}
