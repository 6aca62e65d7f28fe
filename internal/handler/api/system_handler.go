package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"DemandLoop/internal/domain/models"
	domrepo "DemandLoop/internal/domain/repository"
	domservice "DemandLoop/internal/domain/service"
	"DemandLoop/internal/usecase"
	xhttp "DemandLoop/pkg/http"
	xlogger "DemandLoop/pkg/logger"
)

// SystemHandler serves health and the dev-only recompute trigger.
type SystemHandler struct {
	logger           *xlogger.Logger
	places           *usecase.PlacesUseCase
	db               domrepo.Pinger
	recomputer       domservice.Recomputer
	recomputeEnabled bool
}

// NewSystemHandler builds the handler. db may be nil when storage has no connection to ping.
func NewSystemHandler(
	logger *xlogger.Logger,
	places *usecase.PlacesUseCase,
	db domrepo.Pinger,
	recomputer domservice.Recomputer,
	recomputeEnabled bool,
) *SystemHandler {
	return &SystemHandler{
		logger:           logger,
		places:           places,
		db:               db,
		recomputer:       recomputer,
		recomputeEnabled: recomputeEnabled,
	}
}

var _ xhttp.Handler = (*SystemHandler)(nil)

func (h *SystemHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/health", h.Health)
	g.POST("/dev/recompute", h.Recompute)
}

func (h *SystemHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Error("health check failed", xlogger.Error(err))
			return xhttp.DataResponse(c, http.StatusInternalServerError, healthResponse{})
		}
	}
	n, err := h.places.CountActive(ctx)
	if err != nil {
		h.logger.Error("health check failed", xlogger.Error(err))
		return xhttp.DataResponse(c, http.StatusInternalServerError, healthResponse{})
	}
	return xhttp.SuccessResponse(c, healthResponse{OK: true, DB: true, PlacesCount: n})
}

func (h *SystemHandler) Recompute(c echo.Context) error {
	if !h.recomputeEnabled {
		return xhttp.AppErrorResponse(c, xhttp.ForbiddenError(xhttp.CodeDevOnly, "This endpoint is disabled"))
	}
	req := &models.RecomputeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	n, err := h.recomputer.RecomputePredictions(ctx, req.PlaceIDs)
	switch {
	case domservice.PartialFailure(ctx, err):
		h.logger.Warn("dev recompute skipped failed venues", xlogger.Int("recomputed", n), xlogger.Error(err))
	case err != nil:
		h.logger.Error("dev recompute error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, recomputeResponse{Recomputed: n})
}
