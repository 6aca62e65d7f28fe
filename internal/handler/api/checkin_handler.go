package api

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"DemandLoop/internal/domain/models"
	"DemandLoop/internal/usecase"
	xhttp "DemandLoop/pkg/http"
	xlogger "DemandLoop/pkg/logger"
)

const rateLimitedMessage = "Too many check-ins. Maximum 6 per 10 minutes."

type CheckinHandler struct {
	logger  *xlogger.Logger
	checkin *usecase.CheckinUseCase
	now     func() time.Time
}

func NewCheckinHandler(logger *xlogger.Logger, checkin *usecase.CheckinUseCase) *CheckinHandler {
	return &CheckinHandler{logger: logger, checkin: checkin, now: time.Now}
}

var _ xhttp.Handler = (*CheckinHandler)(nil)

func (h *CheckinHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/checkin", h.Checkin)
}

func (h *CheckinHandler) Checkin(c echo.Context) error {
	req := &models.CheckinRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	crowd, _ := models.ParseCrowdLevel(req.CrowdLevel)
	wait, _ := models.ParseWaitBand(req.WaitBand)

	d, err := h.checkin.Checkin(c.Request().Context(), usecase.CheckinParams{
		VenueID:    req.PlaceID,
		CrowdLevel: crowd,
		WaitBand:   wait,
		ClientIP:   xhttp.ClientIP(c),
	})
	switch {
	case errors.Is(err, usecase.ErrVenueNotFound):
		return xhttp.AppErrorResponse(c, xhttp.ValidationFailed("placeId", "Place not found"))
	case errors.Is(err, usecase.ErrRateLimited):
		return xhttp.AppErrorResponse(c, xhttp.RateLimited(rateLimitedMessage))
	case err != nil:
		h.logger.Error("checkin usecase error", xlogger.String("place_id", req.PlaceID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	return xhttp.CreatedResponse(c, checkinResponse{
		PlaceID: req.PlaceID,
		Now:     models.NewDemandDTO(d.Prediction, d.Known, h.now()),
	})
}
