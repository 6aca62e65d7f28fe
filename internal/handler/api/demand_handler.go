package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"DemandLoop/internal/domain/models"
	domrepo "DemandLoop/internal/domain/repository"
	"DemandLoop/internal/service/cache"
	"DemandLoop/internal/service/metrics"
	"DemandLoop/internal/usecase"
	xhttp "DemandLoop/pkg/http"
	xlogger "DemandLoop/pkg/logger"
	"DemandLoop/pkg/util"
)

const publicCacheControl = "public, max-age=30, s-maxage=30"

// DemandHandler serves the read side: places, place detail, history and trending.
type DemandHandler struct {
	logger      *xlogger.Logger
	places      *usecase.PlacesUseCase
	detail      *usecase.PlaceDetailUseCase
	trending    *usecase.TrendingUseCase
	history     *usecase.HistoryUseCase
	cache       cache.BytesCache
	trendingTTL time.Duration
	now         func() time.Time
}

func NewDemandHandler(
	logger *xlogger.Logger,
	places *usecase.PlacesUseCase,
	detail *usecase.PlaceDetailUseCase,
	trending *usecase.TrendingUseCase,
	history *usecase.HistoryUseCase,
	bc cache.BytesCache,
	trendingTTL time.Duration,
) *DemandHandler {
	return &DemandHandler{
		logger:      logger,
		places:      places,
		detail:      detail,
		trending:    trending,
		history:     history,
		cache:       bc,
		trendingTTL: trendingTTL,
		now:         time.Now,
	}
}

var _ xhttp.Handler = (*DemandHandler)(nil)

func (h *DemandHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/places", h.Places)
	g.GET("/place/:id", h.Place)
	g.GET("/place/:id/history", h.History)
	g.GET("/trending", h.Trending)
}

func (h *DemandHandler) Places(c echo.Context) error {
	req := &models.PlacesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	params := usecase.ListPlacesParams{
		Filter:   venueFilter(req.Category, req.District, req.Kids, req.Stroller, req.PrayerRoom, req.ParkingEaseMin),
		RadiusKm: req.RadiusKm,
		Limit:    req.Limit,
		Offset:   req.Offset,
	}
	if (req.Lat == "") != (req.Lng == "") {
		return xhttp.AppErrorResponse(c, xhttp.ValidationFailed("lat", "lat and lng must be provided together"))
	}
	if req.Lat != "" {
		lat, _ := strconv.ParseFloat(req.Lat, 64)
		lng, _ := strconv.ParseFloat(req.Lng, 64)
		params.Near = &usecase.GeoPoint{Lat: lat, Lng: lng}
	}

	rows, err := h.places.ListPlaces(c.Request().Context(), params)
	if err != nil {
		h.logger.Error("places usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	now := h.now()
	out := placesResponse{Places: make([]placeListItem, len(rows))}
	for i, r := range rows {
		out.Places[i] = newPlaceListItem(r, now)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, publicCacheControl)
	return xhttp.SuccessResponse(c, out)
}

func (h *DemandHandler) Place(c echo.Context) error {
	req := &models.PlaceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	d, err := h.detail.GetPlace(c.Request().Context(), req.ID)
	if errors.Is(err, usecase.ErrVenueNotFound) {
		return xhttp.AppErrorResponse(c, xhttp.PlaceNotFound())
	}
	if err != nil {
		h.logger.Error("place detail usecase error", xlogger.String("place_id", req.ID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, newPlaceDetailResponse(d, h.now()))
}

func (h *DemandHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	params := usecase.HistoryParams{VenueID: req.ID, Limit: req.Limit}
	for _, q := range []struct {
		field, raw string
		dst        *time.Time
	}{{"from", req.From, &params.From}, {"to", req.To, &params.To}} {
		if q.raw == "" {
			continue
		}
		t, ok := util.ParseTime(q.raw)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.ValidationFailed(q.field, q.field+" must be an RFC3339 or unix timestamp"))
		}
		*q.dst = t
	}
	if params.To.IsZero() {
		params.To = h.now()
	}
	if params.From.IsZero() {
		params.From = params.To.Add(-24 * time.Hour)
	}

	preds, err := h.history.History(c.Request().Context(), params)
	switch {
	case errors.Is(err, usecase.ErrVenueNotFound):
		return xhttp.AppErrorResponse(c, xhttp.PlaceNotFound())
	case errors.Is(err, domrepo.ErrInvalidInput):
		return xhttp.AppErrorResponse(c, xhttp.ValidationFailed("from", "from must not be after to"))
	case err != nil:
		h.logger.Error("history usecase error", xlogger.String("place_id", req.ID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	out := historyResponse{
		PlaceID: req.ID,
		From:    util.FormatInstant(params.From),
		To:      util.FormatInstant(params.To),
		Items:   make([]historyItem, len(preds)),
	}
	for i, p := range preds {
		out.Items[i] = historyItem{
			GeneratedAt: util.FormatInstant(p.GeneratedAt),
			Now:         models.NewDemandDTO(p, true, p.GeneratedAt),
			Forecast:    models.NewForecastDTOs(p.Forecast),
			BestWindows: models.NewBestWindowDTOs(p.BestWindows),
		}
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *DemandHandler) Trending(c echo.Context) error {
	req := &models.TrendingRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	key := "trending:" + c.QueryParams().Encode()
	if b, ok := h.cacheGet(c, key); ok {
		c.Response().Header().Set(echo.HeaderCacheControl, publicCacheControl)
		return c.JSONBlob(http.StatusOK, b)
	}

	res, err := h.trending.Trending(ctx, usecase.TrendingParams{
		Filter: venueFilter(req.Category, req.District, req.Kids, req.Stroller, req.PrayerRoom, req.ParkingEaseMin),
		Window: time.Duration(req.TimeWindowMin) * time.Minute,
		Limit:  req.Limit,
		Offset: req.Offset,
	})
	if err != nil {
		h.logger.Error("trending usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	body, err := json.Marshal(xhttp.APIResponse{
		Status:  http.StatusOK,
		Message: http.StatusText(http.StatusOK),
		Data:    newTrendingResponse(res, res.GeneratedAt),
	})
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	if h.cache != nil {
		if err := h.cache.SetBytes(ctx, key, body, h.trendingTTL); err != nil {
			h.logger.Warn("trending cache set failed", xlogger.Error(err))
		}
	}
	c.Response().Header().Set(echo.HeaderCacheControl, publicCacheControl)
	return c.JSONBlob(http.StatusOK, body)
}

func (h *DemandHandler) cacheGet(c echo.Context, key string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	b, ok, err := h.cache.GetBytes(c.Request().Context(), key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("trending", metrics.CacheError).Inc()
		h.logger.Warn("trending cache get failed", xlogger.Error(err))
		return nil, false
	case ok:
		metrics.CacheLookups.WithLabelValues("trending", metrics.CacheHit).Inc()
		return b, true
	default:
		metrics.CacheLookups.WithLabelValues("trending", metrics.CacheMiss).Inc()
		return nil, false
	}
}

// venueFilter maps validated query values onto a store filter.
func venueFilter(category, district string, kids, stroller, prayerRoom bool, parkingEaseMin string) models.VenueFilter {
	f := models.VenueFilter{
		District:   district,
		Kids:       kids,
		Stroller:   stroller,
		PrayerRoom: prayerRoom,
	}
	if cat, err := models.ParseCategory(category); err == nil {
		f.Category = cat
	}
	if pe, err := models.ParseParkingEase(parkingEaseMin); err == nil {
		f.MaxParkingEase = pe
	}
	return f
}
