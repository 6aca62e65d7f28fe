package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"DemandLoop/internal/domain/models"
	domrepo "DemandLoop/internal/domain/repository"
	"DemandLoop/internal/services/demand"
	"DemandLoop/pkg/util"
)

const (
	alternativeRadiusKm    = 4.0
	alternativeExpandKm    = 6.0
	alternativeMinResults  = 3
	alternativeMaxResults  = 6
	alternativeDistanceDec = 1
)

// PlaceDetailUseCase assembles the full view of one venue.
type PlaceDetailUseCase struct {
	venues domrepo.VenueStore
	preds  domrepo.PredictionStore
	common
}

func NewPlaceDetailUseCase(venues domrepo.VenueStore, preds domrepo.PredictionStore, opts ...Option) *PlaceDetailUseCase {
	return &PlaceDetailUseCase{venues: venues, preds: preds, common: applyOptions(opts)}
}

func (uc *PlaceDetailUseCase) GetPlace(ctx context.Context, id string) (*models.PlaceDetail, error) {
	venue, err := uc.venues.Get(ctx, id)
	if errors.Is(err, domrepo.ErrNotFound) {
		return nil, ErrVenueNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get venue: %w", err)
	}

	out := &models.PlaceDetail{
		VenueDemand: models.VenueDemand{Venue: *venue, Prediction: models.DefaultPrediction(venue.ID)},
	}
	pred, err := uc.preds.Get(ctx, venue.ID)
	switch {
	case err == nil:
		out.Prediction, out.Known = *pred, true
	case !errors.Is(err, domrepo.ErrNotFound):
		return nil, fmt.Errorf("get prediction: %w", err)
	}

	out.Forecast = PadForecast(out.Prediction.Forecast, uc.clock())
	out.Alternatives, err = uc.alternatives(ctx, *venue)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PadForecast returns exactly demand.ForecastHours points. Missing points follow
// the last one on consecutive hours as MEDIUM/"10-20"; an empty forecast starts
// at the top of the next hour after now.
func PadForecast(forecast []models.ForecastPoint, now time.Time) []models.ForecastPoint {
	out := make([]models.ForecastPoint, 0, demand.ForecastHours)
	for _, fp := range forecast {
		if len(out) == demand.ForecastHours {
			break
		}
		out = append(out, fp)
	}
	for len(out) < demand.ForecastHours {
		next := now.UTC().Add(time.Hour)
		if n := len(out); n > 0 {
			next = out[n-1].Hour.Add(time.Hour)
		}
		out = append(out, models.ForecastPoint{
			Hour:       next.Truncate(time.Hour),
			CrowdLevel: models.CrowdMedium,
			WaitBand:   models.Wait10To20,
		})
	}
	return out
}

// alternatives searches same-category active venues around v, widening the
// radius once when too few are found.
func (uc *PlaceDetailUseCase) alternatives(ctx context.Context, v models.Venue) ([]models.AlternativeCandidate, error) {
	cands, err := uc.findAlternatives(ctx, v, alternativeRadiusKm)
	if err != nil {
		return nil, err
	}
	if len(cands) < alternativeMinResults {
		if cands, err = uc.findAlternatives(ctx, v, alternativeExpandKm); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Score > cands[j].Score })
	if len(cands) > alternativeMaxResults {
		cands = cands[:alternativeMaxResults]
	}
	return cands, nil
}

func (uc *PlaceDetailUseCase) findAlternatives(ctx context.Context, v models.Venue, radiusKm float64) ([]models.AlternativeCandidate, error) {
	minLat, maxLat, minLng, maxLng := util.BoundingBox(v.Lat, v.Lng, radiusKm)
	nearby, err := uc.venues.List(ctx, models.VenueFilter{
		Category:  v.Category,
		ExcludeID: v.ID,
		Bounds:    &models.BoundingBox{MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng},
	})
	if err != nil {
		return nil, fmt.Errorf("list alternatives: %w", err)
	}

	inRange := nearby[:0]
	dist := make(map[string]float64, len(nearby))
	for _, n := range nearby {
		d := util.HaversineKm(v.Lat, v.Lng, n.Lat, n.Lng)
		if d > radiusKm {
			continue
		}
		dist[n.ID] = d
		inRange = append(inRange, n)
	}

	withPreds, err := attachPredictions(ctx, uc.preds, inRange)
	if err != nil {
		return nil, err
	}
	out := make([]models.AlternativeCandidate, 0, len(withPreds))
	for _, d := range withPreds {
		km := dist[d.Venue.ID]
		now := d.Prediction.Now
		c := models.AlternativeCandidate{
			Venue:      d.Venue,
			Now:        now,
			DistanceKm: util.Round(km, alternativeDistanceDec),
			Score:      demand.AlternativeScore(now.WaitBand, now.ConfidenceScore, km, v.FamilyMatches(d.Venue)),
		}
		if d.Known {
			c.GeneratedAt = d.Prediction.GeneratedAt
		}
		out = append(out, c)
	}
	return out, nil
}
