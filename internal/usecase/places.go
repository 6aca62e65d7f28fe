package usecase

import (
	"context"
	"fmt"

	"DemandLoop/internal/domain/models"
	domrepo "DemandLoop/internal/domain/repository"
	"DemandLoop/pkg/util"
)

const (
	DefaultRadiusKm  = 6.0
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// GeoPoint is a lat/lng centre for radius searches.
type GeoPoint struct {
	Lat, Lng float64
}

type ListPlacesParams struct {
	Filter   models.VenueFilter
	Near     *GeoPoint
	RadiusKm float64
	Limit    int
	Offset   int
}

// PlacesUseCase lists active venues with their current demand.
type PlacesUseCase struct {
	venues domrepo.VenueStore
	preds  domrepo.PredictionStore
	common
}

func NewPlacesUseCase(venues domrepo.VenueStore, preds domrepo.PredictionStore, opts ...Option) *PlacesUseCase {
	return &PlacesUseCase{venues: venues, preds: preds, common: applyOptions(opts)}
}

// ListPlaces applies attribute filters in the store, a bounding-box prefilter and
// an exact haversine radius check, then pages the result.
func (uc *PlacesUseCase) ListPlaces(ctx context.Context, p ListPlacesParams) ([]models.VenueDemand, error) {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.RadiusKm <= 0 {
		p.RadiusKm = DefaultRadiusKm
	}

	f := p.Filter
	if p.Near != nil {
		minLat, maxLat, minLng, maxLng := util.BoundingBox(p.Near.Lat, p.Near.Lng, p.RadiusKm)
		f.Bounds = &models.BoundingBox{MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng}
	}
	venues, err := uc.venues.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}

	if p.Near != nil {
		kept := venues[:0]
		for _, v := range venues {
			if util.HaversineKm(p.Near.Lat, p.Near.Lng, v.Lat, v.Lng) <= p.RadiusKm {
				kept = append(kept, v)
			}
		}
		venues = kept
	}

	return attachPredictions(ctx, uc.preds, page(venues, p.Offset, p.Limit))
}

// CountActive reports how many active venues exist.
func (uc *PlacesUseCase) CountActive(ctx context.Context) (int, error) {
	n, err := uc.venues.CountActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("count venues: %w", err)
	}
	return n, nil
}
