package usecase

import (
	"context"
	"fmt"

	"DemandLoop/internal/domain/models"
	domrepo "DemandLoop/internal/domain/repository"
)

// attachPredictions pairs venues with their stored predictions, defaulting the rest.
func attachPredictions(ctx context.Context, preds domrepo.PredictionStore, venues []models.Venue) ([]models.VenueDemand, error) {
	ids := make([]string, len(venues))
	for i, v := range venues {
		ids[i] = v.ID
	}
	byID, err := preds.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get predictions: %w", err)
	}

	out := make([]models.VenueDemand, len(venues))
	for i, v := range venues {
		p, ok := byID[v.ID]
		if !ok {
			p = models.DefaultPrediction(v.ID)
		}
		out[i] = models.VenueDemand{Venue: v, Prediction: p, Known: ok}
	}
	return out, nil
}

// page slices items by offset and limit.
func page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
