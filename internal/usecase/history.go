package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"DemandLoop/internal/domain/models"
	domrepo "DemandLoop/internal/domain/repository"
)

const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 1000
	defaultHistorySpan  = 24 * time.Hour
)

type HistoryParams struct {
	VenueID  string
	From, To time.Time // zero means default
	Limit    int
}

// HistoryUseCase reads archived predictions for one venue, newest first.
type HistoryUseCase struct {
	venues  domrepo.VenueStore
	archive domrepo.PredictionArchive
	common
}

func NewHistoryUseCase(venues domrepo.VenueStore, archive domrepo.PredictionArchive, opts ...Option) *HistoryUseCase {
	return &HistoryUseCase{venues: venues, archive: archive, common: applyOptions(opts)}
}

func (uc *HistoryUseCase) History(ctx context.Context, p HistoryParams) ([]models.Prediction, error) {
	if _, err := uc.venues.Get(ctx, p.VenueID); err != nil {
		if errors.Is(err, domrepo.ErrNotFound) {
			return nil, ErrVenueNotFound
		}
		return nil, fmt.Errorf("get venue: %w", err)
	}

	if p.To.IsZero() {
		p.To = uc.clock()
	}
	if p.From.IsZero() {
		p.From = p.To.Add(-defaultHistorySpan)
	}
	if p.From.After(p.To) {
		return nil, fmt.Errorf("from after to: %w", domrepo.ErrInvalidInput)
	}
	if p.Limit <= 0 {
		p.Limit = DefaultHistoryLimit
	}
	if p.Limit > MaxHistoryLimit {
		p.Limit = MaxHistoryLimit
	}

	if uc.archive == nil {
		return []models.Prediction{}, nil
	}
	preds, err := uc.archive.History(ctx, p.VenueID, p.From.UTC(), p.To.UTC(), p.Limit)
	if err != nil {
		return nil, fmt.Errorf("archive history: %w", err)
	}
	if preds == nil {
		preds = []models.Prediction{}
	}
	return preds, nil
}
