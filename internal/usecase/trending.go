package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"DemandLoop/internal/domain/models"
	domrepo "DemandLoop/internal/domain/repository"
	"DemandLoop/internal/services/demand"
)

type TrendingParams struct {
	Filter models.VenueFilter
	Window time.Duration
	Limit  int
	Offset int
}

type TrendingResult struct {
	GeneratedAt time.Time
	Items       []models.TrendingEntry
}

// TrendingUseCase ranks venues by recent signal activity.
type TrendingUseCase struct {
	venues  domrepo.VenueStore
	signals domrepo.SignalStore
	preds   domrepo.PredictionStore
	workers int
	common
}

func NewTrendingUseCase(
	venues domrepo.VenueStore,
	signals domrepo.SignalStore,
	preds domrepo.PredictionStore,
	workers int,
	opts ...Option,
) *TrendingUseCase {
	if workers <= 0 {
		workers = 4
	}
	return &TrendingUseCase{venues: venues, signals: signals, preds: preds, workers: workers, common: applyOptions(opts)}
}

func (uc *TrendingUseCase) Trending(ctx context.Context, p TrendingParams) (*TrendingResult, error) {
	if p.Window <= 0 {
		p.Window = demand.SignalWindow
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}

	venues, err := uc.venues.List(ctx, p.Filter)
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	rows, err := attachPredictions(ctx, uc.preds, venues)
	if err != nil {
		return nil, err
	}

	now := uc.clock()
	since := now.Add(-p.Window)
	scores := make([]float64, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.workers)
	for i := range rows {
		g.Go(func() error {
			sigs, err := uc.signals.FetchSignals(gctx, rows[i].Venue.ID, since)
			if err != nil {
				return fmt.Errorf("fetch signals %s: %w", rows[i].Venue.ID, err)
			}
			scores[i] = demand.ComputeTrendingScore(sigs, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := make([]models.TrendingEntry, len(rows))
	for i, r := range rows {
		entries[i] = models.TrendingEntry{Score: scores[i], VenueDemand: r}
	}
	RankTrending(entries)

	paged := page(entries, p.Offset, p.Limit)
	for i := range paged {
		paged[i].Rank = p.Offset + i + 1
	}
	return &TrendingResult{GeneratedAt: now, Items: paged}, nil
}

// RankTrending orders by score desc, then confidence desc, then lower wait band,
// then venue id so the order is total.
func RankTrending(entries []models.TrendingEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		ca, cb := a.Prediction.Now.Confidence.Rank(), b.Prediction.Now.Confidence.Rank()
		if ca != cb {
			return ca > cb
		}
		wa, wb := a.Prediction.Now.WaitBand.RankScore(), b.Prediction.Now.WaitBand.RankScore()
		if wa != wb {
			return wa < wb
		}
		return a.Venue.ID < b.Venue.ID
	})
}
