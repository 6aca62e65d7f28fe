package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"DemandLoop/internal/domain/models"
	domrepo "DemandLoop/internal/domain/repository"
	domservice "DemandLoop/internal/domain/service"
	"DemandLoop/internal/services/demand"
	applogger "DemandLoop/pkg/logger"
)

// RecomputeConfig tunes an orchestration run.
type RecomputeConfig struct {
	Window  time.Duration // signal look-back
	Workers int           // venues processed concurrently
}

// RecomputeUseCase refreshes persisted predictions from recent signals.
// Each venue's fetch, compute and upsert is isolated: a failure is logged,
// counted and reported to the caller but never stops the rest of the run.
type RecomputeUseCase struct {
	venues    domrepo.VenueStore
	signals   domrepo.SignalStore
	preds     domrepo.PredictionStore
	archive   domrepo.PredictionArchive
	publisher domrepo.PredictionPublisher
	cfg       RecomputeConfig
	common
}

var _ domservice.Recomputer = (*RecomputeUseCase)(nil)

// NewRecomputeUseCase wires the orchestrator. archive and publisher may be nil.
func NewRecomputeUseCase(
	venues domrepo.VenueStore,
	signals domrepo.SignalStore,
	preds domrepo.PredictionStore,
	archive domrepo.PredictionArchive,
	publisher domrepo.PredictionPublisher,
	cfg RecomputeConfig,
	opts ...Option,
) *RecomputeUseCase {
	if cfg.Window <= 0 {
		cfg.Window = demand.SignalWindow
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &RecomputeUseCase{
		venues:    venues,
		signals:   signals,
		preds:     preds,
		archive:   archive,
		publisher: publisher,
		cfg:       cfg,
		common:    applyOptions(opts),
	}
}

// RecomputePredictions recomputes the given venues, or every active venue when
// ids is empty, and returns how many predictions were persisted along with the
// joined per-venue failures.
func (uc *RecomputeUseCase) RecomputePredictions(ctx context.Context, venueIDs []string) (int, error) {
	start := time.Now()
	venues, err := uc.venues.ListActive(ctx, venueIDs)
	if err != nil {
		uc.metrics.RecordError("recompute_list")
		return 0, fmt.Errorf("list venues: %w", err)
	}

	now := uc.clock()
	var (
		done   atomic.Int64
		mu     sync.Mutex
		batch  = make([]models.Prediction, 0, len(venues))
		failed []error
		g      errgroup.Group
	)
	g.SetLimit(uc.cfg.Workers)

	for _, v := range venues {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			p, err := uc.recomputeVenue(ctx, v, now)
			if err != nil {
				uc.metrics.RecordRecompute("error")
				uc.l.Error("recompute venue failed",
					applogger.String("venue_id", v.ID),
					applogger.Error(err),
				)
				mu.Lock()
				failed = append(failed, fmt.Errorf("%w: %s: %w", domservice.ErrVenueRecompute, v.ID, err))
				mu.Unlock()
				return nil
			}
			uc.metrics.RecordRecompute("ok")
			done.Add(1)
			uc.publish(ctx, p)

			mu.Lock()
			batch = append(batch, *p)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	uc.appendArchive(ctx, batch)
	uc.metrics.RecordLatency("recompute_run", time.Since(start).Seconds())

	n := int(done.Load())
	uc.l.Info("recompute finished",
		applogger.Int("venues", len(venues)),
		applogger.Int("persisted", n),
		applogger.Int("failed", len(failed)),
		applogger.Duration("took", time.Since(start)),
	)
	if err := ctx.Err(); err != nil {
		failed = append(failed, fmt.Errorf("recompute interrupted: %w", err))
	}
	return n, errors.Join(failed...)
}

func (uc *RecomputeUseCase) recomputeVenue(ctx context.Context, v models.Venue, now time.Time) (*models.Prediction, error) {
	signals, err := uc.signals.FetchSignals(ctx, v.ID, now.Add(-uc.cfg.Window))
	if err != nil {
		return nil, fmt.Errorf("fetch signals: %w", err)
	}

	p := BuildPrediction(v, signals, now)
	if err := uc.preds.Upsert(ctx, &p); err != nil {
		return nil, fmt.Errorf("upsert prediction: %w", err)
	}
	return &p, nil
}

// BuildPrediction runs estimate, forecast and window selection for one venue.
func BuildPrediction(v models.Venue, signals []models.Signal, now time.Time) models.Prediction {
	est := demand.ComputeNowEstimate(signals, now)
	forecast := demand.ComputeForecast(v.Category, est.CrowdLevel, now)
	return models.Prediction{
		VenueID:     v.ID,
		Now:         est,
		Forecast:    forecast,
		BestWindows: demand.ComputeBestWindows(forecast),
		GeneratedAt: now,
	}
}

func (uc *RecomputeUseCase) publish(ctx context.Context, p *models.Prediction) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.PublishPrediction(ctx, p); err != nil {
		uc.metrics.RecordError("prediction_publish")
		uc.l.Warn("publish prediction failed",
			applogger.String("venue_id", p.VenueID),
			applogger.Error(err),
		)
	}
}

func (uc *RecomputeUseCase) appendArchive(ctx context.Context, batch []models.Prediction) {
	if uc.archive == nil || len(batch) == 0 {
		return
	}
	if err := uc.archive.AppendBatch(ctx, batch); err != nil {
		uc.metrics.RecordError("prediction_archive")
		uc.l.Warn("archive predictions failed",
			applogger.Int("count", len(batch)),
			applogger.Error(err),
		)
	}
}
