package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"DemandLoop/internal/domain/models"
	domrepo "DemandLoop/internal/domain/repository"
	domservice "DemandLoop/internal/domain/service"
	applogger "DemandLoop/pkg/logger"
)

var (
	ErrVenueNotFound = errors.New("venue not found")
	ErrRateLimited   = errors.New("too many check-ins")
)

// RateLimiter gates check-ins per submitter.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type CheckinParams struct {
	VenueID    string
	CrowdLevel models.CrowdLevel
	WaitBand   models.WaitBand
	ClientIP   string
}

// CheckinUseCase records a user check-in and refreshes the venue's prediction inline.
type CheckinUseCase struct {
	venues     domrepo.VenueStore
	signals    domrepo.SignalStore
	preds      domrepo.PredictionStore
	limiter    RateLimiter
	recomputer domservice.Recomputer
	common
}

func NewCheckinUseCase(
	venues domrepo.VenueStore,
	signals domrepo.SignalStore,
	preds domrepo.PredictionStore,
	limiter RateLimiter,
	recomputer domservice.Recomputer,
	opts ...Option,
) *CheckinUseCase {
	return &CheckinUseCase{
		venues:     venues,
		signals:    signals,
		preds:      preds,
		limiter:    limiter,
		recomputer: recomputer,
		common:     applyOptions(opts),
	}
}

// SubmitterHash is the first 16 hex chars of SHA-256 over the client IP.
func SubmitterHash(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:])[:16]
}

// Checkin validates the report, applies the rate limit, stores a CHECKIN signal
// and returns the venue's recomputed state. A failed recompute fails the check-in.
// Known is false when the venue was skipped by the recompute (inactive) and no
// prediction exists yet.
func (uc *CheckinUseCase) Checkin(ctx context.Context, p CheckinParams) (*models.VenueDemand, error) {
	if !p.CrowdLevel.Valid() || !p.WaitBand.Valid() {
		return nil, fmt.Errorf("checkin: %w", domrepo.ErrInvalidInput)
	}
	venue, err := uc.venues.Get(ctx, p.VenueID)
	if errors.Is(err, domrepo.ErrNotFound) {
		return nil, ErrVenueNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get venue: %w", err)
	}

	hash := SubmitterHash(p.ClientIP)
	allowed, err := uc.limiter.Allow(ctx, hash)
	if err != nil {
		uc.metrics.RecordError("ratelimit_store")
		uc.l.Warn("rate limit store failed, allowing check-in", applogger.Error(err))
	}
	if !allowed {
		return nil, ErrRateLimited
	}

	sig := models.Signal{
		ID:         uuid.NewString(),
		VenueID:    venue.ID,
		Kind:       models.SignalCheckin,
		CrowdLevel: p.CrowdLevel,
		WaitBand:   p.WaitBand,
		Weight:     1.0,
		UserHash:   hash,
		CreatedAt:  uc.clock().UTC(),
	}
	if err := uc.signals.Insert(ctx, &sig); err != nil {
		return nil, fmt.Errorf("insert signal: %w", err)
	}
	uc.metrics.RecordSignal(string(models.SignalCheckin))
	uc.l.Info("check-in recorded",
		applogger.String("venue_id", venue.ID),
		applogger.String("crowd", p.CrowdLevel.API()),
		applogger.String("wait", string(p.WaitBand)),
	)

	if _, err := uc.recomputer.RecomputePredictions(ctx, []string{venue.ID}); err != nil {
		return nil, fmt.Errorf("recompute: %w", err)
	}

	out := &models.VenueDemand{Venue: *venue, Prediction: models.DefaultPrediction(venue.ID)}
	pred, err := uc.preds.Get(ctx, venue.ID)
	switch {
	case err == nil:
		out.Prediction, out.Known = *pred, true
	case errors.Is(err, domrepo.ErrNotFound):
		out.Prediction.Now.CrowdLevel = p.CrowdLevel
		out.Prediction.Now.WaitBand = p.WaitBand
	default:
		return nil, fmt.Errorf("get prediction: %w", err)
	}
	return out, nil
}
