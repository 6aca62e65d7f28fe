package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DemandLoop/internal/domain/models"
	domrepo "DemandLoop/internal/domain/repository"
	domservice "DemandLoop/internal/domain/service"
	"DemandLoop/internal/repository"
	"DemandLoop/internal/service/ratelimit"
)

type checkinFixture struct {
	uc      *CheckinUseCase
	signals *repository.MemorySignalStore
	preds   *repository.MemoryPredictionStore
}

func newCheckinFixture(limiter RateLimiter) checkinFixture {
	venues := repository.NewMemoryVenueStore(cafe("v1", 24.7, 46.7))
	signals := repository.NewMemorySignalStore()
	preds := repository.NewMemoryPredictionStore()
	if limiter == nil {
		limiter = ratelimit.New(ratelimit.NewMemoryStore(), 6, 10*time.Minute, ratelimit.WithClock(fixedClock))
	}
	rec := NewRecomputeUseCase(venues, signals, preds, nil, nil, RecomputeConfig{}, WithClock(fixedClock))
	return checkinFixture{
		uc:      NewCheckinUseCase(venues, signals, preds, limiter, rec, WithClock(fixedClock)),
		signals: signals,
		preds:   preds,
	}
}

func TestSubmitterHash(t *testing.T) {
	assert.Equal(t, "12ca17b49af22894", SubmitterHash("127.0.0.1"))
	assert.Len(t, SubmitterHash("10.0.0.1"), 16)
	assert.NotEqual(t, SubmitterHash("10.0.0.1"), SubmitterHash("10.0.0.2"))
}

func TestCheckin_RecordsSignalAndRecomputes(t *testing.T) {
	f := newCheckinFixture(nil)

	got, err := f.uc.Checkin(context.Background(), CheckinParams{
		VenueID:    "v1",
		CrowdLevel: models.CrowdHigh,
		WaitBand:   models.Wait20To40,
		ClientIP:   "127.0.0.1",
	})
	require.NoError(t, err)
	assert.True(t, got.Known)
	assert.Equal(t, models.CrowdHigh, got.Prediction.Now.CrowdLevel)
	assert.Equal(t, models.Wait20To40, got.Prediction.Now.WaitBand)
	assert.Equal(t, models.ConfidenceMedium, got.Prediction.Now.Confidence)
	assert.InDelta(t, 0.46, got.Prediction.Now.ConfidenceScore, 1e-9)

	sigs, err := f.signals.FetchSignals(context.Background(), "v1", testNow.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	assert.Equal(t, models.SignalCheckin, sigs[0].Kind)
	assert.Equal(t, "12ca17b49af22894", sigs[0].UserHash)
	assert.Equal(t, 1.0, sigs[0].Weight)
	assert.NotEmpty(t, sigs[0].ID)
}

func TestCheckin_RateLimitsPerSubmitter(t *testing.T) {
	f := newCheckinFixture(nil)
	params := CheckinParams{VenueID: "v1", CrowdLevel: models.CrowdLow, WaitBand: models.Wait0To10, ClientIP: "10.0.0.1"}

	for i := 0; i < 6; i++ {
		_, err := f.uc.Checkin(context.Background(), params)
		require.NoError(t, err, "check-in %d", i+1)
	}
	_, err := f.uc.Checkin(context.Background(), params)
	require.ErrorIs(t, err, ErrRateLimited)

	params.ClientIP = "10.0.0.2"
	_, err = f.uc.Checkin(context.Background(), params)
	require.NoError(t, err)
}

func TestCheckin_UnknownVenue(t *testing.T) {
	f := newCheckinFixture(nil)
	_, err := f.uc.Checkin(context.Background(), CheckinParams{
		VenueID: "nope", CrowdLevel: models.CrowdLow, WaitBand: models.Wait0To10, ClientIP: "1.1.1.1",
	})
	require.ErrorIs(t, err, ErrVenueNotFound)
}

func TestCheckin_InvalidReport(t *testing.T) {
	f := newCheckinFixture(nil)
	_, err := f.uc.Checkin(context.Background(), CheckinParams{
		VenueID: "v1", CrowdLevel: "LOUD", WaitBand: models.Wait0To10, ClientIP: "1.1.1.1",
	})
	require.ErrorIs(t, err, domrepo.ErrInvalidInput)
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, error) {
	return true, errors.New("redis unavailable")
}

func TestCheckin_LimiterFailureAllows(t *testing.T) {
	f := newCheckinFixture(brokenLimiter{})
	_, err := f.uc.Checkin(context.Background(), CheckinParams{
		VenueID: "v1", CrowdLevel: models.CrowdMedium, WaitBand: models.Wait10To20, ClientIP: "1.1.1.1",
	})
	require.NoError(t, err)
}

func TestCheckin_RecomputeFailureIsReturned(t *testing.T) {
	venues := repository.NewMemoryVenueStore(cafe("v1", 24.7, 46.7))
	signals := repository.NewMemorySignalStore()
	preds := failingPredictions{repository.NewMemoryPredictionStore()}
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), 6, 10*time.Minute, ratelimit.WithClock(fixedClock))
	rec := NewRecomputeUseCase(venues, signals, preds, nil, nil, RecomputeConfig{}, WithClock(fixedClock))
	uc := NewCheckinUseCase(venues, signals, preds, limiter, rec, WithClock(fixedClock))

	got, err := uc.Checkin(context.Background(), CheckinParams{
		VenueID:    "v1",
		CrowdLevel: models.CrowdHigh,
		WaitBand:   models.Wait20To40,
		ClientIP:   "127.0.0.1",
	})
	require.ErrorIs(t, err, domservice.ErrVenueRecompute)
	assert.Nil(t, got)
}
