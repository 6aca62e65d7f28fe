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
	"DemandLoop/internal/services/demand"
)

func recomputeFixture() (*repository.MemoryVenueStore, *repository.MemorySignalStore, *repository.MemoryPredictionStore) {
	v1 := cafe("v1", 24.70, 46.70)
	v2 := cafe("v2", 24.71, 46.70)
	v2.Category = models.CategoryRestaurant
	v3 := cafe("v3", 24.72, 46.70)
	v3.IsActive = false

	venues := repository.NewMemoryVenueStore(v1, v2, v3)
	signals := seedSignals(
		checkinSignal("v1", models.CrowdHigh, models.Wait20To40, 5*time.Minute),
		checkinSignal("v1", models.CrowdHigh, models.Wait20To40, 3*time.Hour), // outside the window
	)
	return venues, signals, repository.NewMemoryPredictionStore()
}

func TestRecompute_AllActiveVenues(t *testing.T) {
	venues, signals, preds := recomputeFixture()
	archive := &recordingArchive{}
	pub := &recordingPublisher{}
	uc := NewRecomputeUseCase(venues, signals, preds, archive, pub, RecomputeConfig{Workers: 2}, WithClock(fixedClock))

	n, err := uc.RecomputePredictions(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	p1, err := preds.Get(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, models.CrowdHigh, p1.Now.CrowdLevel)
	assert.Equal(t, models.Wait20To40, p1.Now.WaitBand)
	assert.Equal(t, testNow, p1.GeneratedAt)
	assert.Len(t, p1.Forecast, demand.ForecastHours)
	assert.LessOrEqual(t, len(p1.BestWindows), demand.MaxBestWindows)

	p2, err := preds.Get(context.Background(), "v2")
	require.NoError(t, err)
	assert.Equal(t, models.ColdStartEstimate(), p2.Now)
	assert.Equal(t, testNow, p2.GeneratedAt)

	_, err = preds.Get(context.Background(), "v3")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)

	assert.Len(t, archive.preds, 2)
	assert.ElementsMatch(t, []string{"v1", "v2"}, pub.published())
}

func TestRecompute_SelectedVenues(t *testing.T) {
	venues, signals, preds := recomputeFixture()
	uc := NewRecomputeUseCase(venues, signals, preds, nil, nil, RecomputeConfig{}, WithClock(fixedClock))

	n, err := uc.RecomputePredictions(context.Background(), []string{"v2", "v3", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = preds.Get(context.Background(), "v1")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
}

func TestRecompute_IsolatesVenueFailures(t *testing.T) {
	venues, signals, preds := recomputeFixture()
	archive := &recordingArchive{}
	uc := NewRecomputeUseCase(venues, failingSignals{signals, "v1"}, preds, archive, nil, RecomputeConfig{Workers: 1}, WithClock(fixedClock))

	n, err := uc.RecomputePredictions(context.Background(), nil)
	require.ErrorIs(t, err, domservice.ErrVenueRecompute)
	assert.ErrorContains(t, err, "v1")
	assert.NotContains(t, err.Error(), "v2")
	assert.True(t, domservice.PartialFailure(context.Background(), err))
	assert.Equal(t, 1, n)

	_, err = preds.Get(context.Background(), "v1")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
	_, err = preds.Get(context.Background(), "v2")
	assert.NoError(t, err)
	require.Len(t, archive.preds, 1)
	assert.Equal(t, "v2", archive.preds[0].VenueID)
}

func TestRecompute_FanoutFailuresDoNotFailVenue(t *testing.T) {
	venues, signals, preds := recomputeFixture()
	archive := &recordingArchive{err: errors.New("clickhouse down")}
	pub := &recordingPublisher{err: errors.New("broker down")}
	uc := NewRecomputeUseCase(venues, signals, preds, archive, pub, RecomputeConfig{}, WithClock(fixedClock))

	n, err := uc.RecomputePredictions(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, pub.published(), 2)
}

func TestRecompute_CancelledContext(t *testing.T) {
	venues, signals, preds := recomputeFixture()
	uc := NewRecomputeUseCase(venues, signals, preds, nil, nil, RecomputeConfig{}, WithClock(fixedClock))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err := uc.RecomputePredictions(ctx, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, domservice.PartialFailure(ctx, err))
	assert.Equal(t, 0, n)
}

func TestBuildPrediction_Deterministic(t *testing.T) {
	v := cafe("v1", 0, 0)
	sigs := []models.Signal{checkinSignal("v1", models.CrowdLow, models.Wait0To10, 10*time.Minute)}

	a := BuildPrediction(v, sigs, testNow)
	b := BuildPrediction(v, sigs, testNow)
	assert.Equal(t, a, b)
	assert.Equal(t, models.CrowdLow, a.Now.CrowdLevel)
	assert.Equal(t, testNow.Truncate(time.Hour).Add(time.Hour), a.Forecast[0].Hour)
}

func TestRecompute_ReportsUpsertFailure(t *testing.T) {
	venues, signals, _ := recomputeFixture()
	uc := NewRecomputeUseCase(venues, signals, failingPredictions{repository.NewMemoryPredictionStore()}, nil, nil, RecomputeConfig{}, WithClock(fixedClock))

	n, err := uc.RecomputePredictions(context.Background(), []string{"v1"})
	require.ErrorIs(t, err, domservice.ErrVenueRecompute)
	assert.ErrorContains(t, err, "upsert prediction")
	assert.Equal(t, 0, n)
}
