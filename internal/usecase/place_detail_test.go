package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DemandLoop/internal/domain/models"
	"DemandLoop/internal/repository"
	"DemandLoop/internal/services/demand"
)

func altIDs(cands []models.AlternativeCandidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Venue.ID
	}
	return out
}

func TestGetPlace_ExpandsAlternativeRadius(t *testing.T) {
	ref := cafe("ref", 24.70, 46.70)
	ref.KidsFriendly = true
	a1 := cafe("a1", 24.718, 46.70) // ~2.0 km
	a2 := cafe("a2", 24.745, 46.70) // ~5.0 km
	a3 := cafe("a3", 24.655, 46.70) // ~5.0 km, shares kids
	a3.KidsFriendly = true
	far := cafe("far", 24.79, 46.70) // ~10 km
	rest := cafe("rest", 24.701, 46.70)
	rest.Category = models.CategoryRestaurant
	closed := cafe("closed", 24.701, 46.70)
	closed.IsActive = false

	uc := NewPlaceDetailUseCase(
		repository.NewMemoryVenueStore(ref, a1, a2, a3, far, rest, closed),
		repository.NewMemoryPredictionStore(),
		WithClock(fixedClock),
	)

	got, err := uc.GetPlace(context.Background(), "ref")
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a3", "a2"}, altIDs(got.Alternatives))
	assert.Equal(t, 2.0, got.Alternatives[0].DistanceKm)
	assert.Equal(t, 5.0, got.Alternatives[1].DistanceKm)
	assert.InDelta(t, 3.6, got.Alternatives[1].Score, 0.01)
	assert.Equal(t, models.ColdStartEstimate(), got.Alternatives[0].Now)
}

func TestGetPlace_NoExpansionWhenEnoughNearby(t *testing.T) {
	venues := []models.Venue{
		cafe("ref", 24.70, 46.70),
		cafe("n1", 24.71, 46.70),
		cafe("n2", 24.69, 46.70),
		cafe("n3", 24.72, 46.70),
		cafe("mid", 24.745, 46.70),
	}
	uc := NewPlaceDetailUseCase(repository.NewMemoryVenueStore(venues...), repository.NewMemoryPredictionStore(), WithClock(fixedClock))

	got, err := uc.GetPlace(context.Background(), "ref")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"n1", "n2", "n3"}, altIDs(got.Alternatives))
}

func TestGetPlace_CapsAlternatives(t *testing.T) {
	venues := []models.Venue{cafe("ref", 24.70, 46.70)}
	for i := 1; i <= 8; i++ {
		venues = append(venues, cafe(fmt.Sprintf("n%d", i), 24.70+float64(i)*0.002, 46.70))
	}
	uc := NewPlaceDetailUseCase(repository.NewMemoryVenueStore(venues...), repository.NewMemoryPredictionStore(), WithClock(fixedClock))

	got, err := uc.GetPlace(context.Background(), "ref")
	require.NoError(t, err)
	require.Len(t, got.Alternatives, 6)
	assert.Equal(t, "n1", got.Alternatives[0].Venue.ID, "closest ranks first when all else is equal")
	for i := 1; i < len(got.Alternatives); i++ {
		assert.GreaterOrEqual(t, got.Alternatives[i-1].Score, got.Alternatives[i].Score)
	}
}

func TestGetPlace_UsesStoredPrediction(t *testing.T) {
	preds := repository.NewMemoryPredictionStore()
	stored := BuildPrediction(cafe("ref", 0, 0), []models.Signal{
		checkinSignal("ref", models.CrowdHigh, models.Wait40Plus, time.Minute),
	}, testNow)
	require.NoError(t, preds.Upsert(context.Background(), &stored))

	uc := NewPlaceDetailUseCase(repository.NewMemoryVenueStore(cafe("ref", 24.7, 46.7)), preds, WithClock(fixedClock))
	got, err := uc.GetPlace(context.Background(), "ref")
	require.NoError(t, err)
	assert.True(t, got.Known)
	assert.Equal(t, models.Wait40Plus, got.Prediction.Now.WaitBand)
	assert.Equal(t, stored.Forecast, got.Forecast)
	assert.Empty(t, got.Alternatives)
}

func TestGetPlace_NotFound(t *testing.T) {
	uc := NewPlaceDetailUseCase(repository.NewMemoryVenueStore(), repository.NewMemoryPredictionStore())
	_, err := uc.GetPlace(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrVenueNotFound)
}

func TestPadForecast(t *testing.T) {
	t.Run("empty starts next hour", func(t *testing.T) {
		got := PadForecast(nil, testNow)
		require.Len(t, got, demand.ForecastHours)
		for i, fp := range got {
			assert.Equal(t, time.Date(2025, 3, 4, 18+i, 0, 0, 0, time.UTC), fp.Hour)
			assert.Equal(t, models.CrowdMedium, fp.CrowdLevel)
			assert.Equal(t, models.Wait10To20, fp.WaitBand)
		}
	})

	t.Run("continues after last point", func(t *testing.T) {
		start := time.Date(2025, 3, 4, 18, 0, 0, 0, time.UTC)
		in := []models.ForecastPoint{
			{Hour: start, CrowdLevel: models.CrowdHigh, WaitBand: models.Wait20To40},
			{Hour: start.Add(time.Hour), CrowdLevel: models.CrowdLow, WaitBand: models.Wait0To10},
		}
		got := PadForecast(in, testNow)
		require.Len(t, got, demand.ForecastHours)
		assert.Equal(t, in, got[:2])
		assert.Equal(t, start.Add(2*time.Hour), got[2].Hour)
		assert.Equal(t, start.Add(5*time.Hour), got[5].Hour)
		assert.Equal(t, models.CrowdMedium, got[5].CrowdLevel)
	})

	t.Run("full forecast untouched", func(t *testing.T) {
		full := demand.ComputeForecast(models.CategoryCafe, models.CrowdLow, testNow)
		assert.Equal(t, full, PadForecast(full, testNow))
	})
}
