package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DemandLoop/internal/domain/models"
	"DemandLoop/internal/repository"
)

func trendingFixture(t *testing.T) *TrendingUseCase {
	t.Helper()
	venues := repository.NewMemoryVenueStore(
		cafe("a", 24.70, 46.70),
		cafe("b", 24.70, 46.70),
		cafe("c", 24.70, 46.70),
		cafe("d", 24.70, 46.70),
		cafe("e", 24.70, 46.70),
	)
	signals := seedSignals(
		checkinSignal("a", models.CrowdHigh, models.Wait20To40, 5*time.Minute),
		checkinSignal("a", models.CrowdHigh, models.Wait20To40, 10*time.Minute),
		engagement("b", models.SignalView, 0),
		checkinSignal("c", models.CrowdHigh, models.Wait40Plus, 3*time.Hour),
	)
	preds := repository.NewMemoryPredictionStore()
	for _, p := range []models.Prediction{
		{VenueID: "c", Now: models.NowEstimate{CrowdLevel: models.CrowdHigh, WaitBand: models.Wait20To40, Confidence: models.ConfidenceHigh}},
		{VenueID: "d", Now: models.NowEstimate{CrowdLevel: models.CrowdLow, WaitBand: models.Wait0To10, Confidence: models.ConfidenceHigh}},
	} {
		require.NoError(t, preds.Upsert(context.Background(), &p))
	}
	return NewTrendingUseCase(venues, signals, preds, 2, WithClock(fixedClock))
}

func entryIDs(entries []models.TrendingEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Venue.ID
	}
	return out
}

func TestTrending_RanksDeterministically(t *testing.T) {
	uc := trendingFixture(t)

	res, err := uc.Trending(context.Background(), TrendingParams{})
	require.NoError(t, err)
	assert.Equal(t, testNow, res.GeneratedAt)
	assert.Equal(t, []string{"a", "b", "d", "c", "e"}, entryIDs(res.Items))
	assert.InDelta(t, 0.375, res.Items[1].Score, 1e-9)
	assert.Zero(t, res.Items[3].Score, "signals outside the window are ignored")
	for i, e := range res.Items {
		assert.Equal(t, i+1, e.Rank)
	}
}

func TestTrending_PagingKeepsAbsoluteRank(t *testing.T) {
	uc := trendingFixture(t)

	res, err := uc.Trending(context.Background(), TrendingParams{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "b", res.Items[0].Venue.ID)
	assert.Equal(t, 2, res.Items[0].Rank)
	assert.Equal(t, "d", res.Items[1].Venue.ID)
	assert.Equal(t, 3, res.Items[1].Rank)
}

func TestTrending_WiderWindow(t *testing.T) {
	uc := trendingFixture(t)

	res, err := uc.Trending(context.Background(), TrendingParams{Window: 4 * time.Hour})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, entryIDs(res.Items))
}

func TestRankTrending_TieBreaks(t *testing.T) {
	entry := func(id string, score float64, conf models.Confidence, wait models.WaitBand) models.TrendingEntry {
		return models.TrendingEntry{Score: score, VenueDemand: models.VenueDemand{
			Venue:      models.Venue{ID: id},
			Prediction: models.Prediction{VenueID: id, Now: models.NowEstimate{Confidence: conf, WaitBand: wait}},
		}}
	}
	entries := []models.TrendingEntry{
		entry("z", 1, models.ConfidenceLow, models.Wait10To20),
		entry("y", 1, models.ConfidenceLow, models.Wait10To20),
		entry("x", 1, models.ConfidenceLow, models.Wait0To10),
		entry("w", 1, models.ConfidenceHigh, models.Wait40Plus),
		entry("v", 2, models.ConfidenceLow, models.Wait40Plus),
		entry("u", 1, models.ConfidenceLow, ""),
	}
	RankTrending(entries)
	assert.Equal(t, []string{"v", "w", "x", "u", "y", "z"}, entryIDs(entries))
}
