package demand

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DemandLoop/internal/domain/models"
)

var testNow = time.Date(2025, 3, 4, 17, 30, 0, 0, time.UTC) // Tuesday 20:30 local

func checkin(crowd models.CrowdLevel, wait models.WaitBand, age time.Duration) models.Signal {
	return models.Signal{
		VenueID:    "v1",
		Kind:       models.SignalCheckin,
		CrowdLevel: crowd,
		WaitBand:   wait,
		Weight:     1,
		CreatedAt:  testNow.Add(-age),
	}
}

func TestComputeNowEstimate_ColdStart(t *testing.T) {
	for name, signals := range map[string][]models.Signal{
		"nil":   nil,
		"empty": {},
	} {
		t.Run(name, func(t *testing.T) {
			got := ComputeNowEstimate(signals, testNow)
			assert.Equal(t, models.NowEstimate{
				CrowdLevel: models.CrowdMedium,
				WaitBand:   models.Wait10To20,
				Confidence: models.ConfidenceLow,
			}, got)
			assert.Nil(t, got.LastSignalAt)
		})
	}
}

func TestComputeNowEstimate_SingleFreshCheckin(t *testing.T) {
	got := ComputeNowEstimate([]models.Signal{checkin(models.CrowdHigh, models.Wait20To40, 5*time.Minute)}, testNow)

	assert.Equal(t, models.CrowdHigh, got.CrowdLevel)
	assert.Equal(t, models.Wait20To40, got.WaitBand)
	assert.Equal(t, models.ConfidenceLow, got.Confidence)
	assert.InDelta(t, 0.43, got.ConfidenceScore, 1e-9)
	require.NotNil(t, got.LastSignalAt)
	assert.True(t, got.LastSignalAt.Equal(testNow.Add(-5*time.Minute)))
}

func TestComputeNowEstimate_WeightsByRecency(t *testing.T) {
	signals := []models.Signal{
		checkin(models.CrowdLow, models.Wait0To10, 0),
		checkin(models.CrowdHigh, models.Wait40Plus, 110*time.Minute),
	}
	got := ComputeNowEstimate(signals, testNow)

	// fresh LOW dominates: (1*1 + 3*e^-110/60) / (1 + e^-110/60) ~ 1.28
	assert.Equal(t, models.CrowdLow, got.CrowdLevel)
	assert.Equal(t, models.Wait0To10, got.WaitBand)
}

func TestComputeNowEstimate_SkipsIncompleteCheckins(t *testing.T) {
	broken := checkin(models.CrowdHigh, "", time.Minute)
	view := models.Signal{VenueID: "v1", Kind: models.SignalView, Weight: 1, CreatedAt: testNow.Add(-time.Minute)}

	got := ComputeNowEstimate([]models.Signal{broken, view}, testNow)

	assert.Equal(t, models.ColdStartEstimate(), got)
}

func TestComputeNowEstimate_LastSignalSpansAllKinds(t *testing.T) {
	view := models.Signal{VenueID: "v1", Kind: models.SignalView, Weight: 1, CreatedAt: testNow.Add(-2 * time.Minute)}
	got := ComputeNowEstimate([]models.Signal{checkin(models.CrowdMedium, models.Wait10To20, 30*time.Minute), view}, testNow)

	require.NotNil(t, got.LastSignalAt)
	assert.True(t, got.LastSignalAt.Equal(view.CreatedAt))
}

func TestComputeNowEstimate_ZeroWeightFallsBack(t *testing.T) {
	s := checkin(models.CrowdHigh, models.Wait20To40, time.Minute)
	s.Weight = 0

	got := ComputeNowEstimate([]models.Signal{s, s}, testNow)

	assert.Equal(t, models.ColdStartEstimate(), got)
}

func TestComputeNowEstimate_ManyFreshCheckinsAreHighConfidence(t *testing.T) {
	signals := make([]models.Signal, 0, 12)
	for i := 0; i < 12; i++ {
		signals = append(signals, checkin(models.CrowdMedium, models.Wait10To20, time.Duration(i)*time.Minute))
	}
	got := ComputeNowEstimate(signals, testNow)

	assert.Equal(t, models.ConfidenceHigh, got.Confidence)
	assert.InDelta(t, 1.0, got.ConfidenceScore, 1e-9)
}

func TestConfidenceLabel_Boundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  models.Confidence
	}{
		{0.74, models.ConfidenceMedium},
		{0.75, models.ConfidenceHigh},
		{0.45, models.ConfidenceMedium},
		{0.44, models.ConfidenceLow},
		{0, models.ConfidenceLow},
		{1, models.ConfidenceHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ConfidenceLabel(tt.score), "score %v", tt.score)
	}
}

func TestScoreConfidence_Range(t *testing.T) {
	last := testNow
	for _, n := range []int{0, 1, 5, 10, 50} {
		for _, age := range []time.Duration{0, time.Minute, time.Hour, 24 * time.Hour} {
			l := last.Add(-age)
			_, score := ScoreConfidence(n, &l, testNow)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
	}

	label, score := ScoreConfidence(3, nil, testNow)
	assert.Equal(t, models.ConfidenceLow, label)
	assert.InDelta(t, 0.18, score, 1e-9)
}

func TestScoreConfidence_RoundsToTwoDecimals(t *testing.T) {
	l := testNow.Add(-7 * time.Minute)
	_, score := ScoreConfidence(4, &l, testNow)

	assert.Equal(t, score, math.Round(score*100)/100)
}
