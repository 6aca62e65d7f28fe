package demand

import (
	"math"
	"time"

	"DemandLoop/internal/domain/models"
)

// ComputeNowEstimate aggregates recent signals into the current crowd/wait estimate.
// Only check-ins carrying both a crowd level and a wait band contribute to the levels;
// LastSignalAt considers every signal.
func ComputeNowEstimate(signals []models.Signal, now time.Time) models.NowEstimate {
	var (
		reports     int
		totalWeight float64
		crowdSum    float64
		waitSum     float64
		last        *time.Time
	)
	for i := range signals {
		s := signals[i]
		if last == nil || s.CreatedAt.After(*last) {
			t := s.CreatedAt
			last = &t
		}
		if !s.IsReport() {
			continue
		}
		reports++
		w := s.Weight * decay(now.Sub(s.CreatedAt), DecayMinutes)
		totalWeight += w
		crowdSum += float64(s.CrowdLevel.Score()) * w
		waitSum += float64(s.WaitBand.Score()) * w
	}

	if reports == 0 || !(totalWeight > 0) {
		return models.ColdStartEstimate()
	}

	label, score := ScoreConfidence(reports, last, now)
	return models.NowEstimate{
		CrowdLevel:      models.CrowdLevelFromScore(int(math.Round(crowdSum / totalWeight))),
		WaitBand:        models.WaitBandFromScore(int(math.Round(waitSum / totalWeight))),
		Confidence:      label,
		ConfidenceScore: score,
		LastSignalAt:    last,
	}
}

// ScoreConfidence combines the check-in count with the recency of the latest signal.
// The label is chosen from the unrounded composite; the returned score is rounded to two decimals.
func ScoreConfidence(checkins int, lastSignalAt *time.Time, now time.Time) (models.Confidence, float64) {
	count := math.Min(1, float64(checkins)/ConfidenceSaturation)
	recency := 0.0
	if lastSignalAt != nil {
		recency = decay(now.Sub(*lastSignalAt), DecayMinutes)
	}
	raw := confCountWeight*count + confRecencyWeight*recency
	return ConfidenceLabel(raw), round(raw, 2)
}

// ConfidenceLabel maps a composite score onto HIGH, MEDIUM or LOW.
func ConfidenceLabel(score float64) models.Confidence {
	switch {
	case score >= HighConfidenceAt:
		return models.ConfidenceHigh
	case score >= MediumConfidenceAt:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// decay returns exp(-age/tau) with age measured in minutes.
func decay(age time.Duration, tauMinutes float64) float64 {
	return math.Exp(-age.Minutes() / tauMinutes)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
