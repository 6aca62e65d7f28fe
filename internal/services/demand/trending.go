package demand

import (
	"time"

	"DemandLoop/internal/domain/models"
)

// ComputeTrendingScore scores current demand from decayed signal intensity per kind
// plus a bonus for very fresh activity.
func ComputeTrendingScore(signals []models.Signal, now time.Time) float64 {
	var (
		checkins, views, saves, navigates float64
		last                              time.Time
	)
	for _, s := range signals {
		d := decay(now.Sub(s.CreatedAt), DecayMinutes)
		switch s.Kind {
		case models.SignalCheckin:
			checkins += d
		case models.SignalView:
			views += d
		case models.SignalSave:
			saves += d
		case models.SignalNavigate:
			navigates += d
		}
		if s.CreatedAt.After(last) {
			last = s.CreatedAt
		}
	}

	engagement := viewWeight*views + saveWeight*saves + navigateWeight*navigates
	recency := 0.0
	if len(signals) > 0 {
		recency = decay(now.Sub(last), RecencyMinutes)
	}
	return trendCheckinWeight*checkins + trendEngagementWeight*engagement + trendRecencyWeight*recency
}
