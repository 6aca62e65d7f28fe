package demand

import (
	"math"

	"DemandLoop/internal/domain/models"
)

// AlternativeScore ranks a substitute venue; higher is better.
// An unknown wait band counts as "10-20".
func AlternativeScore(wait models.WaitBand, confidenceScore, distanceKm float64, familyMatches int) float64 {
	waitComponent := float64(5 - wait.RankScore())
	distanceComponent := math.Max(0, 1-distanceKm/DistanceNeutralKm)
	return waitComponent + confidenceScore + distanceComponent + float64(familyMatches)*familyMatchWeight
}
