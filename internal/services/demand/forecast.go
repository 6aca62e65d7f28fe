package demand

import (
	"math"
	"time"

	"DemandLoop/internal/domain/models"
)

// hourBand assigns a baseline crowd score to the inclusive local-hour range [from, to].
type hourBand struct {
	from, to int
	score    float64
}

type baselineKey struct {
	cafe    bool
	weekend bool
}

// baselines encode the diurnal crowd pattern per category and day type.
// Hours not covered by any band score 1.
var baselines = map[baselineKey][]hourBand{
	{cafe: true, weekend: true}: {
		{8, 10, 2}, {11, 14, 2.5}, {15, 17, 1.5}, {18, 21, 3}, {22, 23, 2}, {0, 1, 2},
	},
	{cafe: true, weekend: false}: {
		{7, 9, 2.5}, {10, 12, 2}, {13, 15, 1.5}, {16, 18, 2}, {19, 21, 2.5}, {22, 23, 1.5}, {0, 1, 1.5},
	},
	{cafe: false, weekend: true}: {
		{12, 14, 3}, {15, 17, 1.5}, {18, 22, 3}, {23, 23, 2}, {0, 1, 2}, {8, 11, 1.5},
	},
	{cafe: false, weekend: false}: {
		{12, 14, 2.5}, {15, 17, 1.5}, {18, 21, 2.5}, {22, 23, 1.5}, {0, 1, 1.5}, {7, 9, 1.5},
	},
}

// BaselineCrowd returns the continuous (1..3, half steps) crowd score for a local hour.
func BaselineCrowd(category models.Category, hour int, weekend bool) float64 {
	for _, b := range baselines[baselineKey{cafe: category == models.CategoryCafe, weekend: weekend}] {
		if hour >= b.from && hour <= b.to {
			return b.score
		}
	}
	return 1
}

// IsWeekend reports whether t falls on Friday or Saturday in local time.
func IsWeekend(t time.Time) bool {
	switch t.In(localZone).Weekday() {
	case time.Friday, time.Saturday:
		return true
	}
	return false
}

// ComputeForecast produces ForecastHours hourly points starting at the next top of the hour.
// The weekend flag is taken from now and applies to every point.
func ComputeForecast(category models.Category, current models.CrowdLevel, now time.Time) []models.ForecastPoint {
	local := now.In(localZone)
	weekend := IsWeekend(now)
	base := now.UTC().Truncate(time.Hour)

	points := make([]models.ForecastPoint, 0, ForecastHours)
	for i := 1; i <= ForecastHours; i++ {
		score := BaselineCrowd(category, (local.Hour()+i)%24, weekend)
		if current == models.CrowdHigh && i <= momentumHours {
			score = math.Min(3, score+momentumBoost)
		}
		crowd := models.CrowdLevelFromScore(int(math.Round(score)))
		points = append(points, models.ForecastPoint{
			Hour:       base.Add(time.Duration(i) * time.Hour),
			CrowdLevel: crowd,
			WaitBand:   WaitBandForCrowd(crowd),
		})
	}
	return points
}

// WaitBandForCrowd derives the forecast wait band from a crowd level.
// The forecaster never produces "40+".
func WaitBandForCrowd(c models.CrowdLevel) models.WaitBand {
	switch c {
	case models.CrowdLow:
		return models.Wait0To10
	case models.CrowdMedium:
		return models.Wait10To20
	default:
		return models.Wait20To40
	}
}
