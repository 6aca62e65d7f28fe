package demand

import (
	"sort"
	"time"

	"DemandLoop/internal/domain/models"
)

type windowCandidate struct {
	start, end time.Time
	score      float64
}

// ComputeBestWindows picks up to MaxBestWindows non-overlapping windows with the lowest wait.
// Candidates are every single hour and every adjacent pair of hours; equal scores keep
// generation order, so earlier single hours win ties.
func ComputeBestWindows(forecast []models.ForecastPoint) []models.BestWindow {
	candidates := make([]windowCandidate, 0, 2*len(forecast))
	for _, p := range forecast {
		candidates = append(candidates, windowCandidate{
			start: p.Hour,
			end:   p.Hour.Add(time.Hour),
			score: float64(p.WaitBand.Score()),
		})
	}
	for i := 0; i+1 < len(forecast); i++ {
		a, b := forecast[i], forecast[i+1]
		candidates = append(candidates, windowCandidate{
			start: a.Hour,
			end:   b.Hour.Add(time.Hour),
			score: float64(a.WaitBand.Score()+b.WaitBand.Score()) / 2,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score < candidates[j].score })

	selected := make([]models.BestWindow, 0, MaxBestWindows)
	for _, c := range candidates {
		if len(selected) == MaxBestWindows {
			break
		}
		w := models.BestWindow{Start: c.start, End: c.end, Label: BestTimeLabel}
		overlaps := false
		for _, s := range selected {
			if w.Overlaps(s) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			selected = append(selected, w)
		}
	}
	return selected
}
