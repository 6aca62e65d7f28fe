package models

// VenueDemand pairs a venue with its latest prediction. Known is false when
// the venue was never recomputed and Prediction holds the defaults.
type VenueDemand struct {
	Venue      Venue
	Prediction Prediction
	Known      bool
}

// BestTime is the first best window, if any.
func (d VenueDemand) BestTime() *BestWindow {
	if len(d.Prediction.BestWindows) == 0 {
		return nil
	}
	w := d.Prediction.BestWindows[0]
	return &w
}

// TrendingEntry is one ranked row of the trending list.
type TrendingEntry struct {
	Rank  int
	Score float64
	VenueDemand
}

// PlaceDetail is the full view of one venue.
type PlaceDetail struct {
	VenueDemand
	Forecast     []ForecastPoint // always ForecastHours long
	Alternatives []AlternativeCandidate
}
