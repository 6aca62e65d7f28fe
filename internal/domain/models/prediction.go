package models

import "time"

// NowEstimate is the current-state estimate for a venue.
type NowEstimate struct {
	CrowdLevel      CrowdLevel
	WaitBand        WaitBand
	Confidence      Confidence
	ConfidenceScore float64    // [0,1], two decimals
	LastSignalAt    *time.Time // nil when the venue has no signals in the window
}

// ColdStartEstimate is returned when no usable check-ins exist.
func ColdStartEstimate() NowEstimate {
	return NowEstimate{
		CrowdLevel: CrowdMedium,
		WaitBand:   Wait10To20,
		Confidence: ConfidenceLow,
	}
}

// ForecastPoint is the expected state for one future hour.
type ForecastPoint struct {
	Hour       time.Time // top of the hour
	CrowdLevel CrowdLevel
	WaitBand   WaitBand
}

// BestWindow is a recommended visiting interval, half-open [Start, End).
type BestWindow struct {
	Start time.Time
	End   time.Time
	Label string
}

// Overlaps reports whether the two half-open intervals intersect.
func (w BestWindow) Overlaps(o BestWindow) bool {
	return w.Start.Before(o.End) && w.End.After(o.Start)
}

// Prediction is the persisted per-venue output of a recompute.
type Prediction struct {
	VenueID     string
	Now         NowEstimate
	Forecast    []ForecastPoint
	BestWindows []BestWindow
	GeneratedAt time.Time
}

// DefaultPrediction is what callers see for a venue never recomputed.
func DefaultPrediction(venueID string) Prediction {
	return Prediction{VenueID: venueID, Now: ColdStartEstimate()}
}

// TrendingScore is a venue's current demand score.
type TrendingScore struct {
	VenueID string
	Score   float64
}

// AlternativeCandidate is a nearby same-category venue ranked as a substitute.
type AlternativeCandidate struct {
	Venue       Venue
	Now         NowEstimate
	GeneratedAt time.Time // zero when the venue has no stored prediction
	DistanceKm  float64
	Score       float64
}
