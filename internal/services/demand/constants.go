package demand

import "time"

const (
	// DecayMinutes is the e-folding time of a check-in's influence.
	DecayMinutes = 60.0

	// RecencyMinutes is the e-folding time of the trending recency bonus.
	RecencyMinutes = 45.0

	// ConfidenceSaturation is the check-in count at which the count component maxes out.
	ConfidenceSaturation = 10.0

	confCountWeight   = 0.6
	confRecencyWeight = 0.4

	// HighConfidenceAt and MediumConfidenceAt are the lower bounds for each label.
	HighConfidenceAt   = 0.75
	MediumConfidenceAt = 0.45

	// ForecastHours is the number of hourly points produced per forecast.
	ForecastHours = 6

	momentumHours = 2
	momentumBoost = 0.5

	// MaxBestWindows caps the number of recommended windows.
	MaxBestWindows = 2

	// BestTimeLabel labels every recommended window.
	BestTimeLabel = "Best time"

	trendCheckinWeight    = 0.55
	trendEngagementWeight = 0.25
	trendRecencyWeight    = 0.20

	viewWeight     = 0.7
	saveWeight     = 1.0
	navigateWeight = 1.2

	// DistanceNeutralKm is where the alternative distance bonus reaches zero.
	DistanceNeutralKm = 10.0

	familyMatchWeight = 0.1
)

// SignalWindow is how far back the recompute looks for signals.
const SignalWindow = 120 * time.Minute

// localZone is the fixed offset the baseline tables are expressed in (UTC+3, no DST).
var localZone = time.FixedZone("AST", 3*60*60)
