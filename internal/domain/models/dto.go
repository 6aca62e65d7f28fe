package models

import (
	"encoding/json"
	"time"

	"DemandLoop/pkg/util"
)

// JSON shapes shared by the HTTP API, Kafka events and the live feed.

type DemandDTO struct {
	CrowdLevel      string  `json:"crowdLevel"`
	WaitBand        string  `json:"waitBand"`
	Confidence      string  `json:"confidence"`
	ConfidenceScore float64 `json:"confidenceScore"`
	LastSignalAt    *string `json:"lastSignalAt,omitempty"`
	LastUpdated     string  `json:"lastUpdated"`
}

// NewDemandDTO renders a now-estimate. lastUpdated falls back to now for unknown predictions.
func NewDemandDTO(p Prediction, known bool, now time.Time) DemandDTO {
	updated := now
	if known && !p.GeneratedAt.IsZero() {
		updated = p.GeneratedAt
	}
	d := DemandDTO{
		CrowdLevel:      p.Now.CrowdLevel.API(),
		WaitBand:        string(p.Now.WaitBand),
		Confidence:      p.Now.Confidence.API(),
		ConfidenceScore: p.Now.ConfidenceScore,
		LastUpdated:     util.FormatInstant(updated),
	}
	if p.Now.LastSignalAt != nil {
		s := util.FormatInstant(*p.Now.LastSignalAt)
		d.LastSignalAt = &s
	}
	return d
}

type ForecastPointDTO struct {
	Hour       string `json:"hour"`
	CrowdLevel string `json:"crowdLevel"`
	WaitBand   string `json:"waitBand"`
}

func NewForecastDTOs(points []ForecastPoint) []ForecastPointDTO {
	out := make([]ForecastPointDTO, len(points))
	for i, p := range points {
		out[i] = ForecastPointDTO{
			Hour:       util.FormatInstant(p.Hour),
			CrowdLevel: p.CrowdLevel.API(),
			WaitBand:   string(p.WaitBand),
		}
	}
	return out
}

type BestWindowDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label,omitempty"`
}

func NewBestWindowDTO(w BestWindow) BestWindowDTO {
	return BestWindowDTO{Start: util.FormatInstant(w.Start), End: util.FormatInstant(w.End), Label: w.Label}
}

func NewBestWindowDTOs(windows []BestWindow) []BestWindowDTO {
	out := make([]BestWindowDTO, len(windows))
	for i, w := range windows {
		out[i] = NewBestWindowDTO(w)
	}
	return out
}

type FamilyDTO struct {
	Kids        bool   `json:"kids"`
	Stroller    bool   `json:"stroller"`
	PrayerRoom  bool   `json:"prayerRoom"`
	ParkingEase string `json:"parkingEase"`
}

type PlaceDTO struct {
	ID       string          `json:"id"`
	NameAr   string          `json:"nameAr"`
	NameEn   string          `json:"nameEn"`
	Category string          `json:"category"`
	District string          `json:"district"`
	Lat      float64         `json:"lat"`
	Lng      float64         `json:"lng"`
	Family   FamilyDTO       `json:"family"`
	Hours    json.RawMessage `json:"hours,omitempty"`
}

func NewPlaceDTO(v Venue) PlaceDTO {
	d := PlaceDTO{
		ID:       v.ID,
		NameAr:   v.NameAr,
		NameEn:   v.NameEn,
		Category: v.Category.API(),
		District: v.District,
		Lat:      v.Lat,
		Lng:      v.Lng,
		Family: FamilyDTO{
			Kids:        v.KidsFriendly,
			Stroller:    v.StrollerFriendly,
			PrayerRoom:  v.PrayerRoom,
			ParkingEase: v.ParkingEase.API(),
		},
	}
	if json.Valid(v.Hours) {
		d.Hours = json.RawMessage(v.Hours)
	}
	return d
}

// EventPredictionUpdated is the type tag of prediction events.
const EventPredictionUpdated = "prediction.updated"

// PredictionEvent is published after a prediction is persisted.
type PredictionEvent struct {
	Type        string             `json:"type"`
	PlaceID     string             `json:"placeId"`
	Now         DemandDTO          `json:"now"`
	Forecast    []ForecastPointDTO `json:"forecast"`
	BestWindows []BestWindowDTO    `json:"bestWindows"`
	GeneratedAt string             `json:"generatedAt"`
}

func NewPredictionEvent(p Prediction) PredictionEvent {
	return PredictionEvent{
		Type:        EventPredictionUpdated,
		PlaceID:     p.VenueID,
		Now:         NewDemandDTO(p, true, p.GeneratedAt),
		Forecast:    NewForecastDTOs(p.Forecast),
		BestWindows: NewBestWindowDTOs(p.BestWindows),
		GeneratedAt: util.FormatInstant(p.GeneratedAt),
	}
}

// SignalEvent is the inbound wire form of an engagement or check-in signal.
type SignalEvent struct {
	PlaceID    string   `json:"placeId"`
	Type       string   `json:"type"`
	CrowdLevel string   `json:"crowdLevel,omitempty"`
	WaitBand   string   `json:"waitBand,omitempty"`
	Weight     *float64 `json:"weight,omitempty"`
	UserHash   string   `json:"userHash,omitempty"`
	CreatedAt  string   `json:"createdAt,omitempty"`
}
