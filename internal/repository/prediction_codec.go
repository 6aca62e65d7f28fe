package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"DemandLoop/internal/domain/models"
	domrepo "DemandLoop/internal/domain/repository"
)

// forecastRecord and windowRecord are the persisted JSON shapes of a prediction's
// forecast and best windows. Field names are part of the storage contract.
type forecastRecord struct {
	Hour       time.Time `json:"hour"`
	CrowdLevel string    `json:"crowd_level"`
	WaitBand   string    `json:"wait_band"`
}

type windowRecord struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"`
}

func encodeForecast(points []models.ForecastPoint) ([]byte, error) {
	recs := make([]forecastRecord, len(points))
	for i, p := range points {
		recs[i] = forecastRecord{Hour: p.Hour.UTC(), CrowdLevel: string(p.CrowdLevel), WaitBand: string(p.WaitBand)}
	}
	return json.Marshal(recs)
}

func decodeForecast(b []byte) ([]models.ForecastPoint, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var recs []forecastRecord
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("decode forecast: %w", err)
	}
	out := make([]models.ForecastPoint, len(recs))
	for i, r := range recs {
		crowd, err := models.ParseCrowdLevel(r.CrowdLevel)
		if err != nil {
			return nil, fmt.Errorf("decode forecast: %w: %v", domrepo.ErrInvalidInput, err)
		}
		wait, err := models.ParseWaitBand(r.WaitBand)
		if err != nil {
			return nil, fmt.Errorf("decode forecast: %w: %v", domrepo.ErrInvalidInput, err)
		}
		out[i] = models.ForecastPoint{Hour: r.Hour.UTC(), CrowdLevel: crowd, WaitBand: wait}
	}
	return out, nil
}

func encodeWindows(windows []models.BestWindow) ([]byte, error) {
	recs := make([]windowRecord, len(windows))
	for i, w := range windows {
		recs[i] = windowRecord{Start: w.Start.UTC(), End: w.End.UTC(), Label: w.Label}
	}
	return json.Marshal(recs)
}

func decodeWindows(b []byte) ([]models.BestWindow, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var recs []windowRecord
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("decode best windows: %w", err)
	}
	out := make([]models.BestWindow, len(recs))
	for i, r := range recs {
		out[i] = models.BestWindow{Start: r.Start.UTC(), End: r.End.UTC(), Label: r.Label}
	}
	return out, nil
}
