package api

import (
	"time"

	"DemandLoop/internal/domain/models"
	"DemandLoop/internal/usecase"
	"DemandLoop/pkg/util"
)

type placeListItem struct {
	models.PlaceDTO
	Demand   models.DemandDTO      `json:"demand"`
	BestTime *models.BestWindowDTO `json:"bestTime"`
}

type placesResponse struct {
	Places []placeListItem `json:"places"`
}

type placeSummary struct {
	ID       string `json:"id"`
	NameAr   string `json:"nameAr"`
	NameEn   string `json:"nameEn"`
	Category string `json:"category"`
	District string `json:"district"`
}

type trendingItem struct {
	Rank     int                   `json:"rank"`
	Score    float64               `json:"score"`
	Place    placeSummary          `json:"place"`
	Demand   models.DemandDTO      `json:"demand"`
	BestTime *models.BestWindowDTO `json:"bestTime"`
}

type trendingResponse struct {
	GeneratedAt string         `json:"generatedAt"`
	Items       []trendingItem `json:"items"`
}

type alternativeItem struct {
	placeSummary
	Demand     models.DemandDTO `json:"demand"`
	DistanceKm float64          `json:"distanceKm"`
}

type placeDetailResponse struct {
	Place           models.PlaceDTO           `json:"place"`
	Now             models.DemandDTO          `json:"now"`
	Forecast        []models.ForecastPointDTO `json:"forecastNext6Hours"`
	BestTimeWindows []models.BestWindowDTO    `json:"bestTimeWindows"`
	Alternatives    []alternativeItem         `json:"alternatives"`
}

type checkinResponse struct {
	PlaceID string           `json:"placeId"`
	Now     models.DemandDTO `json:"now"`
}

type historyItem struct {
	GeneratedAt string                    `json:"generatedAt"`
	Now         models.DemandDTO          `json:"now"`
	Forecast    []models.ForecastPointDTO `json:"forecast"`
	BestWindows []models.BestWindowDTO    `json:"bestWindows"`
}

type historyResponse struct {
	PlaceID string        `json:"placeId"`
	From    string        `json:"from"`
	To      string        `json:"to"`
	Items   []historyItem `json:"items"`
}

type healthResponse struct {
	OK          bool `json:"ok"`
	DB          bool `json:"db"`
	PlacesCount int  `json:"placesCount"`
}

type recomputeResponse struct {
	Recomputed int `json:"recomputed"`
}

func newSummary(v models.Venue) placeSummary {
	return placeSummary{ID: v.ID, NameAr: v.NameAr, NameEn: v.NameEn, Category: v.Category.API(), District: v.District}
}

// bestTime drops the label, matching the list views.
func bestTime(d models.VenueDemand) *models.BestWindowDTO {
	w := d.BestTime()
	if w == nil {
		return nil
	}
	dto := models.NewBestWindowDTO(*w)
	dto.Label = ""
	return &dto
}

func newPlaceListItem(d models.VenueDemand, now time.Time) placeListItem {
	return placeListItem{
		PlaceDTO: models.NewPlaceDTO(d.Venue),
		Demand:   models.NewDemandDTO(d.Prediction, d.Known, now),
		BestTime: bestTime(d),
	}
}

func newTrendingResponse(res *usecase.TrendingResult, now time.Time) trendingResponse {
	items := make([]trendingItem, len(res.Items))
	for i, e := range res.Items {
		items[i] = trendingItem{
			Rank:     e.Rank,
			Score:    util.Round(e.Score, 4),
			Place:    newSummary(e.Venue),
			Demand:   models.NewDemandDTO(e.Prediction, e.Known, now),
			BestTime: bestTime(e.VenueDemand),
		}
	}
	return trendingResponse{GeneratedAt: util.FormatInstant(res.GeneratedAt), Items: items}
}

func newPlaceDetailResponse(d *models.PlaceDetail, now time.Time) placeDetailResponse {
	alts := make([]alternativeItem, len(d.Alternatives))
	for i, a := range d.Alternatives {
		pred := models.Prediction{VenueID: a.Venue.ID, Now: a.Now, GeneratedAt: a.GeneratedAt}
		alts[i] = alternativeItem{
			placeSummary: newSummary(a.Venue),
			Demand:       models.NewDemandDTO(pred, !a.GeneratedAt.IsZero(), now),
			DistanceKm:   a.DistanceKm,
		}
	}
	return placeDetailResponse{
		Place:           models.NewPlaceDTO(d.Venue),
		Now:             models.NewDemandDTO(d.Prediction, d.Known, now),
		Forecast:        models.NewForecastDTOs(d.Forecast),
		BestTimeWindows: models.NewBestWindowDTOs(d.Prediction.BestWindows),
		Alternatives:    alts,
	}
}
