package models

// Requests for the public HTTP endpoints. Defined in domain for consistency and reuse.

type PlacesRequest struct {
	Category       string  `query:"category" json:"category" validate:"omitempty,oneof=cafe restaurant"`
	District       string  `query:"district" json:"district" validate:"max=100"`
	Kids           bool    `query:"kids" json:"kids"`
	Stroller       bool    `query:"stroller" json:"stroller"`
	PrayerRoom     bool    `query:"prayerRoom" json:"prayerRoom"`
	ParkingEaseMin string  `query:"parkingEaseMin" json:"parkingEaseMin" validate:"omitempty,oneof=easy medium hard"`
	Lat            string  `query:"lat" json:"lat" validate:"omitempty,latitude"`
	Lng            string  `query:"lng" json:"lng" validate:"omitempty,longitude"`
	RadiusKm       float64 `query:"radiusKm" json:"radiusKm" default:"6" validate:"gt=0,lte=50"`
	Limit          int     `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=200"`
	Offset         int     `query:"offset" json:"offset" validate:"gte=0"`
}

type TrendingRequest struct {
	Category       string `query:"category" json:"category" validate:"omitempty,oneof=cafe restaurant"`
	District       string `query:"district" json:"district" validate:"max=100"`
	Kids           bool   `query:"kids" json:"kids"`
	Stroller       bool   `query:"stroller" json:"stroller"`
	PrayerRoom     bool   `query:"prayerRoom" json:"prayerRoom"`
	ParkingEaseMin string `query:"parkingEaseMin" json:"parkingEaseMin" validate:"omitempty,oneof=easy medium hard"`
	TimeWindowMin  int    `query:"timeWindowMin" json:"timeWindowMin" default:"120" validate:"gte=1,lte=1440"`
	Limit          int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=200"`
	Offset         int    `query:"offset" json:"offset" validate:"gte=0"`
}

type PlaceRequest struct {
	ID string `param:"id" json:"id" validate:"required,max=64"`
}

type CheckinRequest struct {
	PlaceID    string `json:"placeId" validate:"required,max=64"`
	CrowdLevel string `json:"crowdLevel" validate:"required,oneof=low medium high"`
	WaitBand   string `json:"waitBand" validate:"required,oneof=0-10 10-20 20-40 40+"`
}

type RecomputeRequest struct {
	PlaceIDs []string `json:"placeIds" validate:"omitempty,max=500,dive,required,max=64"`
}

type HistoryRequest struct {
	ID    string `param:"id" json:"id" validate:"required,max=64"`
	From  string `query:"from" json:"from"`
	To    string `query:"to" json:"to"`
	Limit int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}
