package models

// Venue is a cafe or restaurant that predictions are produced for.
type Venue struct {
	ID               string
	NameAr           string
	NameEn           string
	Category         Category
	District         string
	Lat              float64
	Lng              float64
	KidsFriendly     bool
	StrollerFriendly bool
	PrayerRoom       bool
	ParkingEase      ParkingEase
	Hours            []byte // raw hours document, passed through untouched
	IsActive         bool
}

// FamilyMatches counts the family attributes that both venues offer.
func (v Venue) FamilyMatches(o Venue) int {
	n := 0
	if v.KidsFriendly && o.KidsFriendly {
		n++
	}
	if v.StrollerFriendly && o.StrollerFriendly {
		n++
	}
	if v.PrayerRoom && o.PrayerRoom {
		n++
	}
	return n
}

// VenueFilter narrows venue listings. Zero values mean "no constraint".
type VenueFilter struct {
	IDs            []string
	Category       Category
	District       string
	Kids           bool
	Stroller       bool
	PrayerRoom     bool
	MaxParkingEase ParkingEase
	Bounds         *BoundingBox
	ExcludeID      string
}

// BoundingBox is a lat/lng rectangle used as a cheap geo prefilter.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}
