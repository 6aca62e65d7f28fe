package models

import (
	"fmt"
	"strings"
)

// CrowdLevel is the reported or estimated busyness of a venue.
type CrowdLevel string

const (
	CrowdLow    CrowdLevel = "LOW"
	CrowdMedium CrowdLevel = "MEDIUM"
	CrowdHigh   CrowdLevel = "HIGH"
)

// Score maps the level onto its ordinal (1..3); 0 for an unknown level.
func (c CrowdLevel) Score() int {
	switch c {
	case CrowdLow:
		return 1
	case CrowdMedium:
		return 2
	case CrowdHigh:
		return 3
	}
	return 0
}

func (c CrowdLevel) Valid() bool { return c.Score() > 0 }

// API returns the lowercase wire form.
func (c CrowdLevel) API() string { return strings.ToLower(string(c)) }

// CrowdLevelFromScore clamps s to [1,3] and returns the matching level.
func CrowdLevelFromScore(s int) CrowdLevel {
	switch {
	case s <= 1:
		return CrowdLow
	case s == 2:
		return CrowdMedium
	default:
		return CrowdHigh
	}
}

// ParseCrowdLevel accepts either case.
func ParseCrowdLevel(s string) (CrowdLevel, error) {
	c := CrowdLevel(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("invalid crowd level %q", s)
	}
	return c, nil
}

// WaitBand is a bucketed wait time in minutes.
type WaitBand string

const (
	Wait0To10  WaitBand = "0-10"
	Wait10To20 WaitBand = "10-20"
	Wait20To40 WaitBand = "20-40"
	Wait40Plus WaitBand = "40+"
)

// Score maps the band onto its ordinal (1..4); 0 for an unknown band.
func (w WaitBand) Score() int {
	switch w {
	case Wait0To10:
		return 1
	case Wait10To20:
		return 2
	case Wait20To40:
		return 3
	case Wait40Plus:
		return 4
	}
	return 0
}

func (w WaitBand) Valid() bool { return w.Score() > 0 }

// RankScore is Score with unknown bands counted as "10-20".
func (w WaitBand) RankScore() int {
	if s := w.Score(); s > 0 {
		return s
	}
	return 2
}

// WaitBandFromScore clamps s to [1,4] and returns the matching band.
func WaitBandFromScore(s int) WaitBand {
	switch {
	case s <= 1:
		return Wait0To10
	case s == 2:
		return Wait10To20
	case s == 3:
		return Wait20To40
	default:
		return Wait40Plus
	}
}

func ParseWaitBand(s string) (WaitBand, error) {
	w := WaitBand(strings.TrimSpace(s))
	if !w.Valid() {
		return "", fmt.Errorf("invalid wait band %q", s)
	}
	return w, nil
}

// Confidence qualifies an estimate.
type Confidence string

const (
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)

// Rank orders confidence labels, HIGH highest.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	}
	return 0
}

func (c Confidence) API() string { return strings.ToLower(string(c)) }

// Category is the closed set of venue categories.
type Category uint8

const (
	CategoryUnknown Category = iota
	CategoryCafe
	CategoryRestaurant
)

// String returns the stored form (CAFE, RESTAURANT).
func (c Category) String() string {
	switch c {
	case CategoryCafe:
		return "CAFE"
	case CategoryRestaurant:
		return "RESTAURANT"
	}
	return "UNKNOWN"
}

func (c Category) API() string { return strings.ToLower(c.String()) }

func (c Category) Valid() bool { return c == CategoryCafe || c == CategoryRestaurant }

// ParseCategory accepts the stored or the API form.
func ParseCategory(s string) (Category, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CAFE":
		return CategoryCafe, nil
	case "RESTAURANT":
		return CategoryRestaurant, nil
	}
	return CategoryUnknown, fmt.Errorf("invalid category %q", s)
}

// SignalKind is the type of a user-originated signal.
type SignalKind string

const (
	SignalCheckin  SignalKind = "CHECKIN"
	SignalView     SignalKind = "VIEW"
	SignalSave     SignalKind = "SAVE"
	SignalNavigate SignalKind = "NAVIGATE"
)

func (k SignalKind) Valid() bool {
	switch k {
	case SignalCheckin, SignalView, SignalSave, SignalNavigate:
		return true
	}
	return false
}

func ParseSignalKind(s string) (SignalKind, error) {
	k := SignalKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("invalid signal type %q", s)
	}
	return k, nil
}

// ParkingEase describes how easy parking is near a venue.
type ParkingEase string

const (
	ParkingEasy   ParkingEase = "EASY"
	ParkingMedium ParkingEase = "MEDIUM"
	ParkingHard   ParkingEase = "HARD"
)

// Order is 1 for EASY up to 3 for HARD; 0 when unknown.
func (p ParkingEase) Order() int {
	switch p {
	case ParkingEasy:
		return 1
	case ParkingMedium:
		return 2
	case ParkingHard:
		return 3
	}
	return 0
}

func (p ParkingEase) API() string { return strings.ToLower(string(p)) }

func ParseParkingEase(s string) (ParkingEase, error) {
	p := ParkingEase(strings.ToUpper(strings.TrimSpace(s)))
	if p.Order() == 0 {
		return "", fmt.Errorf("invalid parking ease %q", s)
	}
	return p, nil
}
