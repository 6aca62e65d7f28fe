package models

import "time"

// Signal is a single user-originated event about a venue.
// CrowdLevel and WaitBand are only meaningful on check-ins and are empty otherwise.
type Signal struct {
	ID         string
	VenueID    string
	Kind       SignalKind
	CrowdLevel CrowdLevel
	WaitBand   WaitBand
	Weight     float64
	UserHash   string
	CreatedAt  time.Time
}

// IsReport reports whether the signal is a check-in carrying both a crowd level and a wait band.
func (s Signal) IsReport() bool {
	return s.Kind == SignalCheckin && s.CrowdLevel.Valid() && s.WaitBand.Valid()
}
