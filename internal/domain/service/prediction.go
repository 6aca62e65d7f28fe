package service

import (
	"context"
	"errors"
)

// ErrVenueRecompute marks the failure of a single venue inside a recompute run.
var ErrVenueRecompute = errors.New("venue recompute failed")

// Recomputer refreshes persisted predictions for venues.
type Recomputer interface {
	// RecomputePredictions recomputes the given venues, or all active venues when ids is empty,
	// and returns how many were persisted successfully. Per-venue failures do not stop the run;
	// they are joined into the returned error and each matches ErrVenueRecompute.
	RecomputePredictions(ctx context.Context, venueIDs []string) (int, error)
}

// PartialFailure reports whether err carries only per-venue failures from a run
// that otherwise completed.
func PartialFailure(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() == nil && errors.Is(err, ErrVenueRecompute)
}
