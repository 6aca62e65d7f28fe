package repository

import (
	"context"
	"errors"
	"time"

	"DemandLoop/internal/domain/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when a record violates a storage invariant.
	ErrInvalidInput = errors.New("invalid input")
)

type VenueStore interface {
	Get(ctx context.Context, id string) (*models.Venue, error)
	// ListActive returns active venues; all of them when ids is empty.
	ListActive(ctx context.Context, ids []string) ([]models.Venue, error)
	List(ctx context.Context, f models.VenueFilter) ([]models.Venue, error)
	CountActive(ctx context.Context) (int, error)
	Upsert(ctx context.Context, v *models.Venue) error
}

type SignalStore interface {
	// FetchSignals returns the venue's signals created at or after since, in no particular order.
	FetchSignals(ctx context.Context, venueID string, since time.Time) ([]models.Signal, error)
	Insert(ctx context.Context, s *models.Signal) error
}

type PredictionStore interface {
	Upsert(ctx context.Context, p *models.Prediction) error
	Get(ctx context.Context, venueID string) (*models.Prediction, error)
	GetMany(ctx context.Context, venueIDs []string) (map[string]models.Prediction, error)
}

// PredictionArchive keeps the append-only history of generated predictions.
type PredictionArchive interface {
	AppendBatch(ctx context.Context, preds []models.Prediction) error
	History(ctx context.Context, venueID string, from, to time.Time, limit int) ([]models.Prediction, error)
	Close() error
}

// PredictionPublisher fans a freshly persisted prediction out to subscribers.
type PredictionPublisher interface {
	PublishPrediction(ctx context.Context, p *models.Prediction) error
}

// Pinger is implemented by backends that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Metrics interface {
	RecordRecompute(outcome string)
	RecordSignal(kind string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
