package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"DemandLoop/internal/domain/models"
	"DemandLoop/internal/repository"
)

var testNow = time.Date(2025, 3, 4, 17, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func cafe(id string, lat, lng float64) models.Venue {
	return models.Venue{
		ID:          id,
		NameAr:      "مقهى " + id,
		NameEn:      "Cafe " + id,
		Category:    models.CategoryCafe,
		District:    "Olaya",
		Lat:         lat,
		Lng:         lng,
		ParkingEase: models.ParkingMedium,
		IsActive:    true,
	}
}

func checkinSignal(venueID string, crowd models.CrowdLevel, wait models.WaitBand, age time.Duration) models.Signal {
	return models.Signal{
		ID:         venueID + "-" + age.String(),
		VenueID:    venueID,
		Kind:       models.SignalCheckin,
		CrowdLevel: crowd,
		WaitBand:   wait,
		Weight:     1,
		CreatedAt:  testNow.Add(-age),
	}
}

func engagement(venueID string, kind models.SignalKind, age time.Duration) models.Signal {
	return models.Signal{ID: venueID + "-" + string(kind) + age.String(), VenueID: venueID, Kind: kind, Weight: 1, CreatedAt: testNow.Add(-age)}
}

func seedSignals(signals ...models.Signal) *repository.MemorySignalStore {
	st := repository.NewMemorySignalStore()
	for i := range signals {
		_ = st.Insert(context.Background(), &signals[i])
	}
	return st
}

// failingSignals fails FetchSignals for one venue.
type failingSignals struct {
	*repository.MemorySignalStore
	venueID string
}

func (f failingSignals) FetchSignals(ctx context.Context, venueID string, since time.Time) ([]models.Signal, error) {
	if venueID == f.venueID {
		return nil, errors.New("connection reset")
	}
	return f.MemorySignalStore.FetchSignals(ctx, venueID, since)
}

// failingPredictions rejects every write.
type failingPredictions struct {
	*repository.MemoryPredictionStore
}

func (failingPredictions) Upsert(context.Context, *models.Prediction) error {
	return errors.New("disk full")
}

type recordingArchive struct {
	mu    sync.Mutex
	preds []models.Prediction
	err   error
}

func (a *recordingArchive) AppendBatch(_ context.Context, preds []models.Prediction) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.preds = append(a.preds, preds...)
	return a.err
}

func (a *recordingArchive) History(_ context.Context, venueID string, from, to time.Time, limit int) ([]models.Prediction, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []models.Prediction
	for i := len(a.preds) - 1; i >= 0 && len(out) < limit; i-- {
		p := a.preds[i]
		if p.VenueID == venueID && !p.GeneratedAt.Before(from) && !p.GeneratedAt.After(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (a *recordingArchive) Close() error { return nil }

type recordingPublisher struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (p *recordingPublisher) PublishPrediction(_ context.Context, pred *models.Prediction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, pred.VenueID)
	return p.err
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.ids...)
}
