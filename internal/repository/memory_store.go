package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"DemandLoop/internal/domain/models"
	domrepo "DemandLoop/internal/domain/repository"
)

// MemoryVenueStore keeps venues in process memory.
type MemoryVenueStore struct {
	mu     sync.RWMutex
	venues map[string]models.Venue
}

func NewMemoryVenueStore(venues ...models.Venue) *MemoryVenueStore {
	s := &MemoryVenueStore{venues: make(map[string]models.Venue, len(venues))}
	for _, v := range venues {
		s.venues[v.ID] = v
	}
	return s
}

var _ domrepo.VenueStore = (*MemoryVenueStore)(nil)

func (s *MemoryVenueStore) Get(_ context.Context, id string) (*models.Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.venues[id]
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	return &v, nil
}

func (s *MemoryVenueStore) ListActive(ctx context.Context, ids []string) ([]models.Venue, error) {
	return s.List(ctx, models.VenueFilter{IDs: ids})
}

func (s *MemoryVenueStore) List(_ context.Context, f models.VenueFilter) ([]models.Venue, error) {
	var allowed map[string]bool
	if len(f.IDs) > 0 {
		allowed = make(map[string]bool, len(f.IDs))
		for _, id := range f.IDs {
			allowed[id] = true
		}
	}

	s.mu.RLock()
	out := make([]models.Venue, 0, len(s.venues))
	for _, v := range s.venues {
		if allowed != nil && !allowed[v.ID] {
			continue
		}
		if matchVenue(v, f) {
			out = append(out, v)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryVenueStore) CountActive(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, v := range s.venues {
		if v.IsActive {
			n++
		}
	}
	return n, nil
}

func (s *MemoryVenueStore) Upsert(_ context.Context, v *models.Venue) error {
	if v == nil || v.ID == "" || !v.Category.Valid() {
		return fmt.Errorf("upsert venue: %w", domrepo.ErrInvalidInput)
	}
	s.mu.Lock()
	s.venues[v.ID] = *v
	s.mu.Unlock()
	return nil
}

func matchVenue(v models.Venue, f models.VenueFilter) bool {
	switch {
	case !v.IsActive:
		return false
	case f.ExcludeID != "" && v.ID == f.ExcludeID:
		return false
	case f.Category.Valid() && v.Category != f.Category:
		return false
	case f.District != "" && v.District != f.District:
		return false
	case f.Kids && !v.KidsFriendly, f.Stroller && !v.StrollerFriendly, f.PrayerRoom && !v.PrayerRoom:
		return false
	case f.MaxParkingEase != "" && (v.ParkingEase.Order() == 0 || v.ParkingEase.Order() > f.MaxParkingEase.Order()):
		return false
	}
	if b := f.Bounds; b != nil {
		if v.Lat < b.MinLat || v.Lat > b.MaxLat || v.Lng < b.MinLng || v.Lng > b.MaxLng {
			return false
		}
	}
	return true
}

// MemorySignalStore keeps signals per venue in process memory.
type MemorySignalStore struct {
	mu      sync.RWMutex
	byVenue map[string][]models.Signal
}

func NewMemorySignalStore() *MemorySignalStore {
	return &MemorySignalStore{byVenue: make(map[string][]models.Signal)}
}

var _ domrepo.SignalStore = (*MemorySignalStore)(nil)

func (s *MemorySignalStore) FetchSignals(_ context.Context, venueID string, since time.Time) ([]models.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Signal
	for _, sig := range s.byVenue[venueID] {
		if !sig.CreatedAt.Before(since) {
			out = append(out, sig)
		}
	}
	return out, nil
}

func (s *MemorySignalStore) Insert(_ context.Context, sig *models.Signal) error {
	if sig == nil || sig.VenueID == "" || !sig.Kind.Valid() {
		return fmt.Errorf("insert signal: %w", domrepo.ErrInvalidInput)
	}
	s.mu.Lock()
	s.byVenue[sig.VenueID] = append(s.byVenue[sig.VenueID], *sig)
	s.mu.Unlock()
	return nil
}

// MemoryPredictionStore keeps the latest prediction per venue in process memory.
type MemoryPredictionStore struct {
	mu    sync.RWMutex
	preds map[string]models.Prediction
}

func NewMemoryPredictionStore() *MemoryPredictionStore {
	return &MemoryPredictionStore{preds: make(map[string]models.Prediction)}
}

var _ domrepo.PredictionStore = (*MemoryPredictionStore)(nil)

func (s *MemoryPredictionStore) Upsert(_ context.Context, p *models.Prediction) error {
	if p == nil || p.VenueID == "" {
		return fmt.Errorf("upsert prediction: %w", domrepo.ErrInvalidInput)
	}
	cp := *p
	cp.Forecast = append([]models.ForecastPoint(nil), p.Forecast...)
	cp.BestWindows = append([]models.BestWindow(nil), p.BestWindows...)
	s.mu.Lock()
	s.preds[p.VenueID] = cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryPredictionStore) Get(_ context.Context, venueID string) (*models.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.preds[venueID]
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	return &p, nil
}

func (s *MemoryPredictionStore) GetMany(_ context.Context, venueIDs []string) (map[string]models.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.Prediction, len(venueIDs))
	for _, id := range venueIDs {
		if p, ok := s.preds[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}
