package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps hits in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	hits map[string][]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{hits: make(map[string][]time.Time)}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Get(_ context.Context, key string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := prune(s.hits[key], since)
	if len(kept) == 0 {
		delete(s.hits, key)
	} else {
		s.hits[key] = kept
	}
	return len(kept), nil
}

func (s *MemoryStore) Increment(_ context.Context, key string, at time.Time, _ time.Duration) error {
	s.mu.Lock()
	s.hits[key] = append(s.hits[key], at)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) EvictExpired(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, ts := range s.hits {
		kept := prune(ts, cutoff)
		if len(kept) == 0 {
			delete(s.hits, k)
			removed++
			continue
		}
		s.hits[k] = kept
	}
	return removed, nil
}

// Len is the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hits)
}

// prune keeps timestamps strictly after cutoff. ts is in insertion order.
func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}
