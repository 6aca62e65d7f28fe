package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DemandLoop/internal/domain/models"
	"DemandLoop/internal/repository"
	"DemandLoop/internal/usecase"
)

type fakeRecomputer struct {
	mu    sync.Mutex
	calls map[string]int
	fail  int // fail this many calls before succeeding
}

func newFakeRecomputer() *fakeRecomputer {
	return &fakeRecomputer{calls: make(map[string]int)}
}

func (f *fakeRecomputer) RecomputePredictions(_ context.Context, ids []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.calls[id]++
	}
	if f.fail > 0 {
		f.fail--
		return 0, errors.New("store down")
	}
	return len(ids), nil
}

func (f *fakeRecomputer) count(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func TestRecomputePipeline_RunsScheduledVenue(t *testing.T) {
	rec := newFakeRecomputer()
	p := NewRecomputePipeline(rec, WithThrottle(0))
	p.Start(context.Background())
	defer p.Stop()

	require.NoError(t, p.Schedule(context.Background(), "v1"))
	require.Eventually(t, func() bool { return rec.count("v1") == 1 }, time.Second, 5*time.Millisecond)
}

func TestRecomputePipeline_CoalescesPendingVenue(t *testing.T) {
	rec := newFakeRecomputer()
	p := NewRecomputePipeline(rec, WithThrottle(0))

	for i := 0; i < 5; i++ {
		require.NoError(t, p.Schedule(context.Background(), "v1"))
	}
	assert.Equal(t, 1, p.Pending())

	p.Start(context.Background())
	defer p.Stop()
	require.Eventually(t, func() bool { return rec.count("v1") == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, rec.count("v1"))
}

func TestRecomputePipeline_ThrottlesVenue(t *testing.T) {
	rec := newFakeRecomputer()
	p := NewRecomputePipeline(rec, WithThrottle(150*time.Millisecond))
	p.Start(context.Background())
	defer p.Stop()

	require.NoError(t, p.Schedule(context.Background(), "v1"))
	require.Eventually(t, func() bool { return rec.count("v1") == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, p.Schedule(context.Background(), "v1"))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, rec.count("v1"), "second run must wait for the throttle interval")

	require.Eventually(t, func() bool { return rec.count("v1") == 2 }, time.Second, 5*time.Millisecond)
}

func TestRecomputePipeline_RetriesFailures(t *testing.T) {
	rec := newFakeRecomputer()
	rec.fail = 2
	p := NewRecomputePipeline(rec, WithThrottle(0), WithRetry(3, time.Millisecond, 5*time.Millisecond))
	p.Start(context.Background())
	defer p.Stop()

	require.NoError(t, p.Schedule(context.Background(), "v1"))
	require.Eventually(t, func() bool { return rec.count("v1") == 3 }, time.Second, 5*time.Millisecond)
}

func TestRecomputePipeline_FullQueue(t *testing.T) {
	rec := newFakeRecomputer()
	p := NewRecomputePipeline(rec, WithBufferSize(1))

	require.NoError(t, p.Schedule(context.Background(), "v1"))
	err := p.Schedule(context.Background(), "v2")
	require.ErrorIs(t, err, ErrPipelineFull)
	assert.Equal(t, 1, p.Pending())
}

func TestRecomputePipeline_RejectsEmptyID(t *testing.T) {
	p := NewRecomputePipeline(newFakeRecomputer())
	require.Error(t, p.Schedule(context.Background(), ""))
}

// flakySignals fails the first FetchSignals call.
type flakySignals struct {
	*repository.MemorySignalStore
	mu    sync.Mutex
	calls int
}

func (f *flakySignals) FetchSignals(ctx context.Context, venueID string, since time.Time) ([]models.Signal, error) {
	f.mu.Lock()
	f.calls++
	first := f.calls == 1
	f.mu.Unlock()
	if first {
		return nil, errors.New("connection reset")
	}
	return f.MemorySignalStore.FetchSignals(ctx, venueID, since)
}

func (f *flakySignals) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRecomputePipeline_RetriesStoreFailure(t *testing.T) {
	venues := repository.NewMemoryVenueStore(models.Venue{
		ID:          "v1",
		NameAr:      "مقهى",
		NameEn:      "Cafe",
		Category:    models.CategoryCafe,
		District:    "Olaya",
		ParkingEase: models.ParkingMedium,
		IsActive:    true,
	})
	signals := &flakySignals{MemorySignalStore: repository.NewMemorySignalStore()}
	preds := repository.NewMemoryPredictionStore()
	uc := usecase.NewRecomputeUseCase(venues, signals, preds, nil, nil, usecase.RecomputeConfig{})

	p := NewRecomputePipeline(uc, WithThrottle(0), WithRetry(3, time.Millisecond, 5*time.Millisecond))
	p.Start(context.Background())
	defer p.Stop()

	require.NoError(t, p.Schedule(context.Background(), "v1"))
	require.Eventually(t, func() bool {
		_, err := preds.Get(context.Background(), "v1")
		return err == nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, signals.count())
}

func TestRecomputePipeline_ForgetsExpiredThrottle(t *testing.T) {
	var (
		mu  sync.Mutex
		now = time.Date(2025, 3, 4, 17, 30, 0, 0, time.UTC)
	)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	rec := newFakeRecomputer()
	p := NewRecomputePipeline(rec, WithThrottle(time.Minute), WithPipelineClock(clock))
	ctx := context.Background()

	p.process(ctx, "v1")
	p.process(ctx, "v2")
	advance(2 * time.Minute)
	p.process(ctx, "v3")

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Len(t, p.lastRun, 1)
	assert.Contains(t, p.lastRun, "v3")
}
