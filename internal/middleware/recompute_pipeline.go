package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domrepo "DemandLoop/internal/domain/repository"
	domservice "DemandLoop/internal/domain/service"
	applogger "DemandLoop/pkg/logger"
	"DemandLoop/pkg/metrics"
)

// ErrPipelineFull is returned by Schedule when the queue has no room.
var ErrPipelineFull = errors.New("recompute pipeline full")

// RecomputePipeline sits between signal ingestion and the orchestrator.
// It coalesces duplicate requests, throttles each venue to one recompute per
// interval and retries failed recomputes with exponential backoff.
type RecomputePipeline struct {
	recomputer domservice.Recomputer
	metrics    domrepo.Metrics
	l          *applogger.Logger

	throttle   time.Duration
	workers    int
	bufSize    int
	maxRetries int
	backoffMin time.Duration
	backoffMax time.Duration
	clock      func() time.Time

	queue   chan string
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	pending   map[string]bool
	lastRun   map[string]time.Time
	lastSweep time.Time
}

type PipelineOption func(*RecomputePipeline)

// WithThrottle sets the minimum interval between recomputes of one venue.
func WithThrottle(d time.Duration) PipelineOption {
	return func(p *RecomputePipeline) {
		if d >= 0 {
			p.throttle = d
		}
	}
}

// WithBufferSize sets how many venues may wait in the queue.
func WithBufferSize(n int) PipelineOption {
	return func(p *RecomputePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

func WithWorkers(n int) PipelineOption {
	return func(p *RecomputePipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithRetry sets retry count and backoff bounds for failed recomputes.
func WithRetry(max int, min, maxBackoff time.Duration) PipelineOption {
	return func(p *RecomputePipeline) {
		if max >= 0 {
			p.maxRetries = max
		}
		if min > 0 {
			p.backoffMin = min
		}
		if maxBackoff >= p.backoffMin {
			p.backoffMax = maxBackoff
		}
	}
}

func WithPipelineLogger(l *applogger.Logger) PipelineOption {
	return func(p *RecomputePipeline) {
		if l != nil {
			p.l = l
		}
	}
}

func WithPipelineMetrics(m domrepo.Metrics) PipelineOption {
	return func(p *RecomputePipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

func WithPipelineClock(clock func() time.Time) PipelineOption {
	return func(p *RecomputePipeline) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// NewRecomputePipeline creates a new pipeline. Call Start before scheduling.
func NewRecomputePipeline(r domservice.Recomputer, opts ...PipelineOption) *RecomputePipeline {
	p := &RecomputePipeline{
		recomputer: r,
		metrics:    metrics.Nop{},
		l:          applogger.NewNop(),
		throttle:   15 * time.Second,
		workers:    1,
		bufSize:    1024,
		maxRetries: 3,
		backoffMin: 100 * time.Millisecond,
		backoffMax: 5 * time.Second,
		clock:      time.Now,
		stopCh:     make(chan struct{}),
		pending:    make(map[string]bool),
		lastRun:    make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.queue = make(chan string, p.bufSize)
	return p
}

// Start launches the workers. They exit when ctx is cancelled or Stop is called.
func (p *RecomputePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.stopCh:
					return
				case id := <-p.queue:
					p.process(ctx, id)
				}
			}
		}()
	}
}

// Stop stops the workers and waits for the in-flight recompute to finish.
func (p *RecomputePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
	p.wg.Wait()
}

// Schedule queues venueID. A venue already waiting is not queued twice.
func (p *RecomputePipeline) Schedule(_ context.Context, venueID string) error {
	if venueID == "" {
		return fmt.Errorf("schedule: %w", domrepo.ErrInvalidInput)
	}
	p.mu.Lock()
	if p.pending[venueID] {
		p.mu.Unlock()
		return nil
	}
	p.pending[venueID] = true
	p.mu.Unlock()

	if !p.enqueue(venueID) {
		p.mu.Lock()
		delete(p.pending, venueID)
		p.mu.Unlock()
		p.metrics.RecordError("pipeline_buffer_full")
		return ErrPipelineFull
	}
	p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.queue)))
	return nil
}

// Pending reports how many venues are waiting.
func (p *RecomputePipeline) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *RecomputePipeline) enqueue(id string) bool {
	select {
	case p.queue <- id:
		return true
	default:
		return false
	}
}

func (p *RecomputePipeline) process(ctx context.Context, id string) {
	now := p.clock()
	p.mu.Lock()
	if next := p.lastRun[id].Add(p.throttle); now.Before(next) {
		p.mu.Unlock()
		p.metrics.RecordError("pipeline_throttle")
		time.AfterFunc(next.Sub(now), func() {
			if !p.enqueue(id) {
				p.mu.Lock()
				delete(p.pending, id)
				p.mu.Unlock()
				p.metrics.RecordError("pipeline_buffer_full")
			}
		})
		return
	}
	p.lastRun[id] = now
	delete(p.pending, id)
	p.pruneLocked(now)
	p.mu.Unlock()

	start := time.Now()
	if err := p.recomputeWithRetry(ctx, id); err != nil {
		p.metrics.RecordError("pipeline_recompute")
		p.l.Error("recompute pipeline gave up",
			applogger.String("venue_id", id),
			applogger.Error(err),
		)
		return
	}
	p.metrics.RecordLatency("pipeline_recompute", time.Since(start).Seconds())
}

// pruneLocked forgets venues whose throttle interval has passed, at most once per interval.
func (p *RecomputePipeline) pruneLocked(now time.Time) {
	if now.Sub(p.lastSweep) < p.throttle {
		return
	}
	for id, t := range p.lastRun {
		if !now.Before(t.Add(p.throttle)) {
			delete(p.lastRun, id)
		}
	}
	p.lastSweep = now
}

func (p *RecomputePipeline) recomputeWithRetry(ctx context.Context, id string) error {
	backoff := p.backoffMin
	var err error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-p.stopCh:
				return err
			case <-time.After(backoff):
			}
			if backoff *= 2; backoff > p.backoffMax {
				backoff = p.backoffMax
			}
		}
		if _, err = p.recomputer.RecomputePredictions(ctx, []string{id}); err == nil {
			return nil
		}
		p.l.Warn("recompute attempt failed",
			applogger.String("venue_id", id),
			applogger.Int("attempt", attempt+1),
			applogger.Error(err),
		)
	}
	return err
}
