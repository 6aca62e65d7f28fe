package usecase

import (
	"time"

	domrepo "DemandLoop/internal/domain/repository"
	applogger "DemandLoop/pkg/logger"
	"DemandLoop/pkg/metrics"
)

// Clock returns the current instant. Use cases take one so tests can pin time.
type Clock func() time.Time

type common struct {
	l       *applogger.Logger
	metrics domrepo.Metrics
	clock   Clock
}

func defaultCommon() common {
	return common{
		l:       applogger.NewNop(),
		metrics: metrics.Nop{},
		clock:   time.Now,
	}
}

// Option configures the ambient dependencies shared by every use case.
type Option func(*common)

func WithLogger(l *applogger.Logger) Option {
	return func(c *common) {
		if l != nil {
			c.l = l
		}
	}
}

func WithMetrics(m domrepo.Metrics) Option {
	return func(c *common) {
		if m != nil {
			c.metrics = m
		}
	}
}

func WithClock(clock Clock) Option {
	return func(c *common) {
		if clock != nil {
			c.clock = clock
		}
	}
}

func applyOptions(opts []Option) common {
	c := defaultCommon()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
