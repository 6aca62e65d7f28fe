package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"DemandLoop/internal/domain/models"
	domrepo "DemandLoop/internal/domain/repository"
	applogger "DemandLoop/pkg/logger"
)

// EventWriter is the subset of pkg/kafka.Producer the publisher needs.
type EventWriter interface {
	Publish(ctx context.Context, topic string, key []byte, value any) error
}

// BreakerSettings configures the publisher's circuit breaker.
type BreakerSettings struct {
	FailureThreshold uint32
	MaxRequests      uint32
	Timeout          time.Duration
}

// KafkaPredictionPublisher publishes prediction.updated events keyed by venue id.
// Writes go through a circuit breaker so a broker outage fails fast.
type KafkaPredictionPublisher struct {
	w     EventWriter
	topic string
	cb    *gobreaker.CircuitBreaker[interface{}]
}

func NewKafkaPredictionPublisher(w EventWriter, topic string, bs BreakerSettings, l *applogger.Logger) *KafkaPredictionPublisher {
	if l == nil {
		l = applogger.NewNop()
	}
	if bs.FailureThreshold == 0 {
		bs.FailureThreshold = 5
	}
	settings := gobreaker.Settings{
		Name:        "kafka-" + topic,
		MaxRequests: bs.MaxRequests,
		Timeout:     bs.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bs.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn("circuit breaker state change",
				applogger.String("breaker", name),
				applogger.String("from", from.String()),
				applogger.String("to", to.String()),
			)
		},
	}
	return &KafkaPredictionPublisher{
		w:     w,
		topic: topic,
		cb:    gobreaker.NewCircuitBreaker[interface{}](settings),
	}
}

var _ domrepo.PredictionPublisher = (*KafkaPredictionPublisher)(nil)

func (p *KafkaPredictionPublisher) PublishPrediction(ctx context.Context, pred *models.Prediction) error {
	if pred == nil {
		return nil
	}
	ev := models.NewPredictionEvent(*pred)
	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, p.w.Publish(ctx, p.topic, []byte(pred.VenueID), ev)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("publish prediction %s: %w", pred.VenueID, err)
	}
	return err
}

// BreakerState reports the breaker state for health output.
func (p *KafkaPredictionPublisher) BreakerState() string {
	return p.cb.State().String()
}

// FanoutPublisher delivers to every publisher and joins their errors.
type FanoutPublisher []domrepo.PredictionPublisher

var _ domrepo.PredictionPublisher = FanoutPublisher(nil)

func (f FanoutPublisher) PublishPrediction(ctx context.Context, pred *models.Prediction) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.PublishPrediction(ctx, pred); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
