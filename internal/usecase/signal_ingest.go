package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"DemandLoop/internal/domain/models"
	domrepo "DemandLoop/internal/domain/repository"
	pkgkafka "DemandLoop/pkg/kafka"
	applogger "DemandLoop/pkg/logger"
	"DemandLoop/pkg/util"
)

// RecomputeScheduler queues a venue for a later recompute.
type RecomputeScheduler interface {
	Schedule(ctx context.Context, venueID string) error
}

// SignalIngestHandler consumes signal events from Kafka, persists them and
// schedules a recompute of the venue.
type SignalIngestHandler struct {
	topic     string
	venues    domrepo.VenueStore
	signals   domrepo.SignalStore
	scheduler RecomputeScheduler
	common
}

var _ pkgkafka.MessageHandler = (*SignalIngestHandler)(nil)

func NewSignalIngestHandler(
	topic string,
	venues domrepo.VenueStore,
	signals domrepo.SignalStore,
	scheduler RecomputeScheduler,
	opts ...Option,
) *SignalIngestHandler {
	return &SignalIngestHandler{
		topic:     topic,
		venues:    venues,
		signals:   signals,
		scheduler: scheduler,
		common:    applyOptions(opts),
	}
}

func (h *SignalIngestHandler) Topic() string { return h.topic }

// Handle rejects malformed events as permanent failures so they are
// dead-lettered without retry. Store errors are returned as-is and retried.
func (h *SignalIngestHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.SignalEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return pkgkafka.Permanent(fmt.Errorf("decode signal event: %w", err))
	}
	now := h.clock().UTC()
	sig, err := SignalFromEvent(ev, now)
	if err != nil {
		h.metrics.RecordError("consumer_invalid")
		return pkgkafka.Permanent(err)
	}

	if _, err := h.venues.Get(ctx, sig.VenueID); err != nil {
		if errors.Is(err, domrepo.ErrNotFound) {
			h.metrics.RecordError("consumer_unknown_venue")
			return pkgkafka.Permanent(fmt.Errorf("signal for unknown venue %q", sig.VenueID))
		}
		return fmt.Errorf("get venue: %w", err)
	}

	if err := h.signals.Insert(ctx, &sig); err != nil {
		h.metrics.RecordError("consumer_store")
		if errors.Is(err, domrepo.ErrInvalidInput) {
			return pkgkafka.Permanent(err)
		}
		return fmt.Errorf("insert signal: %w", err)
	}
	h.metrics.RecordSignal(string(sig.Kind))
	h.metrics.RecordLatency("ingest_e2e", now.Sub(sig.CreatedAt).Seconds())

	if h.scheduler != nil {
		if err := h.scheduler.Schedule(ctx, sig.VenueID); err != nil {
			h.l.Warn("schedule recompute failed",
				applogger.String("venue_id", sig.VenueID),
				applogger.Error(err),
			)
		}
	}
	return nil
}

// SignalFromEvent validates an inbound event. Crowd level and wait band must be
// both present on a CHECKIN and absent on every other kind. A missing or future
// createdAt becomes now.
func SignalFromEvent(ev models.SignalEvent, now time.Time) (models.Signal, error) {
	if ev.PlaceID == "" {
		return models.Signal{}, fmt.Errorf("placeId is required")
	}
	kind, err := models.ParseSignalKind(ev.Type)
	if err != nil {
		return models.Signal{}, err
	}

	sig := models.Signal{
		ID:        uuid.NewString(),
		VenueID:   ev.PlaceID,
		Kind:      kind,
		Weight:    1.0,
		UserHash:  ev.UserHash,
		CreatedAt: now,
	}

	hasCrowd, hasWait := ev.CrowdLevel != "", ev.WaitBand != ""
	switch {
	case kind == models.SignalCheckin && (!hasCrowd || !hasWait):
		return models.Signal{}, fmt.Errorf("check-in requires crowdLevel and waitBand")
	case kind != models.SignalCheckin && (hasCrowd || hasWait):
		return models.Signal{}, fmt.Errorf("%s signal must not carry crowdLevel or waitBand", kind)
	}
	if hasCrowd {
		if sig.CrowdLevel, err = models.ParseCrowdLevel(ev.CrowdLevel); err != nil {
			return models.Signal{}, err
		}
		if sig.WaitBand, err = models.ParseWaitBand(ev.WaitBand); err != nil {
			return models.Signal{}, err
		}
	}

	if ev.Weight != nil {
		if *ev.Weight <= 0 {
			return models.Signal{}, fmt.Errorf("weight must be positive")
		}
		sig.Weight = *ev.Weight
	}
	if ev.CreatedAt != "" {
		t, ok := util.ParseTime(ev.CreatedAt)
		if !ok {
			return models.Signal{}, fmt.Errorf("invalid createdAt %q", ev.CreatedAt)
		}
		if t.Before(now) {
			sig.CreatedAt = t.UTC()
		}
	}
	return sig, nil
}
