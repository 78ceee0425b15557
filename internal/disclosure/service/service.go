// Package service drives the disclosure state machine from booking signals
// and serves state-gated traveler views.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"wayfare/internal/audit"
	"wayfare/internal/disclosure/metrics"
	"wayfare/internal/disclosure/models"
	"wayfare/internal/events"
	itinmodels "wayfare/internal/itinerary/models"
	"wayfare/internal/realtime"
	id "wayfare/pkg/domain"
	dErrors "wayfare/pkg/domain-errors"
	"wayfare/pkg/platform/sentinel"
	"wayfare/pkg/requestcontext"
)

// Store is the persistence boundary for disclosure records. Apply runs the
// signal reducer atomically against the booking's current record.
type Store interface {
	Find(ctx context.Context, bookingID id.BookingID) (*models.Record, error)
	Apply(
		ctx context.Context,
		bookingID id.BookingID,
		itineraryID id.ItineraryID,
		apply func(*models.Record) models.SignalResult,
	) (*models.Record, models.SignalResult, error)
}

// VersionReader is the slice of the itinerary store the traveler render
// needs.
type VersionReader interface {
	FindVersion(ctx context.Context, itineraryID id.ItineraryID, number int) (*itinmodels.ItineraryVersion, error)
	FindLatest(ctx context.Context, itineraryID id.ItineraryID) (*itinmodels.ItineraryVersion, error)
}

// AuditEmitter records audit events, best-effort.
type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service applies booking signals and renders traveler views. It implements
// events.SignalHandler.
type Service struct {
	store    Store
	versions VersionReader
	logger   *slog.Logger
	auditor  AuditEmitter
	events   events.Publisher
	realtime realtime.Broadcaster
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditEmitter(auditor AuditEmitter) Option {
	return func(s *Service) { s.auditor = auditor }
}

func WithEventPublisher(pub events.Publisher) Option {
	return func(s *Service) { s.events = pub }
}

func WithBroadcaster(b realtime.Broadcaster) Option {
	return func(s *Service) { s.realtime = b }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store Store, versions VersionReader, opts ...Option) *Service {
	s := &Service{
		store:    store,
		versions: versions,
		logger:   slog.Default(),
		realtime: realtime.NoopBroadcaster{},
		tracer:   otel.Tracer("wayfare/disclosure"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RenderForTraveler serves the itinerary as the traveler may see it. The
// version content and the booking's disclosure state are both resolved before
// rendering, so the masked/unmasked decision is made once against a
// consistent snapshot. A booking with no disclosure record, or one recorded
// against a different itinerary, fails closed to OBFUSCATED.
func (s *Service) RenderForTraveler(ctx context.Context, itineraryID id.ItineraryID, bookingID id.BookingID, versionNumber *int) (models.TravelerView, error) {
	var (
		version *itinmodels.ItineraryVersion
		err     error
	)
	if versionNumber != nil {
		if *versionNumber < 1 {
			return models.TravelerView{}, dErrors.New(dErrors.CodeValidation, "version number must be positive")
		}
		version, err = s.versions.FindVersion(ctx, itineraryID, *versionNumber)
	} else {
		version, err = s.versions.FindLatest(ctx, itineraryID)
	}
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.TravelerView{}, dErrors.New(dErrors.CodeNotFound, "itinerary not found")
		}
		return models.TravelerView{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load itinerary version")
	}

	state := models.StateObfuscated
	rec, err := s.store.Find(ctx, bookingID)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		s.logger.DebugContext(ctx, "no disclosure record for booking, serving obfuscated",
			"booking_id", bookingID, "itinerary_id", itineraryID)
	case err != nil:
		return models.TravelerView{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load disclosure state")
	case rec.ItineraryID != itineraryID:
		s.logger.WarnContext(ctx, "booking is recorded against a different itinerary, serving obfuscated",
			"booking_id", bookingID, "itinerary_id", itineraryID, "recorded_itinerary_id", rec.ItineraryID)
	default:
		state = rec.State
	}

	s.metrics.IncrementRender(string(state))
	return models.RenderForTraveler(version, state, requestcontext.Now(ctx)), nil
}

// OnPaymentCaptured drives the booking toward REVEALED.
func (s *Service) OnPaymentCaptured(ctx context.Context, signal events.BookingSignal) error {
	return s.applySignal(ctx, "booking.paid", signal, models.StateRevealed)
}

// OnBookingCancelled drives the booking toward OBFUSCATED.
func (s *Service) OnBookingCancelled(ctx context.Context, signal events.BookingSignal) error {
	return s.applySignal(ctx, "booking.cancelled", signal, models.StateObfuscated)
}

func (s *Service) applySignal(ctx context.Context, name string, signal events.BookingSignal, target models.State) error {
	ctx, span := s.tracer.Start(ctx, "disclosure.applySignal",
		trace.WithAttributes(
			attribute.String("signal", name),
			attribute.Int64("sequence", signal.Sequence),
		))
	defer span.End()

	// A signal we cannot tie to a booking will never resolve; log and drop
	// rather than redeliver forever. It may be a benign race with booking
	// creation, in which case a later, higher-sequence signal catches up.
	if signal.BookingID.IsNil() || signal.ItineraryID.IsNil() || signal.Sequence <= 0 {
		s.metrics.IncrementSignal(name, "unresolvable")
		s.logger.WarnContext(ctx, "unresolvable booking signal dropped",
			"signal", name,
			"booking_id", signal.BookingID,
			"itinerary_id", signal.ItineraryID,
			"sequence", signal.Sequence,
		)
		return nil
	}

	now := requestcontext.Now(ctx)
	rec, result, err := s.store.Apply(ctx, signal.BookingID, signal.ItineraryID,
		func(r *models.Record) models.SignalResult {
			return r.Apply(target, signal.Sequence, now)
		})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to apply booking signal")
	}

	switch result {
	case models.SignalStale:
		s.metrics.IncrementSignal(name, "stale")
		s.logger.DebugContext(ctx, "stale booking signal dropped",
			"signal", name, "booking_id", signal.BookingID,
			"sequence", signal.Sequence, "last_sequence", rec.LastSequence)
		return nil
	case models.SignalApplied:
		s.metrics.IncrementSignal(name, "applied")
		return nil
	}

	s.metrics.IncrementSignal(name, "flipped")
	s.emitFlip(ctx, rec, signal)
	s.logger.InfoContext(ctx, "disclosure state changed",
		"booking_id", rec.BookingID,
		"itinerary_id", rec.ItineraryID,
		"state", rec.State,
		"sequence", rec.LastSequence,
	)
	return nil
}

func (s *Service) emitFlip(ctx context.Context, rec *models.Record, signal events.BookingSignal) {
	if s.auditor != nil {
		action := audit.ActionDisclosureObfuscated
		if rec.State == models.StateRevealed {
			action = audit.ActionDisclosureRevealed
		}
		actor := requestcontext.Actor(ctx)
		s.auditor.Emit(ctx, audit.Event{
			Action:     action,
			EntityType: "booking",
			EntityID:   rec.BookingID.String(),
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			FieldChanges: []audit.FieldChange{
				{Field: "state", To: string(rec.State)},
			},
			CorrelationID: requestcontext.RequestID(ctx),
		})
	}
	if s.events != nil {
		s.events.Publish(ctx, events.TopicItineraryDisclosed, rec.ItineraryID.String(), events.DisclosureEvent{
			BookingID:   rec.BookingID,
			ItineraryID: rec.ItineraryID,
			State:       string(rec.State),
			Sequence:    rec.LastSequence,
		})
	}
	if !signal.TravelerID.IsNil() {
		s.realtime.NotifyTraveler(ctx, signal.TravelerID, realtime.Message{
			EventType: realtime.EventItineraryDisclosed,
			Payload: map[string]string{
				"itinerary_id": rec.ItineraryID.String(),
				"booking_id":   rec.BookingID.String(),
				"state":        string(rec.State),
			},
		})
	}
}
