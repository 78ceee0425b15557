// Package service orchestrates submission intake, the processing state
// machine, and the link to the resulting itinerary.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"wayfare/internal/audit"
	"wayfare/internal/events"
	"wayfare/internal/realtime"
	"wayfare/internal/submission/metrics"
	"wayfare/internal/submission/models"
	id "wayfare/pkg/domain"
	dErrors "wayfare/pkg/domain-errors"
	"wayfare/pkg/platform/sentinel"
	"wayfare/pkg/requestcontext"
)

// Store is the persistence boundary for submissions. Execute runs validate
// and mutate atomically against the current row.
type Store interface {
	CreateIfContentNew(ctx context.Context, sub *models.Submission) error
	FindByID(ctx context.Context, submissionID id.SubmissionID) (*models.Submission, error)
	FindByContentHash(ctx context.Context, hash string) (*models.Submission, error)
	ListByTravelRequest(ctx context.Context, requestID id.TravelRequestID) ([]*models.Submission, error)
	ListByAgent(ctx context.Context, agentID id.AgentID) ([]*models.Submission, error)
	Execute(
		ctx context.Context,
		submissionID id.SubmissionID,
		validate func(*models.Submission) error,
		mutate func(*models.Submission),
	) (*models.Submission, error)
}

// AuditEmitter records audit events. Emission is best-effort and must never
// fail the mutation it describes.
type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event)
}

// DuplicateError reports that identical content was already submitted, and by
// which submission, so callers can point the agent at the earlier one.
type DuplicateError struct {
	ExistingID id.SubmissionID
}

func (e *DuplicateError) Error() string {
	return "identical content already submitted as " + e.ExistingID.String()
}

// Service owns submission workflows: dedup intake, status transitions, and
// linking a parsed submission to the itinerary built from it.
type Service struct {
	store    Store
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

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		logger:   slog.Default(),
		realtime: realtime.NoopBroadcaster{},
		tracer:   otel.Tracer("wayfare/submission"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput carries a new submission from the transport layer. RawContent
// is the verbatim request body, preserved for audit and reprocessing.
type CreateInput struct {
	TravelRequestID id.TravelRequestID
	AgentID         id.AgentID
	TravelerID      id.TravelerID
	Content         models.Content
	RawContent      json.RawMessage
}

// Create validates and stores a submission. Identical content (by canonical
// hash) is rejected with a DuplicateError naming the existing submission.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Submission, error) {
	ctx, span := s.tracer.Start(ctx, "submission.Create")
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.ObserveCreateLatency(time.Since(start)) }()

	sub, err := models.NewSubmission(
		id.NewSubmissionID(),
		input.TravelRequestID,
		input.AgentID,
		input.TravelerID,
		input.Content,
		input.RawContent,
		requestcontext.Now(ctx),
	)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("submission.id", sub.ID.String()))

	if err := s.store.CreateIfContentNew(ctx, sub); err != nil {
		if errors.Is(err, sentinel.ErrDuplicateHash) {
			s.metrics.IncrementDuplicate()
			existing, findErr := s.store.FindByContentHash(ctx, sub.ContentHash)
			if findErr != nil {
				return nil, dErrors.Wrap(findErr, dErrors.CodeInternal, "failed to resolve duplicate submission")
			}
			s.logger.InfoContext(ctx, "duplicate submission rejected",
				"existing_submission_id", existing.ID,
				"agent_id", input.AgentID,
			)
			return nil, &DuplicateError{ExistingID: existing.ID}
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store submission")
	}

	s.metrics.IncrementCreated(string(sub.Content.Source))
	s.emitAudit(ctx, audit.ActionSubmissionCreated, sub, nil)
	s.publish(ctx, events.TopicItinerarySubmitted, sub)
	s.notify(ctx, realtime.EventSubmissionReceived, sub)

	s.logger.InfoContext(ctx, "submission created",
		"submission_id", sub.ID,
		"travel_request_id", sub.TravelRequestID,
		"source", sub.Content.Source,
	)
	return sub, nil
}

// Get returns one submission by id.
func (s *Service) Get(ctx context.Context, submissionID id.SubmissionID) (*models.Submission, error) {
	sub, err := s.store.FindByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "submission not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load submission")
	}
	return sub, nil
}

// ListByTravelRequest returns all submissions for a travel request, newest
// first.
func (s *Service) ListByTravelRequest(ctx context.Context, requestID id.TravelRequestID) ([]*models.Submission, error) {
	if requestID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "travel request id is required")
	}
	subs, err := s.store.ListByTravelRequest(ctx, requestID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list submissions")
	}
	return subs, nil
}

// ListByAgent returns all submissions made by an agent, newest first.
func (s *Service) ListByAgent(ctx context.Context, agentID id.AgentID) ([]*models.Submission, error) {
	if agentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "agent id is required")
	}
	subs, err := s.store.ListByAgent(ctx, agentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list submissions")
	}
	return subs, nil
}

// UpdateStatus moves a submission through the processing state machine.
// errorMessage is required when the target is FAILED and ignored otherwise.
func (s *Service) UpdateStatus(ctx context.Context, submissionID id.SubmissionID, target models.Status, errorMessage string) (*models.Submission, error) {
	ctx, span := s.tracer.Start(ctx, "submission.UpdateStatus",
		trace.WithAttributes(attribute.String("submission.target_status", string(target))))
	defer span.End()

	var from models.Status
	sub, err := s.store.Execute(ctx, submissionID,
		func(cur *models.Submission) error {
			from = cur.Status
			return cur.CanTransition(target, errorMessage)
		},
		func(cur *models.Submission) {
			cur.ApplyTransition(target, errorMessage, requestcontext.Now(ctx))
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "submission not found")
		}
		return nil, err
	}

	s.metrics.IncrementTransition(string(target))
	s.emitAudit(ctx, audit.ActionSubmissionStatusChanged, sub, []audit.FieldChange{
		{Field: "status", From: string(from), To: string(sub.Status)},
	})
	s.publish(ctx, events.TopicItineraryUpdated, sub)

	s.logger.InfoContext(ctx, "submission status changed",
		"submission_id", sub.ID,
		"from", from,
		"to", sub.Status,
	)
	return sub, nil
}

// LinkToItinerary records the itinerary built from a parsed submission and
// completes it. The link and the COMPLETED status are one atomic mutation;
// there is no other way to reach COMPLETED.
func (s *Service) LinkToItinerary(ctx context.Context, submissionID id.SubmissionID, itineraryID id.ItineraryID) (*models.Submission, error) {
	ctx, span := s.tracer.Start(ctx, "submission.LinkToItinerary",
		trace.WithAttributes(attribute.String("itinerary.id", itineraryID.String())))
	defer span.End()

	if itineraryID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "itinerary id is required")
	}

	var from models.Status
	sub, err := s.store.Execute(ctx, submissionID,
		func(cur *models.Submission) error {
			from = cur.Status
			return cur.CanLink()
		},
		func(cur *models.Submission) {
			cur.ApplyLink(itineraryID, requestcontext.Now(ctx))
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "submission not found")
		}
		return nil, err
	}

	s.metrics.IncrementTransition(string(models.StatusCompleted))
	s.emitAudit(ctx, audit.ActionSubmissionLinked, sub, []audit.FieldChange{
		{Field: "status", From: string(from), To: string(sub.Status)},
		{Field: "resulting_itinerary_id", To: itineraryID.String()},
	})
	s.publish(ctx, events.TopicItineraryUpdated, sub)
	s.notify(ctx, realtime.EventItineraryUpdated, sub)

	s.logger.InfoContext(ctx, "submission linked to itinerary",
		"submission_id", sub.ID,
		"itinerary_id", itineraryID,
	)
	return sub, nil
}

func (s *Service) emitAudit(ctx context.Context, action string, sub *models.Submission, changes []audit.FieldChange) {
	if s.auditor == nil {
		return
	}
	actor := requestcontext.Actor(ctx)
	s.auditor.Emit(ctx, audit.Event{
		Action:        action,
		EntityType:    "submission",
		EntityID:      sub.ID.String(),
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
		FieldChanges:  changes,
		CorrelationID: requestcontext.RequestID(ctx),
	})
}

func (s *Service) notify(ctx context.Context, eventType string, sub *models.Submission) {
	if sub.TravelerID.IsNil() {
		return
	}
	payload := map[string]string{
		"submission_id":     sub.ID.String(),
		"travel_request_id": sub.TravelRequestID.String(),
		"status":            string(sub.Status),
	}
	if sub.ResultingItineraryID != nil {
		payload["itinerary_id"] = sub.ResultingItineraryID.String()
	}
	s.realtime.NotifyTraveler(ctx, sub.TravelerID, realtime.Message{
		EventType: eventType,
		Payload:   payload,
	})
}

func (s *Service) publish(ctx context.Context, topic string, sub *models.Submission) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, topic, sub.TravelRequestID.String(), events.SubmissionEvent{
		SubmissionID:    sub.ID,
		TravelRequestID: sub.TravelRequestID,
		AgentID:         sub.AgentID,
		TravelerID:      sub.TravelerID,
		Status:          string(sub.Status),
		ItineraryID:     sub.ResultingItineraryID,
	})
}
