// Package service owns the append-only itinerary version log.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"wayfare/internal/audit"
	"wayfare/internal/events"
	"wayfare/internal/itinerary/metrics"
	"wayfare/internal/itinerary/models"
	id "wayfare/pkg/domain"
	dErrors "wayfare/pkg/domain-errors"
	"wayfare/pkg/platform/sentinel"
	"wayfare/pkg/requestcontext"
)

// Store is the persistence boundary for itinerary versions. AppendVersion
// assigns the next version number atomically.
type Store interface {
	AppendVersion(ctx context.Context, version *models.ItineraryVersion) (*models.ItineraryVersion, error)
	FindVersion(ctx context.Context, itineraryID id.ItineraryID, number int) (*models.ItineraryVersion, error)
	FindLatest(ctx context.Context, itineraryID id.ItineraryID) (*models.ItineraryVersion, error)
	ListVersions(ctx context.Context, itineraryID id.ItineraryID) ([]*models.ItineraryVersion, error)
}

// AuditEmitter records audit events, best-effort.
type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service writes and reads itinerary versions. Versions are immutable once
// written; corrections and updates always append.
type Service struct {
	store   Store
	logger  *slog.Logger
	auditor AuditEmitter
	events  events.Publisher
	metrics *metrics.Metrics
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

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateVersion validates the drafts, stamps item ids, and appends a new
// version for the itinerary. Returns the version with its assigned number.
func (s *Service) CreateVersion(ctx context.Context, itineraryID id.ItineraryID, sourceSubmissionID id.SubmissionID, drafts []models.ItemDraft) (*models.ItineraryVersion, error) {
	if itineraryID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "itinerary id is required")
	}
	if sourceSubmissionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "source submission id is required")
	}

	items, err := models.NewVersionItems(drafts)
	if err != nil {
		return nil, err
	}

	version, err := s.store.AppendVersion(ctx, &models.ItineraryVersion{
		ItineraryID:        itineraryID,
		SourceSubmissionID: sourceSubmissionID,
		Items:              items,
		CreatedAt:          requestcontext.Now(ctx),
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append itinerary version")
	}

	s.metrics.ObserveVersionCreated(len(version.Items))

	if s.auditor != nil {
		actor := requestcontext.Actor(ctx)
		s.auditor.Emit(ctx, audit.Event{
			Action:     audit.ActionVersionCreated,
			EntityType: "itinerary",
			EntityID:   version.ItineraryID.String(),
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			FieldChanges: []audit.FieldChange{
				{Field: "version_number", To: strconv.Itoa(version.VersionNumber)},
				{Field: "source_submission_id", To: version.SourceSubmissionID.String()},
			},
			CorrelationID: requestcontext.RequestID(ctx),
		})
	}
	if s.events != nil {
		s.events.Publish(ctx, events.TopicVersionCreated, version.ItineraryID.String(), events.VersionEvent{
			ItineraryID:   version.ItineraryID,
			VersionNumber: version.VersionNumber,
			SubmissionID:  version.SourceSubmissionID,
		})
	}

	s.logger.InfoContext(ctx, "itinerary version created",
		"itinerary_id", version.ItineraryID,
		"version_number", version.VersionNumber,
		"items", len(version.Items),
	)
	return version, nil
}

// GetVersion returns one numbered version.
func (s *Service) GetVersion(ctx context.Context, itineraryID id.ItineraryID, number int) (*models.ItineraryVersion, error) {
	if number < 1 {
		return nil, dErrors.New(dErrors.CodeValidation, "version number must be positive")
	}
	v, err := s.store.FindVersion(ctx, itineraryID, number)
	return v, s.mapReadErr(err)
}

// LatestVersion returns the highest-numbered version.
func (s *Service) LatestVersion(ctx context.Context, itineraryID id.ItineraryID) (*models.ItineraryVersion, error) {
	v, err := s.store.FindLatest(ctx, itineraryID)
	return v, s.mapReadErr(err)
}

// ListVersions returns all versions in ascending order.
func (s *Service) ListVersions(ctx context.Context, itineraryID id.ItineraryID) ([]*models.ItineraryVersion, error) {
	versions, err := s.store.ListVersions(ctx, itineraryID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list itinerary versions")
	}
	return versions, nil
}

func (s *Service) mapReadErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "itinerary version not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load itinerary version")
	}
}
