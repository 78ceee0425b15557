// Package events carries domain events across the platform event bus.
package events

import (
	"context"
	"encoding/json"
	"time"

	id "wayfare/pkg/domain"
)

// Outbound topics produced by this subsystem.
const (
	TopicItinerarySubmitted = "itinerary.submitted"
	TopicItineraryUpdated   = "itinerary.updated"
	TopicVersionCreated     = "itinerary.version.created"
	TopicItineraryDisclosed = "itinerary.disclosed"
)

// Inbound topics consumed by the disclosure engine.
const (
	TopicBookingPaid      = "booking.paid"
	TopicBookingCancelled = "booking.cancelled"
)

// Envelope is the wire form of a domain event. Payload stays raw so consumers
// decode only the events they care about.
type Envelope struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// Publisher pushes domain events to downstream consumers. Implementations are
// fire-and-forget: failures are logged, never returned, so event delivery can
// never fail a transactional write.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload any)
}

// SubmissionEvent is the payload for itinerary.submitted / itinerary.updated.
type SubmissionEvent struct {
	SubmissionID    id.SubmissionID    `json:"submission_id"`
	TravelRequestID id.TravelRequestID `json:"travel_request_id"`
	AgentID         id.AgentID         `json:"agent_id"`
	TravelerID      id.TravelerID      `json:"traveler_id"`
	Status          string             `json:"status"`
	ItineraryID     *id.ItineraryID    `json:"itinerary_id,omitempty"`
}

// VersionEvent is the payload for itinerary.version.created.
type VersionEvent struct {
	ItineraryID   id.ItineraryID  `json:"itinerary_id"`
	VersionNumber int             `json:"version_number"`
	SubmissionID  id.SubmissionID `json:"submission_id"`
}

// DisclosureEvent is the payload for itinerary.disclosed.
type DisclosureEvent struct {
	BookingID   id.BookingID   `json:"booking_id"`
	ItineraryID id.ItineraryID `json:"itinerary_id"`
	State       string         `json:"state"`
	Sequence    int64          `json:"sequence"`
}

// BookingSignal is the payload of booking.paid and booking.cancelled.
// Sequence is the booking's causal ordering token: handlers resolve
// out-of-order and duplicate delivery with it, never with receipt time.
type BookingSignal struct {
	BookingID   id.BookingID   `json:"booking_id"`
	ItineraryID id.ItineraryID `json:"itinerary_id"`
	TravelerID  id.TravelerID  `json:"traveler_id,omitempty"`
	Sequence    int64          `json:"sequence"`
	OccurredAt  time.Time      `json:"occurred_at"`
}
