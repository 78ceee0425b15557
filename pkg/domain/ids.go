// Package domain defines strongly typed identifiers shared across modules.
//
// Each ID wraps a uuid.UUID so the compiler rejects cross-entity mixups
// (passing a BookingID where an ItineraryID is expected). Construct via the
// Parse helpers at trust boundaries; direct casting bypasses validation.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

type (
	// SubmissionID identifies an agent submission.
	SubmissionID uuid.UUID
	// ItineraryID identifies an itinerary aggregate.
	ItineraryID uuid.UUID
	// BookingID identifies a traveler booking, the disclosure correlation key.
	BookingID uuid.UUID
	// AgentID identifies a travel agent.
	AgentID uuid.UUID
	// TravelerID identifies a traveler.
	TravelerID uuid.UUID
	// TravelRequestID identifies the traveler's original trip request.
	TravelRequestID uuid.UUID
)

func (id SubmissionID) String() string    { return uuid.UUID(id).String() }
func (id ItineraryID) String() string     { return uuid.UUID(id).String() }
func (id BookingID) String() string       { return uuid.UUID(id).String() }
func (id AgentID) String() string         { return uuid.UUID(id).String() }
func (id TravelerID) String() string      { return uuid.UUID(id).String() }
func (id TravelRequestID) String() string { return uuid.UUID(id).String() }

func (id SubmissionID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ItineraryID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id BookingID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id AgentID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id TravelerID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id TravelRequestID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText/UnmarshalText keep the canonical UUID string form on the wire
// and in JSON for every ID type.

func (id SubmissionID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *SubmissionID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = SubmissionID(u)
	return err
}

func (id ItineraryID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *ItineraryID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = ItineraryID(u)
	return err
}

func (id BookingID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *BookingID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = BookingID(u)
	return err
}

func (id AgentID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *AgentID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = AgentID(u)
	return err
}

func (id TravelerID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *TravelerID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = TravelerID(u)
	return err
}

func (id TravelRequestID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id *TravelRequestID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	*id = TravelRequestID(u)
	return err
}

// NewSubmissionID returns a random SubmissionID.
func NewSubmissionID() SubmissionID { return SubmissionID(uuid.New()) }

// NewItineraryID returns a random ItineraryID.
func NewItineraryID() ItineraryID { return ItineraryID(uuid.New()) }

// NewBookingID returns a random BookingID.
func NewBookingID() BookingID { return BookingID(uuid.New()) }

// NewTravelerID returns a random TravelerID.
func NewTravelerID() TravelerID { return TravelerID(uuid.New()) }

func parse(kind, s string) (uuid.UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q: %w", kind, s, err)
	}
	return u, nil
}

// ParseSubmissionID parses external input into a SubmissionID.
func ParseSubmissionID(s string) (SubmissionID, error) {
	u, err := parse("submission", s)
	return SubmissionID(u), err
}

// ParseItineraryID parses external input into an ItineraryID.
func ParseItineraryID(s string) (ItineraryID, error) {
	u, err := parse("itinerary", s)
	return ItineraryID(u), err
}

// ParseBookingID parses external input into a BookingID.
func ParseBookingID(s string) (BookingID, error) {
	u, err := parse("booking", s)
	return BookingID(u), err
}

// ParseAgentID parses external input into an AgentID.
func ParseAgentID(s string) (AgentID, error) {
	u, err := parse("agent", s)
	return AgentID(u), err
}

// ParseTravelerID parses external input into a TravelerID.
func ParseTravelerID(s string) (TravelerID, error) {
	u, err := parse("traveler", s)
	return TravelerID(u), err
}

// ParseTravelRequestID parses external input into a TravelRequestID.
func ParseTravelRequestID(s string) (TravelRequestID, error) {
	u, err := parse("travel request", s)
	return TravelRequestID(u), err
}
