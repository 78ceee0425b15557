package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	id "wayfare/pkg/domain"
	dErrors "wayfare/pkg/domain-errors"
)

// ItemType discriminates the type-specific details of an itinerary item.
type ItemType string

const (
	ItemAccommodation ItemType = "accommodation"
	ItemTransport     ItemType = "transport"
	ItemActivity      ItemType = "activity"
)

var validItemTypes = map[ItemType]bool{
	ItemAccommodation: true,
	ItemTransport:     true,
	ItemActivity:      true,
}

// ParseItemType validates external input into an ItemType.
func ParseItemType(s string) (ItemType, error) {
	t := ItemType(s)
	if !validItemTypes[t] {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown item type %q", s)
	}
	return t, nil
}

// Vendor carries the supplier identity for an item. Name, contact details,
// booking reference and confirmation number are identity-sensitive and are
// masked for travelers until the booking's disclosure state is REVEALED;
// category and star rating are descriptive and always pass through.
type Vendor struct {
	Name               string `json:"name"`
	Category           string `json:"category"`
	StarRating         int    `json:"star_rating,omitempty"`
	ContactEmail       string `json:"contact_email,omitempty"`
	ContactPhone       string `json:"contact_phone,omitempty"`
	BookingReference   string `json:"booking_reference,omitempty"`
	ConfirmationNumber string `json:"confirmation_number,omitempty"`
}

// Location places an item geographically.
type Location struct {
	City    string `json:"city"`
	Country string `json:"country"`
	Address string `json:"address,omitempty"`
}

// TimeRange bounds an item in time.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// AccommodationDetails describe a stay.
type AccommodationDetails struct {
	RoomType   string `json:"room_type,omitempty"`
	Nights     int    `json:"nights"`
	BoardBasis string `json:"board_basis,omitempty"`
}

// TransportDetails describe a transfer or journey leg.
type TransportDetails struct {
	Mode          string `json:"mode"`
	DepartureFrom string `json:"departure_from"`
	ArrivalTo     string `json:"arrival_to"`
	TravelClass   string `json:"travel_class,omitempty"`
}

// ActivityDetails describe an experience or excursion.
type ActivityDetails struct {
	Description   string  `json:"description"`
	DurationHours float64 `json:"duration_hours,omitempty"`
	GroupSize     int     `json:"group_size,omitempty"`
}

// ItemDraft is an itinerary item before identifiers are assigned. This is
// the shape agents submit in structured submissions; the version store stamps
// IDs when a version is written.
type ItemDraft struct {
	Type          ItemType              `json:"type"`
	Title         string                `json:"title"`
	Location      Location              `json:"location"`
	TimeRange     TimeRange             `json:"time_range"`
	Vendor        Vendor                `json:"vendor"`
	Accommodation *AccommodationDetails `json:"accommodation,omitempty"`
	Transport     *TransportDetails     `json:"transport,omitempty"`
	Activity      *ActivityDetails      `json:"activity,omitempty"`
}

// Validate checks the draft's structural invariants, dispatching on the type
// discriminant.
func (d ItemDraft) Validate() error {
	if !validItemTypes[d.Type] {
		return dErrors.Newf(dErrors.CodeValidation, "unknown item type %q", string(d.Type))
	}
	if d.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "item title is required")
	}
	if d.Location.City == "" {
		return dErrors.New(dErrors.CodeValidation, "item location city is required")
	}
	if d.TimeRange.Start.IsZero() || d.TimeRange.End.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "item time range is required")
	}
	if d.TimeRange.End.Before(d.TimeRange.Start) {
		return dErrors.New(dErrors.CodeValidation, "item time range ends before it starts")
	}
	if d.Vendor.Name == "" || d.Vendor.Category == "" {
		return dErrors.New(dErrors.CodeValidation, "item vendor name and category are required")
	}

	switch d.Type {
	case ItemAccommodation:
		if d.Accommodation == nil {
			return dErrors.New(dErrors.CodeValidation, "accommodation item requires accommodation details")
		}
		if d.Accommodation.Nights <= 0 {
			return dErrors.New(dErrors.CodeValidation, "accommodation requires a positive night count")
		}
	case ItemTransport:
		if d.Transport == nil {
			return dErrors.New(dErrors.CodeValidation, "transport item requires transport details")
		}
		if d.Transport.Mode == "" || d.Transport.DepartureFrom == "" || d.Transport.ArrivalTo == "" {
			return dErrors.New(dErrors.CodeValidation, "transport requires mode, departure and arrival")
		}
	case ItemActivity:
		if d.Activity == nil || d.Activity.Description == "" {
			return dErrors.New(dErrors.CodeValidation, "activity item requires a description")
		}
	}
	return nil
}

// ItineraryItem is a draft with its identifier assigned.
type ItineraryItem struct {
	ID uuid.UUID `json:"id"`
	ItemDraft
}

// ItineraryVersion is an immutable, numbered snapshot of itinerary items.
// Once written it is never mutated; new information produces a new version.
type ItineraryVersion struct {
	ItineraryID        id.ItineraryID  `json:"itinerary_id"`
	VersionNumber      int             `json:"version_number"`
	SourceSubmissionID id.SubmissionID `json:"source_submission_id"`
	Items              []ItineraryItem `json:"items"`
	CreatedAt          time.Time       `json:"created_at"`
}

// NewVersionItems stamps IDs onto drafts after validating each one.
func NewVersionItems(drafts []ItemDraft) ([]ItineraryItem, error) {
	if len(drafts) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "a version requires at least one item")
	}
	items := make([]ItineraryItem, 0, len(drafts))
	for i, d := range drafts {
		if err := d.Validate(); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("item %d is invalid", i))
		}
		items = append(items, ItineraryItem{ID: uuid.New(), ItemDraft: d})
	}
	return items, nil
}
