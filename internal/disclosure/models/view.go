package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	itinmodels "wayfare/internal/itinerary/models"
	id "wayfare/pkg/domain"
)

// FieldClass marks whether a vendor field may reach a traveler before the
// booking is paid.
type FieldClass string

const (
	// ClassRestricted fields identify the vendor and are masked while
	// OBFUSCATED.
	ClassRestricted FieldClass = "restricted"
	// ClassDescriptive fields describe the vendor without identifying it and
	// always pass through.
	ClassDescriptive FieldClass = "descriptive"
)

// VendorFieldClasses is the static classification of every vendor field,
// keyed by wire name. Classification is fixed at build time rather than
// filtered ad hoc per response, so a new vendor field fails the registry
// completeness test until it is classified.
var VendorFieldClasses = map[string]FieldClass{
	"name":                ClassRestricted,
	"contact_email":       ClassRestricted,
	"contact_phone":       ClassRestricted,
	"booking_reference":   ClassRestricted,
	"confirmation_number": ClassRestricted,
	"category":            ClassDescriptive,
	"star_rating":         ClassDescriptive,
}

// TravelerVendor is the vendor as shown to a traveler. While the booking is
// OBFUSCATED, Name holds a non-identifying descriptor and the restricted
// contact and reference fields are absent.
type TravelerVendor struct {
	Name               string `json:"name"`
	Category           string `json:"category"`
	StarRating         int    `json:"star_rating,omitempty"`
	ContactEmail       string `json:"contact_email,omitempty"`
	ContactPhone       string `json:"contact_phone,omitempty"`
	BookingReference   string `json:"booking_reference,omitempty"`
	ConfirmationNumber string `json:"confirmation_number,omitempty"`
	Disclosed          bool   `json:"disclosed"`
}

// TravelerItem mirrors an itinerary item with the vendor passed through the
// disclosure policy. Location, time and type-specific details are not
// identity-sensitive and always pass through.
type TravelerItem struct {
	ID            uuid.UUID                        `json:"id"`
	Type          itinmodels.ItemType              `json:"type"`
	Title         string                           `json:"title"`
	Location      itinmodels.Location              `json:"location"`
	TimeRange     itinmodels.TimeRange             `json:"time_range"`
	Vendor        TravelerVendor                   `json:"vendor"`
	Accommodation *itinmodels.AccommodationDetails `json:"accommodation,omitempty"`
	Transport     *itinmodels.TransportDetails     `json:"transport,omitempty"`
	Activity      *itinmodels.ActivityDetails      `json:"activity,omitempty"`
}

// TravelerView is one itinerary version rendered for a traveler.
type TravelerView struct {
	ItineraryID   id.ItineraryID `json:"itinerary_id"`
	VersionNumber int            `json:"version_number"`
	Disclosure    State          `json:"disclosure"`
	GeneratedAt   time.Time      `json:"generated_at"`
	Items         []TravelerItem `json:"items"`
}

// RenderForTraveler derives the traveler view from an immutable snapshot of
// (version content, disclosure state). It is pure: both inputs are resolved
// before the call, so the view can never mix a REVEALED field into an
// OBFUSCATED response, even while a signal lands concurrently.
func RenderForTraveler(version *itinmodels.ItineraryVersion, state State, now time.Time) TravelerView {
	view := TravelerView{
		ItineraryID:   version.ItineraryID,
		VersionNumber: version.VersionNumber,
		Disclosure:    state,
		GeneratedAt:   now,
		Items:         make([]TravelerItem, 0, len(version.Items)),
	}
	for _, item := range version.Items {
		view.Items = append(view.Items, TravelerItem{
			ID:            item.ID,
			Type:          item.Type,
			Title:         item.Title,
			Location:      item.Location,
			TimeRange:     item.TimeRange,
			Vendor:        renderVendor(item.Vendor, state),
			Accommodation: item.Accommodation,
			Transport:     item.Transport,
			Activity:      item.Activity,
		})
	}
	return view
}

func renderVendor(v itinmodels.Vendor, state State) TravelerVendor {
	if state == StateRevealed {
		return TravelerVendor{
			Name:               v.Name,
			Category:           v.Category,
			StarRating:         v.StarRating,
			ContactEmail:       v.ContactEmail,
			ContactPhone:       v.ContactPhone,
			BookingReference:   v.BookingReference,
			ConfirmationNumber: v.ConfirmationNumber,
			Disclosed:          true,
		}
	}
	// Restricted fields are replaced, not copied: only the descriptive
	// classification survives into the masked vendor.
	return TravelerVendor{
		Name:       maskedDescriptor(v),
		Category:   v.Category,
		StarRating: v.StarRating,
		Disclosed:  false,
	}
}

// maskedDescriptor builds a non-identifying vendor label from the
// descriptive fields only.
func maskedDescriptor(v itinmodels.Vendor) string {
	if v.StarRating > 0 {
		return fmt.Sprintf("%d-star %s", v.StarRating, v.Category)
	}
	if v.Category != "" {
		return v.Category
	}
	return "vendor to be confirmed"
}
