// Package models holds the per-booking disclosure state machine and the
// traveler-facing rendering of itinerary versions.
package models

import (
	"time"

	id "wayfare/pkg/domain"
)

// State is the per-booking disclosure flag. While OBFUSCATED, traveler-facing
// views mask vendor identity; REVEALED passes everything through.
type State string

const (
	StateObfuscated State = "OBFUSCATED"
	StateRevealed   State = "REVEALED"
)

// SignalResult classifies the effect of applying a booking signal.
type SignalResult int

const (
	// SignalStale means the signal's sequence was not newer than the stored
	// one; it was dropped without touching state.
	SignalStale SignalResult = iota
	// SignalApplied means the sequence advanced but the state did not change.
	SignalApplied
	// SignalFlipped means the sequence advanced and the state changed.
	SignalFlipped
)

// Record tracks one booking's disclosure state. LastSequence is the causal
// ordering token of the newest signal applied; it, not receipt time, decides
// whether a signal is current.
type Record struct {
	BookingID    id.BookingID   `json:"booking_id"`
	ItineraryID  id.ItineraryID `json:"itinerary_id"`
	State        State          `json:"state"`
	LastSequence int64          `json:"last_sequence"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewRecord starts a booking OBFUSCATED with no signal applied yet.
func NewRecord(bookingID id.BookingID, itineraryID id.ItineraryID) *Record {
	return &Record{
		BookingID:   bookingID,
		ItineraryID: itineraryID,
		State:       StateObfuscated,
	}
}

// Apply is the idempotent reducer over booking signals. A sequence at or
// below LastSequence is stale (duplicate or out-of-order delivery) and is
// dropped, so capture, cancel, capture applied in any arrival order ends in
// the state of the highest sequence.
func (r *Record) Apply(target State, sequence int64, now time.Time) SignalResult {
	if sequence <= r.LastSequence {
		return SignalStale
	}
	r.LastSequence = sequence
	r.UpdatedAt = now
	if r.State == target {
		return SignalApplied
	}
	r.State = target
	return SignalFlipped
}
