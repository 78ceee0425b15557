// Package store persists per-booking disclosure records.
package store

import (
	"context"
	"sync"

	"wayfare/internal/disclosure/models"
	id "wayfare/pkg/domain"
	"wayfare/pkg/platform/sentinel"
)

// InMemory keeps disclosure records under one mutex, so signal application
// for a booking is atomic.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.BookingID]*models.Record
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[id.BookingID]*models.Record)}
}

func cloneRecord(r *models.Record) *models.Record {
	cp := *r
	return &cp
}

func (s *InMemory) Find(ctx context.Context, bookingID id.BookingID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[bookingID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRecord(rec), nil
}

// Apply loads the booking's record (creating a fresh OBFUSCATED one if this
// is its first signal), runs the reducer under the lock, and persists the
// record unless the reducer dropped the signal as stale.
func (s *InMemory) Apply(
	ctx context.Context,
	bookingID id.BookingID,
	itineraryID id.ItineraryID,
	apply func(*models.Record) models.SignalResult,
) (*models.Record, models.SignalResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[bookingID]
	if !ok {
		rec = models.NewRecord(bookingID, itineraryID)
	}

	result := apply(rec)
	if result != models.SignalStale {
		s.records[bookingID] = rec
	}
	return cloneRecord(rec), result, nil
}
