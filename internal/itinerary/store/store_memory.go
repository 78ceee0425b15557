// Package store persists itinerary versions. Versions are append-only: a
// store never updates or deletes a written version.
package store

import (
	"context"
	"sync"

	"wayfare/internal/itinerary/models"
	id "wayfare/pkg/domain"
	"wayfare/pkg/platform/sentinel"
)

// InMemory keeps versions per itinerary under one mutex, so version numbers
// are assigned without gaps even under concurrent appends.
type InMemory struct {
	mu       sync.RWMutex
	versions map[id.ItineraryID][]*models.ItineraryVersion
}

func NewInMemory() *InMemory {
	return &InMemory{versions: make(map[id.ItineraryID][]*models.ItineraryVersion)}
}

func cloneVersion(v *models.ItineraryVersion) *models.ItineraryVersion {
	cp := *v
	cp.Items = append([]models.ItineraryItem(nil), v.Items...)
	return &cp
}

// AppendVersion assigns the next version number for the itinerary and stores
// the version. The assigned version is returned.
func (s *InMemory) AppendVersion(ctx context.Context, version *models.ItineraryVersion) (*models.ItineraryVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneVersion(version)
	stored.VersionNumber = len(s.versions[version.ItineraryID]) + 1
	s.versions[version.ItineraryID] = append(s.versions[version.ItineraryID], stored)
	return cloneVersion(stored), nil
}

func (s *InMemory) FindVersion(ctx context.Context, itineraryID id.ItineraryID, number int) (*models.ItineraryVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.versions[itineraryID]
	if number < 1 || number > len(versions) {
		return nil, sentinel.ErrNotFound
	}
	return cloneVersion(versions[number-1]), nil
}

func (s *InMemory) FindLatest(ctx context.Context, itineraryID id.ItineraryID) (*models.ItineraryVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.versions[itineraryID]
	if len(versions) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return cloneVersion(versions[len(versions)-1]), nil
}

// ListVersions returns all versions for the itinerary in ascending order.
func (s *InMemory) ListVersions(ctx context.Context, itineraryID id.ItineraryID) ([]*models.ItineraryVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.versions[itineraryID]
	out := make([]*models.ItineraryVersion, 0, len(versions))
	for _, v := range versions {
		out = append(out, cloneVersion(v))
	}
	return out, nil
}
