package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"wayfare/internal/itinerary/models"
	id "wayfare/pkg/domain"
	"wayfare/pkg/platform/sentinel"
)

type VersionStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *VersionStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestVersionStoreSuite(t *testing.T) {
	suite.Run(t, new(VersionStoreSuite))
}

func draftVersion(itineraryID id.ItineraryID, title string) *models.ItineraryVersion {
	items, _ := models.NewVersionItems([]models.ItemDraft{{
		Type:      models.ItemActivity,
		Title:     title,
		Location:  models.Location{City: "Udaipur", Country: "India"},
		TimeRange: models.TimeRange{Start: time.Now(), End: time.Now().Add(3 * time.Hour)},
		Vendor:    models.Vendor{Name: "City Palace Tours", Category: "guided tour"},
		Activity:  &models.ActivityDetails{Description: "Palace walk"},
	}})
	return &models.ItineraryVersion{
		ItineraryID:        itineraryID,
		SourceSubmissionID: id.NewSubmissionID(),
		Items:              items,
		CreatedAt:          time.Now(),
	}
}

func (s *VersionStoreSuite) TestAppendAssignsSequentialNumbers() {
	itineraryID := id.NewItineraryID()

	first, err := s.store.AppendVersion(s.ctx, draftVersion(itineraryID, "first"))
	s.Require().NoError(err)
	s.Equal(1, first.VersionNumber)

	second, err := s.store.AppendVersion(s.ctx, draftVersion(itineraryID, "second"))
	s.Require().NoError(err)
	s.Equal(2, second.VersionNumber)

	// an unrelated itinerary starts at 1
	other, err := s.store.AppendVersion(s.ctx, draftVersion(id.NewItineraryID(), "elsewhere"))
	s.Require().NoError(err)
	s.Equal(1, other.VersionNumber)
}

func (s *VersionStoreSuite) TestConcurrentAppendsAreDense() {
	itineraryID := id.NewItineraryID()
	const goroutines = 25

	var wg sync.WaitGroup
	numbers := make(chan int, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.store.AppendVersion(s.ctx, draftVersion(itineraryID, "race"))
			s.NoError(err)
			numbers <- v.VersionNumber
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[int]bool)
	for n := range numbers {
		s.False(seen[n], "version number %d assigned twice", n)
		seen[n] = true
	}
	for n := 1; n <= goroutines; n++ {
		s.True(seen[n], "version number %d missing", n)
	}
}

func (s *VersionStoreSuite) TestLookups() {
	itineraryID := id.NewItineraryID()
	_, err := s.store.AppendVersion(s.ctx, draftVersion(itineraryID, "first"))
	s.Require().NoError(err)
	_, err = s.store.AppendVersion(s.ctx, draftVersion(itineraryID, "second"))
	s.Require().NoError(err)

	s.Run("specific version", func() {
		v, err := s.store.FindVersion(s.ctx, itineraryID, 1)
		s.Require().NoError(err)
		s.Equal("first", v.Items[0].Title)
	})

	s.Run("latest", func() {
		v, err := s.store.FindLatest(s.ctx, itineraryID)
		s.Require().NoError(err)
		s.Equal(2, v.VersionNumber)
		s.Equal("second", v.Items[0].Title)
	})

	s.Run("out of range", func() {
		_, err := s.store.FindVersion(s.ctx, itineraryID, 3)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.store.FindVersion(s.ctx, itineraryID, 0)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("unknown itinerary", func() {
		_, err := s.store.FindLatest(s.ctx, id.NewItineraryID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("list ascending", func() {
		versions, err := s.store.ListVersions(s.ctx, itineraryID)
		s.Require().NoError(err)
		s.Require().Len(versions, 2)
		s.Equal(1, versions[0].VersionNumber)
		s.Equal(2, versions[1].VersionNumber)
	})
}

func (s *VersionStoreSuite) TestStoredVersionIsImmutable() {
	itineraryID := id.NewItineraryID()
	_, err := s.store.AppendVersion(s.ctx, draftVersion(itineraryID, "original"))
	s.Require().NoError(err)

	got, err := s.store.FindLatest(s.ctx, itineraryID)
	s.Require().NoError(err)
	got.Items[0].Title = "tampered"

	again, err := s.store.FindLatest(s.ctx, itineraryID)
	s.Require().NoError(err)
	s.Equal("original", again.Items[0].Title)
}
