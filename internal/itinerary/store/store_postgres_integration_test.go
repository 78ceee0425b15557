//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"wayfare/internal/itinerary/models"
	"wayfare/internal/itinerary/store"
	id "wayfare/pkg/domain"
	"wayfare/pkg/platform/sentinel"
	"wayfare/pkg/testutil/containers"
)

type PostgresVersionSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresVersionSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresVersionSuite))
}

func (s *PostgresVersionSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.Pool)
}

func (s *PostgresVersionSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "itinerary_versions"))
}

func (s *PostgresVersionSuite) draftVersion(itineraryID id.ItineraryID, title string) *models.ItineraryVersion {
	items, err := models.NewVersionItems([]models.ItemDraft{{
		Type:      models.ItemTransport,
		Title:     title,
		Location:  models.Location{City: "Delhi", Country: "India"},
		TimeRange: models.TimeRange{Start: time.Now().UTC(), End: time.Now().UTC().Add(2 * time.Hour)},
		Vendor:    models.Vendor{Name: "IndiGo", Category: "airline", BookingReference: "6E-4417"},
		Transport: &models.TransportDetails{Mode: "flight", DepartureFrom: "DEL", ArrivalTo: "UDR"},
	}})
	s.Require().NoError(err)
	return &models.ItineraryVersion{
		ItineraryID:        itineraryID,
		SourceSubmissionID: id.NewSubmissionID(),
		Items:              items,
		CreatedAt:          time.Now().UTC(),
	}
}

func (s *PostgresVersionSuite) TestAppendAndRead() {
	ctx := context.Background()
	itineraryID := id.NewItineraryID()

	first, err := s.store.AppendVersion(ctx, s.draftVersion(itineraryID, "outbound flight"))
	s.Require().NoError(err)
	s.Equal(1, first.VersionNumber)

	second, err := s.store.AppendVersion(ctx, s.draftVersion(itineraryID, "rebooked flight"))
	s.Require().NoError(err)
	s.Equal(2, second.VersionNumber)

	latest, err := s.store.FindLatest(ctx, itineraryID)
	s.Require().NoError(err)
	s.Equal(2, latest.VersionNumber)
	s.Equal("rebooked flight", latest.Items[0].Title)
	s.Equal("6E-4417", latest.Items[0].Vendor.BookingReference)

	v1, err := s.store.FindVersion(ctx, itineraryID, 1)
	s.Require().NoError(err)
	s.Equal("outbound flight", v1.Items[0].Title)

	all, err := s.store.ListVersions(ctx, itineraryID)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(1, all[0].VersionNumber)
}

func (s *PostgresVersionSuite) TestConcurrentAppendsAreDense() {
	ctx := context.Background()
	itineraryID := id.NewItineraryID()
	const goroutines = 10

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.AppendVersion(ctx, s.draftVersion(itineraryID, "racing append"))
			s.NoError(err)
		}()
	}
	wg.Wait()

	all, err := s.store.ListVersions(ctx, itineraryID)
	s.Require().NoError(err)
	s.Require().Len(all, goroutines)
	for i, v := range all {
		s.Equal(i+1, v.VersionNumber)
	}
}

func (s *PostgresVersionSuite) TestNotFound() {
	ctx := context.Background()
	_, err := s.store.FindLatest(ctx, id.NewItineraryID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindVersion(ctx, id.NewItineraryID(), 1)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
