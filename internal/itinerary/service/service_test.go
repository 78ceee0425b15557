package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfare/internal/audit"
	"wayfare/internal/events"
	"wayfare/internal/itinerary/models"
	"wayfare/internal/itinerary/store"
	id "wayfare/pkg/domain"
	dErrors "wayfare/pkg/domain-errors"
)

type recordingAuditor struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingAuditor) Emit(_ context.Context, event audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingAuditor) all() []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Event(nil), r.events...)
}

func newService(t *testing.T) (*Service, *recordingAuditor, *events.InMemoryPublisher) {
	t.Helper()
	auditor := &recordingAuditor{}
	bus := events.NewInMemoryPublisher()
	svc := NewService(store.NewInMemory(),
		WithLogger(slog.New(slog.DiscardHandler)),
		WithAuditEmitter(auditor),
		WithEventPublisher(bus),
	)
	return svc, auditor, bus
}

func drafts(title string) []models.ItemDraft {
	return []models.ItemDraft{{
		Type:      models.ItemAccommodation,
		Title:     title,
		Location:  models.Location{City: "Udaipur", Country: "India"},
		TimeRange: models.TimeRange{Start: time.Now(), End: time.Now().Add(72 * time.Hour)},
		Vendor: models.Vendor{
			Name:             "Taj Lake Palace",
			Category:         "heritage hotel",
			StarRating:       5,
			BookingReference: "TLP-88671",
		},
		Accommodation: &models.AccommodationDetails{RoomType: "Palace Room", Nights: 3},
	}}
}

func TestCreateVersion(t *testing.T) {
	t.Run("appends with sequential numbering and side effects", func(t *testing.T) {
		svc, auditor, bus := newService(t)
		ctx := context.Background()
		itineraryID := id.NewItineraryID()

		first, err := svc.CreateVersion(ctx, itineraryID, id.NewSubmissionID(), drafts("first stay"))
		require.NoError(t, err)
		assert.Equal(t, 1, first.VersionNumber)
		require.Len(t, first.Items, 1)
		assert.NotEqual(t, uuid.Nil, first.Items[0].ID, "item id assigned")

		second, err := svc.CreateVersion(ctx, itineraryID, id.NewSubmissionID(), drafts("revised stay"))
		require.NoError(t, err)
		assert.Equal(t, 2, second.VersionNumber)

		audited := auditor.all()
		require.Len(t, audited, 2)
		assert.Equal(t, audit.ActionVersionCreated, audited[0].Action)

		published := bus.ByTopic(events.TopicVersionCreated)
		require.Len(t, published, 2)
	})

	t.Run("rejects empty drafts", func(t *testing.T) {
		svc, auditor, _ := newService(t)
		_, err := svc.CreateVersion(context.Background(), id.NewItineraryID(), id.NewSubmissionID(), nil)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Empty(t, auditor.all())
	})

	t.Run("rejects invalid draft", func(t *testing.T) {
		svc, _, _ := newService(t)
		bad := drafts("missing details")
		bad[0].Accommodation = nil

		_, err := svc.CreateVersion(context.Background(), id.NewItineraryID(), id.NewSubmissionID(), bad)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("requires ids", func(t *testing.T) {
		svc, _, _ := newService(t)
		_, err := svc.CreateVersion(context.Background(), id.ItineraryID{}, id.NewSubmissionID(), drafts("x"))
		require.Error(t, err)
		_, err = svc.CreateVersion(context.Background(), id.NewItineraryID(), id.SubmissionID{}, drafts("x"))
		require.Error(t, err)
	})
}

func TestReads(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	itineraryID := id.NewItineraryID()

	_, err := svc.CreateVersion(ctx, itineraryID, id.NewSubmissionID(), drafts("v1"))
	require.NoError(t, err)
	_, err = svc.CreateVersion(ctx, itineraryID, id.NewSubmissionID(), drafts("v2"))
	require.NoError(t, err)

	t.Run("specific version", func(t *testing.T) {
		v, err := svc.GetVersion(ctx, itineraryID, 1)
		require.NoError(t, err)
		assert.Equal(t, "v1", v.Items[0].Title)
	})

	t.Run("latest", func(t *testing.T) {
		v, err := svc.LatestVersion(ctx, itineraryID)
		require.NoError(t, err)
		assert.Equal(t, 2, v.VersionNumber)
	})

	t.Run("list", func(t *testing.T) {
		versions, err := svc.ListVersions(ctx, itineraryID)
		require.NoError(t, err)
		assert.Len(t, versions, 2)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := svc.GetVersion(ctx, itineraryID, 9)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

		_, err = svc.LatestVersion(ctx, id.NewItineraryID())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("invalid version number", func(t *testing.T) {
		_, err := svc.GetVersion(ctx, itineraryID, 0)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
