package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "wayfare/pkg/domain"
	dErrors "wayfare/pkg/domain-errors"
)

func TestStatusTransitionTable(t *testing.T) {
	all := []Status{StatusPending, StatusProcessing, StatusParsed, StatusFailed, StatusCompleted}
	legal := map[Status]map[Status]bool{
		StatusPending:    {StatusProcessing: true},
		StatusProcessing: {StatusParsed: true, StatusFailed: true},
		StatusParsed:     {StatusCompleted: true, StatusFailed: true},
		StatusFailed:     {},
		StatusCompleted:  {},
	}

	for _, from := range all {
		for _, to := range all {
			got := from.CanTransitionTo(to)
			assert.Equal(t, legal[from][to], got, "%s -> %s", from, to)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
	assert.False(t, StatusParsed.IsTerminal())
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus(" processing ")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, st)

	_, err = ParseStatus("SHIPPED")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func newTestSubmission(t *testing.T, status Status) *Submission {
	t.Helper()
	sub, err := NewSubmission(
		id.NewSubmissionID(),
		id.TravelRequestID(mustUUID()),
		id.AgentID(mustUUID()),
		id.TravelerID(mustUUID()),
		Content{Source: SourceFreeText, FreeText: &FreeTextContent{Text: "three nights in Udaipur"}},
		nil,
		time.Now(),
	)
	require.NoError(t, err)
	sub.Status = status
	return sub
}

func TestCanTransitionRequiresErrorMessageForFailed(t *testing.T) {
	sub := newTestSubmission(t, StatusProcessing)

	err := sub.CanTransition(StatusFailed, "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	require.NoError(t, sub.CanTransition(StatusFailed, "parser crashed"))
}

func TestCanTransitionBlocksDirectCompleted(t *testing.T) {
	sub := newTestSubmission(t, StatusParsed)

	err := sub.CanTransition(StatusCompleted, "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func TestApplyTransitionStampsProcessedAt(t *testing.T) {
	now := time.Now()
	sub := newTestSubmission(t, StatusProcessing)
	require.Nil(t, sub.ProcessedAt)

	sub.ApplyTransition(StatusParsed, "", now)

	assert.Equal(t, StatusParsed, sub.Status)
	require.NotNil(t, sub.ProcessedAt)
	assert.Equal(t, now, *sub.ProcessedAt)
}

func TestApplyTransitionKeepsMessageForFailedOnly(t *testing.T) {
	now := time.Now()

	sub := newTestSubmission(t, StatusPending)
	sub.ApplyTransition(StatusProcessing, "noise from the caller", now)
	assert.Nil(t, sub.ErrorMessage)

	sub.ApplyTransition(StatusFailed, "parser crashed", now)
	require.NotNil(t, sub.ErrorMessage)
	assert.Equal(t, "parser crashed", *sub.ErrorMessage)
}

func TestLinkLifecycle(t *testing.T) {
	now := time.Now()
	itineraryID := id.NewItineraryID()

	t.Run("link requires PARSED", func(t *testing.T) {
		sub := newTestSubmission(t, StatusPending)
		err := sub.CanLink()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	t.Run("link sets itinerary and COMPLETED together", func(t *testing.T) {
		sub := newTestSubmission(t, StatusParsed)
		require.NoError(t, sub.CanLink())

		sub.ApplyLink(itineraryID, now)

		assert.Equal(t, StatusCompleted, sub.Status)
		require.NotNil(t, sub.ResultingItineraryID)
		assert.Equal(t, itineraryID, *sub.ResultingItineraryID)
		require.NotNil(t, sub.ProcessedAt)
	})

	t.Run("link is exactly-once", func(t *testing.T) {
		sub := newTestSubmission(t, StatusParsed)
		sub.ApplyLink(itineraryID, now)

		err := sub.CanLink()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

func TestNewSubmissionValidatesIDs(t *testing.T) {
	content := Content{Source: SourceFreeText, FreeText: &FreeTextContent{Text: "anything"}}

	_, err := NewSubmission(id.NewSubmissionID(), id.TravelRequestID{}, id.AgentID(mustUUID()), id.TravelerID(mustUUID()), content, nil, time.Now())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestNewSubmissionPreservesOriginalContent(t *testing.T) {
	raw := []byte(`{"source":"free_text","free_text":{"text":"verbatim   spacing"}}`)
	sub, err := NewSubmission(
		id.NewSubmissionID(),
		id.TravelRequestID(mustUUID()),
		id.AgentID(mustUUID()),
		id.TravelerID(mustUUID()),
		Content{Source: SourceFreeText, FreeText: &FreeTextContent{Text: "verbatim   spacing"}},
		raw,
		time.Now(),
	)
	require.NoError(t, err)
	assert.Equal(t, string(raw), string(sub.OriginalContent))
	assert.Equal(t, StatusPending, sub.Status)
	assert.NotEmpty(t, sub.ContentHash)
}
