package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"wayfare/internal/submission/models"
	id "wayfare/pkg/domain"
	dErrors "wayfare/pkg/domain-errors"
	"wayfare/pkg/platform/sentinel"
)

type SubmissionStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *SubmissionStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestSubmissionStoreSuite(t *testing.T) {
	suite.Run(t, new(SubmissionStoreSuite))
}

func (s *SubmissionStoreSuite) newSubmission(text string) *models.Submission {
	sub, err := models.NewSubmission(
		id.NewSubmissionID(),
		id.TravelRequestID(uuid.New()),
		id.AgentID(uuid.New()),
		id.TravelerID(uuid.New()),
		models.Content{Source: models.SourceFreeText, FreeText: &models.FreeTextContent{Text: text}},
		nil,
		time.Now(),
	)
	s.Require().NoError(err)
	return sub
}

func (s *SubmissionStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds by id", func() {
		sub := s.newSubmission("four nights in Jaipur")
		s.Require().NoError(s.store.CreateIfContentNew(s.ctx, sub))

		found, err := s.store.FindByID(s.ctx, sub.ID)
		s.Require().NoError(err)
		s.Equal(sub.ContentHash, found.ContentHash)
		s.Equal(models.StatusPending, found.Status)
	})

	s.Run("returns ErrNotFound for unknown id", func() {
		_, err := s.store.FindByID(s.ctx, id.NewSubmissionID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("finds by content hash", func() {
		sub := s.newSubmission("a week in Kerala")
		s.Require().NoError(s.store.CreateIfContentNew(s.ctx, sub))

		found, err := s.store.FindByContentHash(s.ctx, sub.ContentHash)
		s.Require().NoError(err)
		s.Equal(sub.ID, found.ID)
	})
}

func (s *SubmissionStoreSuite) TestContentHashUniqueness() {
	s.Run("rejects duplicate hash", func() {
		first := s.newSubmission("identical content")
		second := s.newSubmission("identical content")

		s.Require().NoError(s.store.CreateIfContentNew(s.ctx, first))

		err := s.store.CreateIfContentNew(s.ctx, second)
		s.Require().ErrorIs(err, sentinel.ErrDuplicateHash)

		// the loser must not be findable
		_, err = s.store.FindByID(s.ctx, second.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("exactly one winner under concurrency", func() {
		const goroutines = 32
		var wg sync.WaitGroup
		errs := make(chan error, goroutines)

		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- s.store.CreateIfContentNew(s.ctx, s.newSubmission("racing content"))
			}()
		}
		wg.Wait()
		close(errs)

		var successes, duplicates int
		for err := range errs {
			switch {
			case err == nil:
				successes++
			default:
				s.Require().ErrorIs(err, sentinel.ErrDuplicateHash)
				duplicates++
			}
		}
		s.Equal(1, successes)
		s.Equal(goroutines-1, duplicates)
	})
}

func (s *SubmissionStoreSuite) TestLists() {
	requestID := id.TravelRequestID(uuid.New())
	agentID := id.AgentID(uuid.New())

	older := s.newSubmission("older proposal")
	older.TravelRequestID = requestID
	older.AgentID = agentID
	older.CreatedAt = time.Now().Add(-time.Hour)
	s.Require().NoError(s.store.CreateIfContentNew(s.ctx, older))

	newer := s.newSubmission("newer proposal")
	newer.TravelRequestID = requestID
	newer.AgentID = agentID
	s.Require().NoError(s.store.CreateIfContentNew(s.ctx, newer))

	unrelated := s.newSubmission("someone else's proposal")
	s.Require().NoError(s.store.CreateIfContentNew(s.ctx, unrelated))

	byRequest, err := s.store.ListByTravelRequest(s.ctx, requestID)
	s.Require().NoError(err)
	s.Require().Len(byRequest, 2)
	s.Equal(newer.ID, byRequest[0].ID, "newest first")

	byAgent, err := s.store.ListByAgent(s.ctx, agentID)
	s.Require().NoError(err)
	s.Len(byAgent, 2)
}

func (s *SubmissionStoreSuite) TestExecute() {
	s.Run("validate failure leaves stored state untouched", func() {
		sub := s.newSubmission("will not move")
		s.Require().NoError(s.store.CreateIfContentNew(s.ctx, sub))

		_, err := s.store.Execute(s.ctx, sub.ID,
			func(cur *models.Submission) error {
				return cur.CanTransition(models.StatusParsed, "")
			},
			func(cur *models.Submission) {
				cur.ApplyTransition(models.StatusParsed, "", time.Now())
			},
		)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))

		found, err := s.store.FindByID(s.ctx, sub.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, found.Status)
	})

	s.Run("mutation persists", func() {
		sub := s.newSubmission("will move")
		s.Require().NoError(s.store.CreateIfContentNew(s.ctx, sub))

		updated, err := s.store.Execute(s.ctx, sub.ID,
			func(cur *models.Submission) error {
				return cur.CanTransition(models.StatusProcessing, "")
			},
			func(cur *models.Submission) {
				cur.ApplyTransition(models.StatusProcessing, "", time.Now())
			},
		)
		s.Require().NoError(err)
		s.Equal(models.StatusProcessing, updated.Status)

		found, err := s.store.FindByID(s.ctx, sub.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusProcessing, found.Status)
	})

	s.Run("unknown id", func() {
		_, err := s.store.Execute(s.ctx, id.NewSubmissionID(),
			func(*models.Submission) error { return nil },
			func(*models.Submission) {},
		)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned submission is a copy", func() {
		sub := s.newSubmission("no aliasing")
		s.Require().NoError(s.store.CreateIfContentNew(s.ctx, sub))

		got, err := s.store.FindByID(s.ctx, sub.ID)
		s.Require().NoError(err)
		got.Status = models.StatusFailed

		again, err := s.store.FindByID(s.ctx, sub.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, again.Status)
	})
}
