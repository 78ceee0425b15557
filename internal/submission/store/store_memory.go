// Package store persists submissions. The in-memory implementation backs
// tests and local development; PostgresStore is the production path.
package store

import (
	"context"
	"sort"
	"sync"

	"wayfare/internal/submission/models"
	id "wayfare/pkg/domain"
	"wayfare/pkg/platform/sentinel"
)

// InMemory stores submissions guarded by one mutex. The dedup map mirrors the
// unique content-hash index in Postgres so the create-or-reject decision is
// atomic here too.
type InMemory struct {
	mu     sync.RWMutex
	byID   map[id.SubmissionID]*models.Submission
	byHash map[string]id.SubmissionID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:   make(map[id.SubmissionID]*models.Submission),
		byHash: make(map[string]id.SubmissionID),
	}
}

func clone(s *models.Submission) *models.Submission {
	cp := *s
	if s.ResultingItineraryID != nil {
		v := *s.ResultingItineraryID
		cp.ResultingItineraryID = &v
	}
	if s.ErrorMessage != nil {
		v := *s.ErrorMessage
		cp.ErrorMessage = &v
	}
	if s.ProcessedAt != nil {
		v := *s.ProcessedAt
		cp.ProcessedAt = &v
	}
	if s.OriginalContent != nil {
		cp.OriginalContent = append([]byte(nil), s.OriginalContent...)
	}
	return &cp
}

// CreateIfContentNew inserts the submission unless its content hash is
// already present, in which case sentinel.ErrDuplicateHash is returned.
func (s *InMemory) CreateIfContentNew(ctx context.Context, sub *models.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byHash[sub.ContentHash]; exists {
		return sentinel.ErrDuplicateHash
	}
	s.byID[sub.ID] = clone(sub)
	s.byHash[sub.ContentHash] = sub.ID
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, submissionID id.SubmissionID) (*models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.byID[submissionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(sub), nil
}

func (s *InMemory) FindByContentHash(ctx context.Context, hash string) (*models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subID, ok := s.byHash[hash]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.byID[subID]), nil
}

func (s *InMemory) ListByTravelRequest(ctx context.Context, requestID id.TravelRequestID) ([]*models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Submission
	for _, sub := range s.byID {
		if sub.TravelRequestID == requestID {
			out = append(out, clone(sub))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemory) ListByAgent(ctx context.Context, agentID id.AgentID) ([]*models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Submission
	for _, sub := range s.byID {
		if sub.AgentID == agentID {
			out = append(out, clone(sub))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// Execute atomically validates and mutates one submission while the lock is
// held, so concurrent transition attempts have a deterministic winner.
// Returns the mutated submission.
func (s *InMemory) Execute(
	ctx context.Context,
	submissionID id.SubmissionID,
	validate func(*models.Submission) error,
	mutate func(*models.Submission),
) (*models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.byID[submissionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(sub); err != nil {
		return nil, err
	}
	mutate(sub)
	return clone(sub), nil
}

func sortNewestFirst(subs []*models.Submission) {
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].CreatedAt.After(subs[j].CreatedAt)
	})
}
