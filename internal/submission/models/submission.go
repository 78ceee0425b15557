package models

import (
	"encoding/json"
	"strings"
	"time"

	id "wayfare/pkg/domain"
	dErrors "wayfare/pkg/domain-errors"
)

// Status is the processing lifecycle state of a submission.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusParsed     Status = "PARSED"
	StatusFailed     Status = "FAILED"
	StatusCompleted  Status = "COMPLETED"
)

// statusTransitions is the single source of truth for legal lifecycle moves.
// FAILED and COMPLETED are terminal.
var statusTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusParsed, StatusFailed},
	StatusParsed:     {StatusCompleted, StatusFailed},
	StatusFailed:     {},
	StatusCompleted:  {},
}

// ParseStatus validates external input into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := statusTransitions[st]; !ok {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown status %q", s)
	}
	return st, nil
}

// CanTransitionTo reports whether next is a legal move from s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	return len(statusTransitions[s]) == 0
}

// Submission is the aggregate root for an agent's trip proposal.
//
// Invariants:
//   - ContentHash is unique across all submissions (enforced by the store)
//   - OriginalContent is never mutated after creation (audit/legal requirement)
//   - Status changes only through the transition table above
//   - ResultingItineraryID is set exactly once, by the link operation, and
//     only together with the move to COMPLETED
type Submission struct {
	ID                   id.SubmissionID    `json:"id"`
	TravelRequestID      id.TravelRequestID `json:"travel_request_id"`
	AgentID              id.AgentID         `json:"agent_id"`
	TravelerID           id.TravelerID      `json:"traveler_id"`
	Content              Content            `json:"content"`
	OriginalContent      json.RawMessage    `json:"original_content"`
	Status               Status             `json:"status"`
	ContentHash          string             `json:"content_hash"`
	ResultingItineraryID *id.ItineraryID    `json:"resulting_itinerary_id,omitempty"`
	ErrorMessage         *string            `json:"error_message,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
	ProcessedAt          *time.Time         `json:"processed_at,omitempty"`
}

// NewSubmission validates content, computes the dedup hash, and constructs a
// PENDING submission. originalContent is stored verbatim; when empty, the
// content is re-encoded so the record always carries what was received.
func NewSubmission(
	submissionID id.SubmissionID,
	travelRequestID id.TravelRequestID,
	agentID id.AgentID,
	travelerID id.TravelerID,
	content Content,
	originalContent json.RawMessage,
	now time.Time,
) (*Submission, error) {
	if travelRequestID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "travel request id is required")
	}
	if agentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "agent id is required")
	}
	if travelerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "traveler id is required")
	}
	if err := content.Validate(); err != nil {
		return nil, err
	}

	hash, err := content.Hash()
	if err != nil {
		return nil, err
	}

	if len(originalContent) == 0 {
		originalContent, err = json.Marshal(content)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to preserve original content")
		}
	}

	return &Submission{
		ID:              submissionID,
		TravelRequestID: travelRequestID,
		AgentID:         agentID,
		TravelerID:      travelerID,
		Content:         content,
		OriginalContent: originalContent,
		Status:          StatusPending,
		ContentHash:     hash,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// CanTransition checks whether the requested transition is legal for this
// submission, including the FAILED-requires-message rule.
// Use with ApplyTransition in store Execute callbacks.
func (s *Submission) CanTransition(next Status, errorMessage string) error {
	if !s.Status.CanTransitionTo(next) {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "illegal transition %s -> %s", s.Status, next)
	}
	if next == StatusFailed && strings.TrimSpace(errorMessage) == "" {
		return dErrors.New(dErrors.CodeValidation, "moving to FAILED requires an error message")
	}
	if next == StatusCompleted {
		// COMPLETED is reachable only through the link operation.
		return dErrors.New(dErrors.CodeInvalidTransition, "COMPLETED is set by linking to an itinerary")
	}
	return nil
}

// ApplyTransition mutates status and the bookkeeping timestamps. Call
// CanTransition first; Execute callbacks pair the two under one lock.
func (s *Submission) ApplyTransition(next Status, errorMessage string, now time.Time) {
	s.Status = next
	s.UpdatedAt = now
	// The message describes a failure; it is only meaningful on FAILED.
	if next == StatusFailed {
		msg := errorMessage
		s.ErrorMessage = &msg
	}
	switch next {
	case StatusParsed, StatusFailed, StatusCompleted:
		t := now
		s.ProcessedAt = &t
	}
}

// CanLink checks whether the submission may be linked to an itinerary.
// Linking is the only path to COMPLETED and requires PARSED.
func (s *Submission) CanLink() error {
	if s.ResultingItineraryID != nil {
		return dErrors.New(dErrors.CodeInvalidTransition, "submission is already linked")
	}
	if !s.Status.CanTransitionTo(StatusCompleted) {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "illegal transition %s -> %s", s.Status, StatusCompleted)
	}
	return nil
}

// ApplyLink sets the itinerary link and moves to COMPLETED as one mutation so
// the two are never observable apart.
func (s *Submission) ApplyLink(itineraryID id.ItineraryID, now time.Time) {
	linked := itineraryID
	s.ResultingItineraryID = &linked
	s.Status = StatusCompleted
	s.UpdatedAt = now
	t := now
	s.ProcessedAt = &t
}
