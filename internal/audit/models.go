package audit

import "time"

// Action names recorded per mutation.
const (
	ActionSubmissionCreated       = "submission.created"
	ActionSubmissionStatusChanged = "submission.status_changed"
	ActionSubmissionLinked        = "submission.linked"
	ActionVersionCreated          = "itinerary.version_created"
	ActionDisclosureRevealed      = "disclosure.revealed"
	ActionDisclosureObfuscated    = "disclosure.obfuscated"
)

// FieldChange records a single before/after value on the audited entity.
type FieldChange struct {
	Field string `json:"field"`
	From  string `json:"from,omitempty"`
	To    string `json:"to,omitempty"`
}

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp     time.Time
	Action        string
	EntityType    string
	EntityID      string
	ActorID       string
	ActorRole     string
	FieldChanges  []FieldChange
	CorrelationID string
}
