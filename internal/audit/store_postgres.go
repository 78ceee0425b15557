package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostgresStore implements Store using the transactional outbox pattern.
// Events land in the outbox table; the platform relay publishes them to the
// audit pipeline, which is the source of truth downstream.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres creates a PostgreSQL audit store that writes to the outbox.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// outboxPayload is the JSON structure handed to the relay.
type outboxPayload struct {
	ID            string        `json:"id"`
	Timestamp     string        `json:"timestamp"`
	Action        string        `json:"action"`
	EntityType    string        `json:"entity_type"`
	EntityID      string        `json:"entity_id"`
	ActorID       string        `json:"actor_id,omitempty"`
	ActorRole     string        `json:"actor_role,omitempty"`
	FieldChanges  []FieldChange `json:"field_changes,omitempty"`
	CorrelationID string        `json:"correlation_id,omitempty"`
}

// Append writes an audit event to the outbox table.
func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	eventID := uuid.New()

	payload := outboxPayload{
		ID:            eventID.String(),
		Timestamp:     event.Timestamp.Format(time.RFC3339Nano),
		Action:        event.Action,
		EntityType:    event.EntityType,
		EntityID:      event.EntityID,
		ActorID:       event.ActorID,
		ActorRole:     event.ActorRole,
		FieldChanges:  event.FieldChanges,
		CorrelationID: event.CorrelationID,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO audit_outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.db.ExecContext(ctx, query,
		eventID,
		event.EntityType,
		event.EntityID,
		event.Action,
		payloadBytes,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert audit outbox entry: %w", err)
	}
	return nil
}

// ListByEntity returns events for a specific entity, newest first.
func (s *PostgresStore) ListByEntity(ctx context.Context, entityType, entityID string) ([]Event, error) {
	query := `
		SELECT payload
		FROM audit_outbox
		WHERE aggregate_type = $1 AND aggregate_id = $2
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		var p outboxPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode audit payload: %w", err)
		}
		ts, _ := time.Parse(time.RFC3339Nano, p.Timestamp)
		events = append(events, Event{
			Timestamp:     ts,
			Action:        p.Action,
			EntityType:    p.EntityType,
			EntityID:      p.EntityID,
			ActorID:       p.ActorID,
			ActorRole:     p.ActorRole,
			FieldChanges:  p.FieldChanges,
			CorrelationID: p.CorrelationID,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
