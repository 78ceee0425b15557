package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"wayfare/internal/submission/models"
	id "wayfare/pkg/domain"
	"wayfare/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists submissions in PostgreSQL. The unique index on
// content_hash makes the dedup check-and-insert atomic; Execute uses
// SELECT ... FOR UPDATE so validate and mutate happen under the row lock.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const submissionColumns = `
	id, travel_request_id, agent_id, traveler_id, content, original_content,
	status, content_hash, resulting_itinerary_id, error_message,
	created_at, updated_at, processed_at
`

func (s *PostgresStore) CreateIfContentNew(ctx context.Context, sub *models.Submission) error {
	content, err := json.Marshal(sub.Content)
	if err != nil {
		return fmt.Errorf("encode submission content: %w", err)
	}

	query := `
		INSERT INTO submissions (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = s.pool.Exec(ctx, query,
		uuid.UUID(sub.ID),
		uuid.UUID(sub.TravelRequestID),
		uuid.UUID(sub.AgentID),
		uuid.UUID(sub.TravelerID),
		content,
		[]byte(sub.OriginalContent),
		string(sub.Status),
		sub.ContentHash,
		nullableUUID((*uuid.UUID)(sub.ResultingItineraryID)),
		sub.ErrorMessage,
		sub.CreatedAt,
		sub.UpdatedAt,
		sub.ProcessedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrDuplicateHash
		}
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, submissionID id.SubmissionID) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	return s.scanOne(s.pool.QueryRow(ctx, query, uuid.UUID(submissionID)))
}

func (s *PostgresStore) FindByContentHash(ctx context.Context, hash string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE content_hash = $1`
	return s.scanOne(s.pool.QueryRow(ctx, query, hash))
}

func (s *PostgresStore) ListByTravelRequest(ctx context.Context, requestID id.TravelRequestID) ([]*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE travel_request_id = $1 ORDER BY created_at DESC`
	return s.list(ctx, query, uuid.UUID(requestID))
}

func (s *PostgresStore) ListByAgent(ctx context.Context, agentID id.AgentID) ([]*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE agent_id = $1 ORDER BY created_at DESC`
	return s.list(ctx, query, uuid.UUID(agentID))
}

// Execute loads the row FOR UPDATE, runs validate and mutate while the lock
// is held, and writes the mutable fields back in the same transaction.
// OriginalContent and content are deliberately not part of the UPDATE: they
// are immutable after creation.
func (s *PostgresStore) Execute(
	ctx context.Context,
	submissionID id.SubmissionID,
	validate func(*models.Submission) error,
	mutate func(*models.Submission),
) (*models.Submission, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1 FOR UPDATE`
	sub, err := s.scanOne(tx.QueryRow(ctx, query, uuid.UUID(submissionID)))
	if err != nil {
		return nil, err
	}

	if err := validate(sub); err != nil {
		return nil, err
	}
	mutate(sub)

	update := `
		UPDATE submissions
		SET status = $2, resulting_itinerary_id = $3, error_message = $4,
		    updated_at = $5, processed_at = $6
		WHERE id = $1
	`
	_, err = tx.Exec(ctx, update,
		uuid.UUID(sub.ID),
		string(sub.Status),
		nullableUUID((*uuid.UUID)(sub.ResultingItineraryID)),
		sub.ErrorMessage,
		sub.UpdatedAt,
		sub.ProcessedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update submission: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit submission update: %w", err)
	}
	return sub, nil
}

func (s *PostgresStore) list(ctx context.Context, query string, arg any) ([]*models.Submission, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var out []*models.Submission
	for rows.Next() {
		sub, err := s.scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanOne(row rowScanner) (*models.Submission, error) {
	var (
		sub         models.Submission
		subID       uuid.UUID
		requestID   uuid.UUID
		agentID     uuid.UUID
		travelerID  uuid.UUID
		content     []byte
		original    []byte
		status      string
		itineraryID *uuid.UUID
	)

	err := row.Scan(
		&subID,
		&requestID,
		&agentID,
		&travelerID,
		&content,
		&original,
		&status,
		&sub.ContentHash,
		&itineraryID,
		&sub.ErrorMessage,
		&sub.CreatedAt,
		&sub.UpdatedAt,
		&sub.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan submission: %w", err)
	}

	if err := json.Unmarshal(content, &sub.Content); err != nil {
		return nil, fmt.Errorf("decode submission content: %w", err)
	}
	sub.ID = id.SubmissionID(subID)
	sub.TravelRequestID = id.TravelRequestID(requestID)
	sub.AgentID = id.AgentID(agentID)
	sub.TravelerID = id.TravelerID(travelerID)
	sub.OriginalContent = original
	sub.Status = models.Status(status)
	if itineraryID != nil {
		linked := id.ItineraryID(*itineraryID)
		sub.ResultingItineraryID = &linked
	}
	return &sub, nil
}

func nullableUUID(u *uuid.UUID) any {
	if u == nil {
		return nil
	}
	return *u
}
