package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wayfare/internal/disclosure/models"
	id "wayfare/pkg/domain"
	"wayfare/pkg/platform/sentinel"
)

// PostgresStore persists disclosure records. Apply runs the reducer under a
// row lock so concurrent signals for one booking have a deterministic winner.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const recordColumns = `booking_id, itinerary_id, state, last_sequence, updated_at`

func (s *PostgresStore) Find(ctx context.Context, bookingID id.BookingID) (*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM disclosure_states WHERE booking_id = $1`
	return scanRecord(s.pool.QueryRow(ctx, query, uuid.UUID(bookingID)))
}

func (s *PostgresStore) Apply(
	ctx context.Context,
	bookingID id.BookingID,
	itineraryID id.ItineraryID,
	apply func(*models.Record) models.SignalResult,
) (*models.Record, models.SignalResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, models.SignalStale, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Seed the row before locking it. FOR UPDATE on a missing row locks
	// nothing, so two concurrent first signals would each reduce against a
	// fresh record and the later commit would win regardless of sequence.
	// With the seed in place every signal serializes on the row lock.
	baseline := models.NewRecord(bookingID, itineraryID)
	seed := `
		INSERT INTO disclosure_states (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (booking_id) DO NOTHING
	`
	_, err = tx.Exec(ctx, seed,
		uuid.UUID(baseline.BookingID),
		uuid.UUID(baseline.ItineraryID),
		string(baseline.State),
		baseline.LastSequence,
		baseline.UpdatedAt,
	)
	if err != nil {
		return nil, models.SignalStale, fmt.Errorf("seed disclosure record: %w", err)
	}

	query := `SELECT ` + recordColumns + ` FROM disclosure_states WHERE booking_id = $1 FOR UPDATE`
	rec, err := scanRecord(tx.QueryRow(ctx, query, uuid.UUID(bookingID)))
	if err != nil {
		return nil, models.SignalStale, err
	}

	result := apply(rec)
	if result == models.SignalStale {
		// Keep the seed row; a zero-sequence record renders OBFUSCATED, same
		// as no record at all.
		if err := tx.Commit(ctx); err != nil {
			return nil, models.SignalStale, fmt.Errorf("commit disclosure record: %w", err)
		}
		return rec, result, nil
	}

	update := `
		UPDATE disclosure_states
		SET state = $2, last_sequence = $3, updated_at = $4
		WHERE booking_id = $1
	`
	_, err = tx.Exec(ctx, update,
		uuid.UUID(rec.BookingID),
		string(rec.State),
		rec.LastSequence,
		rec.UpdatedAt,
	)
	if err != nil {
		return nil, models.SignalStale, fmt.Errorf("update disclosure record: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, models.SignalStale, fmt.Errorf("commit disclosure record: %w", err)
	}
	return rec, result, nil
}

func scanRecord(row pgx.Row) (*models.Record, error) {
	var (
		rec         models.Record
		bookingID   uuid.UUID
		itineraryID uuid.UUID
		state       string
	)
	err := row.Scan(&bookingID, &itineraryID, &state, &rec.LastSequence, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan disclosure record: %w", err)
	}
	rec.BookingID = id.BookingID(bookingID)
	rec.ItineraryID = id.ItineraryID(itineraryID)
	rec.State = models.State(state)
	return &rec, nil
}
