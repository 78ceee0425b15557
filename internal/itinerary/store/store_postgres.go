package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wayfare/internal/itinerary/models"
	id "wayfare/pkg/domain"
	"wayfare/pkg/platform/sentinel"
)

// PostgresStore persists versions in PostgreSQL. Appends for one itinerary
// are serialized with a transaction-scoped advisory lock so MAX+1 numbering
// never produces gaps or collisions.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const versionColumns = `itinerary_id, version_number, source_submission_id, items, created_at`

func (s *PostgresStore) AppendVersion(ctx context.Context, version *models.ItineraryVersion) (*models.ItineraryVersion, error) {
	items, err := json.Marshal(version.Items)
	if err != nil {
		return nil, fmt.Errorf("encode version items: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// held until commit; other appends for this itinerary wait here
	_, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`,
		uuid.UUID(version.ItineraryID).String())
	if err != nil {
		return nil, fmt.Errorf("acquire itinerary lock: %w", err)
	}

	stored := *version
	err = tx.QueryRow(ctx, `
		INSERT INTO itinerary_versions (`+versionColumns+`)
		SELECT $1, COALESCE(MAX(version_number), 0) + 1, $2, $3, $4
		FROM itinerary_versions WHERE itinerary_id = $1
		RETURNING version_number
	`,
		uuid.UUID(version.ItineraryID),
		uuid.UUID(version.SourceSubmissionID),
		items,
		version.CreatedAt,
	).Scan(&stored.VersionNumber)
	if err != nil {
		return nil, fmt.Errorf("insert itinerary version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit itinerary version: %w", err)
	}
	return &stored, nil
}

func (s *PostgresStore) FindVersion(ctx context.Context, itineraryID id.ItineraryID, number int) (*models.ItineraryVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM itinerary_versions WHERE itinerary_id = $1 AND version_number = $2`
	return s.scanOne(s.pool.QueryRow(ctx, query, uuid.UUID(itineraryID), number))
}

func (s *PostgresStore) FindLatest(ctx context.Context, itineraryID id.ItineraryID) (*models.ItineraryVersion, error) {
	query := `
		SELECT ` + versionColumns + ` FROM itinerary_versions
		WHERE itinerary_id = $1 ORDER BY version_number DESC LIMIT 1
	`
	return s.scanOne(s.pool.QueryRow(ctx, query, uuid.UUID(itineraryID)))
}

func (s *PostgresStore) ListVersions(ctx context.Context, itineraryID id.ItineraryID) ([]*models.ItineraryVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM itinerary_versions WHERE itinerary_id = $1 ORDER BY version_number ASC`
	rows, err := s.pool.Query(ctx, query, uuid.UUID(itineraryID))
	if err != nil {
		return nil, fmt.Errorf("query itinerary versions: %w", err)
	}
	defer rows.Close()

	var out []*models.ItineraryVersion
	for rows.Next() {
		v, err := s.scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate itinerary versions: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanOne(row rowScanner) (*models.ItineraryVersion, error) {
	var (
		v            models.ItineraryVersion
		itineraryID  uuid.UUID
		submissionID uuid.UUID
		items        []byte
	)
	err := row.Scan(&itineraryID, &v.VersionNumber, &submissionID, &items, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan itinerary version: %w", err)
	}
	if err := json.Unmarshal(items, &v.Items); err != nil {
		return nil, fmt.Errorf("decode version items: %w", err)
	}
	v.ItineraryID = id.ItineraryID(itineraryID)
	v.SourceSubmissionID = id.SubmissionID(submissionID)
	return &v, nil
}
