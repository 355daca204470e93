// Package postgres implements the persistence contracts on PostgreSQL. Trips
// and document metadata are stored in their canonical JSON document form with
// a handful of columns extracted for indexing, and trip updates go through a
// version-checked compare-and-swap.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/TripAtlas/trip-atlas-backend/errors"
	"github.com/TripAtlas/trip-atlas-backend/logger"
	"github.com/TripAtlas/trip-atlas-backend/pkg/metrics"
	"github.com/TripAtlas/trip-atlas-backend/store"
	"github.com/TripAtlas/trip-atlas-backend/types"
)

const uniqueViolationCode = "23505"

// PGXQuerier is the slice of the pgx pool the stores need. pgxpool.Pool
// satisfies it in production and pgxmock.PgxPoolIface in tests.
type PGXQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Ensure pgTripStore implements store.TripStore.
var _ store.TripStore = (*pgTripStore)(nil)

type pgTripStore struct {
	db PGXQuerier
}

// NewTripStore creates a PostgreSQL trip store.
func NewTripStore(db PGXQuerier) store.TripStore {
	return &pgTripStore{db: db}
}

func tripDocument(trip *types.Trip) ([]byte, error) {
	doc, err := json.Marshal(trip.ToDocument())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ValidationError, "trip is not serializable")
	}
	return doc, nil
}

func decodeTrip(raw []byte) (*types.Trip, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apperrors.Wrap(err, apperrors.DatabaseError, "malformed trip document")
	}
	return types.TripFromDocument(doc)
}

// nullableDate renders a date column value, keeping NULL for unset dates.
func nullableDate(t interface{ IsZero() bool }) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// CreateTrip implements store.TripStore.
func (s *pgTripStore) CreateTrip(ctx context.Context, trip *types.Trip) error {
	if err := trip.Validate(); err != nil {
		return err
	}
	doc, err := tripDocument(trip)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `
        INSERT INTO trips (
            trip_id, traveler_id, status, origin_type, trip_confidence,
            start_date, updated_at, version, doc
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		trip.TripID,
		trip.Traveler.ID,
		string(trip.Status),
		string(trip.OriginType),
		trip.TripConfidence,
		nullableDate(trip.StartDate),
		trip.UpdatedAt,
		trip.Version,
		doc,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return apperrors.AlreadyExists("trip", trip.TripID)
		}
		return apperrors.NewDatabaseError(err)
	}

	logger.GetLogger().Debugw("Created trip",
		"tripId", trip.TripID,
		"travelerId", trip.Traveler.ID,
		"travelerEmail", logger.MaskEmail(trip.Traveler.Email))
	return nil
}

// GetTrip implements store.TripStore.
func (s *pgTripStore) GetTrip(ctx context.Context, tripID string) (*types.Trip, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT doc FROM trips WHERE trip_id = $1`, tripID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("trip", tripID)
		}
		return nil, apperrors.NewDatabaseError(err)
	}
	return decodeTrip(raw)
}

// UpdateTrip implements store.TripStore. The compare-and-swap happens in the
// UPDATE's WHERE clause, so a concurrent writer that commits between our read
// and our write still loses cleanly instead of being overwritten.
func (s *pgTripStore) UpdateTrip(ctx context.Context, tripID string, expectedVersion int, mutate func(*types.Trip) error) (*types.Trip, error) {
	current, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if current.Version != expectedVersion {
		metrics.VersionConflicts.Inc()
		return nil, apperrors.VersionConflict(tripID, expectedVersion, current.Version)
	}

	updated := current.Clone()
	if err := mutate(updated); err != nil {
		return nil, err
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}
	if updated.Version != expectedVersion+1 || updated.Version != len(updated.VersionHistory) {
		return nil, apperrors.ValidationFailed("version history out of step",
			"every update must record exactly one version entry")
	}

	doc, err := tripDocument(updated)
	if err != nil {
		return nil, err
	}

	tag, err := s.db.Exec(ctx, `
        UPDATE trips
        SET status = $1, origin_type = $2, trip_confidence = $3,
            start_date = $4, updated_at = $5, version = $6, doc = $7
        WHERE trip_id = $8 AND version = $9`,
		string(updated.Status),
		string(updated.OriginType),
		updated.TripConfidence,
		nullableDate(updated.StartDate),
		updated.UpdatedAt,
		updated.Version,
		doc,
		tripID,
		expectedVersion,
	)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	if tag.RowsAffected() == 0 {
		// Someone committed between our read and our write.
		metrics.VersionConflicts.Inc()
		logger.GetLogger().Warnw("Version conflict on trip update",
			"tripId", tripID, "expectedVersion", expectedVersion)
		actual := expectedVersion
		if latest, err := s.GetTrip(ctx, tripID); err == nil {
			actual = latest.Version
		}
		return nil, apperrors.VersionConflict(tripID, expectedVersion, actual)
	}

	return updated, nil
}

// DeleteTrip implements store.TripStore.
func (s *pgTripStore) DeleteTrip(ctx context.Context, tripID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM trips WHERE trip_id = $1`, tripID)
	if err != nil {
		return apperrors.NewDatabaseError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("trip", tripID)
	}
	return nil
}

// ListTripsByTraveler implements store.TripStore.
func (s *pgTripStore) ListTripsByTraveler(ctx context.Context, travelerID string, from, to time.Time) ([]*types.Trip, error) {
	return s.queryTrips(ctx, `
        SELECT doc FROM trips
        WHERE traveler_id = $1
          AND ($2::timestamptz IS NULL OR start_date >= $2)
          AND ($3::timestamptz IS NULL OR start_date <= $3)
        ORDER BY start_date DESC NULLS LAST`,
		travelerID, nullableDate(from), nullableDate(to))
}

// ListTripsByStatus implements store.TripStore.
func (s *pgTripStore) ListTripsByStatus(ctx context.Context, status types.TripStatus, updatedSince time.Time) ([]*types.Trip, error) {
	return s.queryTrips(ctx, `
        SELECT doc FROM trips
        WHERE status = $1
          AND ($2::timestamptz IS NULL OR updated_at >= $2)
        ORDER BY updated_at DESC`,
		string(status), nullableDate(updatedSince))
}

// FindMergeCandidates implements store.TripStore.
func (s *pgTripStore) FindMergeCandidates(ctx context.Context, travelerID string, threshold float64) ([]*types.Trip, error) {
	return s.queryTrips(ctx, `
        SELECT doc FROM trips
        WHERE origin_type = $1 AND trip_confidence < $2
          AND ($3::text = '' OR traveler_id = $3)
        ORDER BY trip_confidence ASC`,
		string(types.OriginDerived), threshold, travelerID)
}

func (s *pgTripStore) queryTrips(ctx context.Context, sql string, args ...any) ([]*types.Trip, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	defer rows.Close()

	var trips []*types.Trip
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, apperrors.NewDatabaseError(err)
		}
		trip, err := decodeTrip(raw)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return trips, nil
}
