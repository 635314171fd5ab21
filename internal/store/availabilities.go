package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AvailabilityStatus string

const (
	AvailabilityAvailable AvailabilityStatus = "AVAILABLE"
	AvailabilityBooked    AvailabilityStatus = "BOOKED"
)

// Availability is a bookable time window advertised by a venue.
type Availability struct {
	ID        int64              `json:"id"`
	VenueID   int64              `json:"venue_id"`
	StartTime time.Time          `json:"start_time"`
	EndTime   time.Time          `json:"end_time"`
	Status    AvailabilityStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

type AvailabilitiesStore struct {
	db *pgxpool.Pool
}

// Create inserts a new AVAILABLE slot. Creations for one venue serialize on
// a transaction-scoped advisory lock before the overlap check runs: locking
// existing rows is not enough, because two concurrent inserts would each see
// zero conflicting rows and both commit.
func (s *AvailabilitiesStore) Create(ctx context.Context, a *Availability) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, a.VenueID); err != nil {
		return err
	}

	// Half-open intervals: [start, end) conflicts iff a.start < b.end AND b.start < a.end.
	var conflict int
	err = tx.QueryRow(ctx, `
		SELECT 1 FROM availabilities
		WHERE venue_id = $1
		  AND status IN ('AVAILABLE', 'BOOKED')
		  AND start_time < $3
		  AND end_time > $2
		LIMIT 1`,
		a.VenueID, a.StartTime, a.EndTime,
	).Scan(&conflict)
	if err == nil {
		return ErrOverlap
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO availabilities (venue_id, start_time, end_time, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		a.VenueID, a.StartTime, a.EndTime, AvailabilityAvailable,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return err
	}
	a.Status = AvailabilityAvailable

	return tx.Commit(ctx)
}

func (s *AvailabilitiesStore) GetByID(ctx context.Context, id int64) (*Availability, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var a Availability
	err := s.db.QueryRow(ctx, `
		SELECT id, venue_id, start_time, end_time, status, created_at, updated_at
		FROM availabilities
		WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.VenueID, &a.StartTime, &a.EndTime, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Delete removes a slot, but only while it is still AVAILABLE. A BOOKED slot
// is immutable until its booking is resolved.
func (s *AvailabilitiesStore) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := s.db.Exec(ctx, `
		DELETE FROM availabilities
		WHERE id = $1 AND status = 'AVAILABLE'`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either the slot is gone or it is booked; look again to tell which.
		if _, err := s.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

func (s *AvailabilitiesStore) ListAvailable(ctx context.Context, venueID int64, asOf time.Time) ([]Availability, error) {
	return s.list(ctx, `
		SELECT id, venue_id, start_time, end_time, status, created_at, updated_at
		FROM availabilities
		WHERE venue_id = $1 AND status = 'AVAILABLE' AND start_time >= $2
		ORDER BY start_time`,
		venueID, asOf)
}

func (s *AvailabilitiesStore) ListAll(ctx context.Context, venueID int64) ([]Availability, error) {
	return s.list(ctx, `
		SELECT id, venue_id, start_time, end_time, status, created_at, updated_at
		FROM availabilities
		WHERE venue_id = $1
		ORDER BY start_time`,
		venueID)
}

func (s *AvailabilitiesStore) list(ctx context.Context, query string, args ...any) ([]Availability, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Availability
	for rows.Next() {
		var a Availability
		if err := rows.Scan(&a.ID, &a.VenueID, &a.StartTime, &a.EndTime, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
