package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingCompleted BookingStatus = "COMPLETED"
)

// IsTerminal reports whether no further transition is permitted.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingCancelled || s == BookingCompleted
}

// Booking is a customer's claim on exactly one availability slot. Start and
// end are copied from the slot at claim time; the amount is never recomputed
// after that.
type Booking struct {
	ID               int64         `json:"id"`
	CustomerID       int64         `json:"customer_id"`
	VenueID          int64         `json:"venue_id"`
	AvailabilityID   int64         `json:"availability_id"`
	StartTime        time.Time     `json:"start_time"`
	EndTime          time.Time     `json:"end_time"`
	TotalAmount      int64         `json:"total_amount"`
	Status           BookingStatus `json:"status"`
	OrderID          string        `json:"order_id,omitempty"`
	PaymentID        string        `json:"payment_id,omitempty"`
	PaymentStatus    string        `json:"payment_status,omitempty"`
	ConfirmationCode string        `json:"confirmation_code,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

type BookingsStore struct {
	db *pgxpool.Pool
}

// Create claims the availability slot and persists the PENDING booking as one
// atomic unit. The claim is a conditional update: it only succeeds while the
// slot is still AVAILABLE, so of two concurrent claims exactly one wins and
// the loser gets ErrSlotUnavailable.
func (s *BookingsStore) Create(ctx context.Context, b *Booking) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE availabilities
		SET status = 'BOOKED', updated_at = now()
		WHERE id = $1 AND status = 'AVAILABLE'`,
		b.AvailabilityID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotUnavailable
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO bookings
			(customer_id, venue_id, availability_id, start_time, end_time, total_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		b.CustomerID, b.VenueID, b.AvailabilityID, b.StartTime, b.EndTime, b.TotalAmount, BookingPending,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return err
	}
	b.Status = BookingPending

	return tx.Commit(ctx)
}

func (s *BookingsStore) SetOrderID(ctx context.Context, bookingID int64, orderID string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET order_id = $2, updated_at = now()
		WHERE id = $1`,
		bookingID, orderID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Confirm records the verified payment and moves a PENDING booking to
// CONFIRMED. A booking in any other state is left untouched.
func (s *BookingsStore) Confirm(ctx context.Context, bookingID int64, paymentID, confirmationCode string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET status = 'CONFIRMED',
		    payment_id = $2,
		    payment_status = 'SUCCESS',
		    confirmation_code = $3,
		    updated_at = now()
		WHERE id = $1 AND status = 'PENDING'`,
		bookingID, paymentID, confirmationCode,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// CancelAndRelease is the compensating write for every failure and
// cancellation path: the booking moves to CANCELLED and its slot goes back to
// AVAILABLE, in one transaction. paymentStatus, when non-empty, records why
// (e.g. FAILED, INIT_FAILED, EXPIRED). Terminal bookings yield ErrConflict.
func (s *BookingsStore) CancelAndRelease(ctx context.Context, bookingID int64, paymentStatus string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var availabilityID int64
	err = tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = 'CANCELLED',
		    payment_status = CASE WHEN $2 <> '' THEN $2 ELSE payment_status END,
		    updated_at = now()
		WHERE id = $1 AND status IN ('PENDING', 'CONFIRMED')
		RETURNING availability_id`,
		bookingID, paymentStatus,
	).Scan(&availabilityID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrConflict
		}
		return err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE availabilities
		SET status = 'AVAILABLE', updated_at = now()
		WHERE id = $1`,
		availabilityID,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *BookingsStore) GetByID(ctx context.Context, id int64) (*Booking, error) {
	return s.get(ctx, `WHERE id = $1`, id)
}

func (s *BookingsStore) GetByOrderID(ctx context.Context, orderID string) (*Booking, error) {
	return s.get(ctx, `WHERE order_id = $1`, orderID)
}

func (s *BookingsStore) get(ctx context.Context, where string, arg any) (*Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var b Booking
	err := s.db.QueryRow(ctx, `
		SELECT id, customer_id, venue_id, availability_id, start_time, end_time,
		       total_amount, status, COALESCE(order_id, ''), COALESCE(payment_id, ''),
		       COALESCE(payment_status, ''), COALESCE(confirmation_code, ''),
		       created_at, updated_at
		FROM bookings `+where,
		arg,
	).Scan(
		&b.ID, &b.CustomerID, &b.VenueID, &b.AvailabilityID, &b.StartTime, &b.EndTime,
		&b.TotalAmount, &b.Status, &b.OrderID, &b.PaymentID,
		&b.PaymentStatus, &b.ConfirmationCode,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (s *BookingsStore) ListByCustomer(ctx context.Context, customerID int64) ([]Booking, error) {
	return s.list(ctx, `WHERE customer_id = $1`, customerID)
}

func (s *BookingsStore) ListByVenue(ctx context.Context, venueID int64) ([]Booking, error) {
	return s.list(ctx, `WHERE venue_id = $1`, venueID)
}

func (s *BookingsStore) list(ctx context.Context, where string, arg any) ([]Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT id, customer_id, venue_id, availability_id, start_time, end_time,
		       total_amount, status, COALESCE(order_id, ''), COALESCE(payment_id, ''),
		       COALESCE(payment_status, ''), COALESCE(confirmation_code, ''),
		       created_at, updated_at
		FROM bookings `+where+`
		ORDER BY created_at DESC`,
		arg,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(
			&b.ID, &b.CustomerID, &b.VenueID, &b.AvailabilityID, &b.StartTime, &b.EndTime,
			&b.TotalAmount, &b.Status, &b.OrderID, &b.PaymentID,
			&b.PaymentStatus, &b.ConfirmationCode,
			&b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ExpireStalePending cancels PENDING bookings created before the cutoff and
// releases their slots. One statement, so the sweep cannot leave a cancelled
// booking holding a BOOKED slot.
func (s *BookingsStore) ExpireStalePending(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	tag, err := s.db.Exec(ctx, `
		WITH stale AS (
			UPDATE bookings
			SET status = 'CANCELLED', payment_status = 'EXPIRED', updated_at = now()
			WHERE status = 'PENDING' AND created_at < $1
			RETURNING availability_id
		)
		UPDATE availabilities
		SET status = 'AVAILABLE', updated_at = now()
		WHERE id IN (SELECT availability_id FROM stale)`,
		cutoff,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
