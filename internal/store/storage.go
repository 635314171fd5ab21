package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrConflict          = errors.New("resource conflict")
	ErrOverlap           = errors.New("availability slot overlaps an existing slot")
	ErrSlotUnavailable   = errors.New("availability slot is not available")
	QueryTimeoutDuration = time.Second * 5
)

type Storage struct {
	Availabilities interface {
		Create(context.Context, *Availability) error
		GetByID(context.Context, int64) (*Availability, error)
		Delete(context.Context, int64) error
		ListAvailable(ctx context.Context, venueID int64, asOf time.Time) ([]Availability, error)
		ListAll(ctx context.Context, venueID int64) ([]Availability, error)
	}
	Bookings interface {
		Create(context.Context, *Booking) error
		SetOrderID(ctx context.Context, bookingID int64, orderID string) error
		Confirm(ctx context.Context, bookingID int64, paymentID, confirmationCode string) error
		CancelAndRelease(ctx context.Context, bookingID int64, paymentStatus string) error
		GetByID(context.Context, int64) (*Booking, error)
		GetByOrderID(context.Context, string) (*Booking, error)
		ListByCustomer(ctx context.Context, customerID int64) ([]Booking, error)
		ListByVenue(ctx context.Context, venueID int64) ([]Booking, error)
		ExpireStalePending(ctx context.Context, olderThan time.Duration) (int64, error)
	}
	Venues interface {
		GetByID(context.Context, int64) (*Venue, error)
	}
}

// NewStorage wires the concrete Postgres stores. Availabilities and bookings
// run on the pgx pool because the claim/release paths need pgx transactions;
// the venues read side stays on database/sql.
func NewStorage(pool *pgxpool.Pool, db *sql.DB) Storage {
	return Storage{
		Availabilities: &AvailabilitiesStore{pool},
		Bookings:       &BookingsStore{pool},
		Venues:         &VenuesStore{db},
	}
}
