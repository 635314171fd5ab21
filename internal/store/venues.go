package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Venue is the read side of the venue profile this engine depends on: who
// owns it, what an hour costs, and where to send booking notifications.
// Venue profile management itself lives outside this service.
type Venue struct {
	ID           int64     `json:"id"`
	OwnerID      int64     `json:"owner_id"`
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	PricePerHour int64     `json:"price_per_hour"`
	ContactEmail string    `json:"contact_email"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type VenuesStore struct {
	db *sql.DB
}

func (s *VenuesStore) GetByID(ctx context.Context, id int64) (*Venue, error) {
	query := `
		SELECT id, owner_id, name, address, price_per_hour, contact_email, created_at, updated_at
		FROM venues
		WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var v Venue
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.OwnerID, &v.Name, &v.Address, &v.PricePerHour, &v.ContactEmail, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}
