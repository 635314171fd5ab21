// Package availability owns the lifecycle of a venue's bookable time slots:
// creation with overlap protection, deletion while unbooked, and the two
// listing projections.
package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"venuebook/internal/authz"
	"venuebook/internal/store"
)

var (
	ErrForbidden    = errors.New("actor may not manage this venue's slots")
	ErrInvalidRange = errors.New("start time must be before end time")
	ErrPastStart    = errors.New("start time must be in the future")
)

type SlotStore interface {
	Create(context.Context, *store.Availability) error
	GetByID(context.Context, int64) (*store.Availability, error)
	Delete(context.Context, int64) error
	ListAvailable(ctx context.Context, venueID int64, asOf time.Time) ([]store.Availability, error)
	ListAll(ctx context.Context, venueID int64) ([]store.Availability, error)
}

type VenueStore interface {
	GetByID(context.Context, int64) (*store.Venue, error)
}

type Service struct {
	slots  SlotStore
	venues VenueStore
	logger *zap.SugaredLogger
}

func NewService(slots SlotStore, venues VenueStore, logger *zap.SugaredLogger) *Service {
	return &Service{
		slots:  slots,
		venues: venues,
		logger: logger,
	}
}

// Create publishes a new AVAILABLE slot for the venue. Validation and
// authorization run before anything is written; the overlap rule itself is
// enforced by the store inside the insert transaction.
func (s *Service) Create(ctx context.Context, venueID int64, start, end time.Time, actor authz.Actor) (*store.Availability, error) {
	venue, err := s.venues.GetByID(ctx, venueID)
	if err != nil {
		return nil, fmt.Errorf("resolving venue %d: %w", venueID, err)
	}

	if !authz.CanActOnVenue(actor, venue.OwnerID) {
		return nil, ErrForbidden
	}

	if !start.Before(end) {
		return nil, ErrInvalidRange
	}
	if !start.After(time.Now()) {
		return nil, ErrPastStart
	}

	slot := &store.Availability{
		VenueID:   venueID,
		StartTime: start,
		EndTime:   end,
	}
	if err := s.slots.Create(ctx, slot); err != nil {
		return nil, err
	}

	s.logger.Infow("availability created",
		"availability_id", slot.ID,
		"venue_id", venueID,
		"start", start,
		"end", end,
	)

	return slot, nil
}

// Delete removes a slot that is still AVAILABLE. Deleting a BOOKED slot is a
// conflict for every actor; the booking has to be resolved first.
func (s *Service) Delete(ctx context.Context, id int64, actor authz.Actor) error {
	slot, err := s.slots.GetByID(ctx, id)
	if err != nil {
		return err
	}

	venue, err := s.venues.GetByID(ctx, slot.VenueID)
	if err != nil {
		return fmt.Errorf("resolving venue %d: %w", slot.VenueID, err)
	}
	if !authz.CanActOnVenue(actor, venue.OwnerID) {
		return ErrForbidden
	}

	if slot.Status == store.AvailabilityBooked {
		return store.ErrConflict
	}

	// The store re-checks the status; a booking that raced in between still
	// turns into ErrConflict rather than a deleted booked slot.
	return s.slots.Delete(ctx, id)
}

// ListAvailable returns the venue's open slots starting at or after asOf,
// ascending by start time.
func (s *Service) ListAvailable(ctx context.Context, venueID int64, asOf time.Time) ([]store.Availability, error) {
	if _, err := s.venues.GetByID(ctx, venueID); err != nil {
		return nil, err
	}
	return s.slots.ListAvailable(ctx, venueID, asOf)
}

// ListAll returns every slot regardless of status, for owner/admin
// visibility.
func (s *Service) ListAll(ctx context.Context, venueID int64, actor authz.Actor) ([]store.Availability, error) {
	venue, err := s.venues.GetByID(ctx, venueID)
	if err != nil {
		return nil, err
	}
	if !authz.CanActOnVenue(actor, venue.OwnerID) {
		return nil, ErrForbidden
	}
	return s.slots.ListAll(ctx, venueID)
}
