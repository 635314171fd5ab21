// Package booking drives the reservation → payment → confirmation state
// machine. The slot claim commits locally before the gateway is called, so a
// failed or forged payment never leaves a BOOKED slot without a live booking;
// every failure path runs the compensating release.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"venuebook/internal/authz"
	"venuebook/internal/mailer"
	"venuebook/internal/payments"
	"venuebook/internal/store"
)

var (
	ErrForbidden           = errors.New("actor may not act on this booking")
	ErrNotAvailable        = errors.New("slot is not available for booking")
	ErrPastSlot            = errors.New("cannot book a slot that has already started")
	ErrInvalidState        = errors.New("booking is already cancelled or completed")
	ErrPaymentInit         = errors.New("payment order creation failed")
	ErrPaymentVerification = errors.New("payment verification failed")
)

type BookingStore interface {
	Create(context.Context, *store.Booking) error
	SetOrderID(ctx context.Context, bookingID int64, orderID string) error
	Confirm(ctx context.Context, bookingID int64, paymentID, confirmationCode string) error
	CancelAndRelease(ctx context.Context, bookingID int64, paymentStatus string) error
	GetByID(context.Context, int64) (*store.Booking, error)
	GetByOrderID(context.Context, string) (*store.Booking, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]store.Booking, error)
	ListByVenue(ctx context.Context, venueID int64) ([]store.Booking, error)
	ExpireStalePending(ctx context.Context, olderThan time.Duration) (int64, error)
}

type SlotStore interface {
	GetByID(context.Context, int64) (*store.Availability, error)
}

type VenueStore interface {
	GetByID(context.Context, int64) (*store.Venue, error)
}

type Service struct {
	bookings BookingStore
	slots    SlotStore
	venues   VenueStore
	gateway  payments.Gateway
	codes    *ConfirmationCodeGenerator
	mail     mailer.Client
	logger   *zap.SugaredLogger
}

func NewService(
	bookings BookingStore,
	slots SlotStore,
	venues VenueStore,
	gateway payments.Gateway,
	codes *ConfirmationCodeGenerator,
	mail mailer.Client,
	logger *zap.SugaredLogger,
) *Service {
	return &Service{
		bookings: bookings,
		slots:    slots,
		venues:   venues,
		gateway:  gateway,
		codes:    codes,
		mail:     mail,
		logger:   logger,
	}
}

// Create claims the slot, persists a PENDING booking and opens a payment
// order. The claim is atomic at the store; if the gateway call then fails,
// the claim is compensated (slot released, booking cancelled) before the
// error surfaces.
func (s *Service) Create(ctx context.Context, availabilityID, customerID int64) (*store.Booking, error) {
	slot, err := s.slots.GetByID(ctx, availabilityID)
	if err != nil {
		return nil, fmt.Errorf("resolving availability %d: %w", availabilityID, err)
	}

	if slot.Status != store.AvailabilityAvailable {
		return nil, ErrNotAvailable
	}
	if !slot.StartTime.After(time.Now()) {
		return nil, ErrPastSlot
	}

	venue, err := s.venues.GetByID(ctx, slot.VenueID)
	if err != nil {
		return nil, fmt.Errorf("resolving venue %d: %w", slot.VenueID, err)
	}

	// Amount derives from the slot's own interval, fixed at claim time.
	total := venue.PricePerHour * ceilHours(slot.EndTime.Sub(slot.StartTime))

	b := &store.Booking{
		CustomerID:     customerID,
		VenueID:        slot.VenueID,
		AvailabilityID: slot.ID,
		StartTime:      slot.StartTime,
		EndTime:        slot.EndTime,
		TotalAmount:    total,
	}

	if err := s.bookings.Create(ctx, b); err != nil {
		if errors.Is(err, store.ErrSlotUnavailable) {
			// A concurrent claim won the race.
			return nil, ErrNotAvailable
		}
		return nil, err
	}

	orderID, err := s.gateway.CreateOrder(ctx, total, fmt.Sprintf("booking_%d", b.ID))
	if err != nil {
		s.compensate(ctx, b.ID, "INIT_FAILED")
		return nil, fmt.Errorf("%w: %v", ErrPaymentInit, err)
	}

	if err := s.bookings.SetOrderID(ctx, b.ID, orderID); err != nil {
		s.compensate(ctx, b.ID, "INIT_FAILED")
		return nil, fmt.Errorf("%w: recording order id: %v", ErrPaymentInit, err)
	}
	b.OrderID = orderID

	s.logger.Infow("booking created",
		"booking_id", b.ID,
		"availability_id", slot.ID,
		"order_id", orderID,
		"total_amount", total,
	)

	return b, nil
}

// ConfirmPayment handles the gateway callback. A valid signature confirms the
// booking; an invalid one cancels it, releases the slot and reports
// ErrPaymentVerification. The booking record stays behind for audit.
func (s *Service) ConfirmPayment(ctx context.Context, orderID, paymentID, signature string) (*store.Booking, error) {
	b, err := s.bookings.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("resolving booking for order %s: %w", orderID, err)
	}

	if b.Status != store.BookingPending {
		return nil, ErrInvalidState
	}

	if !s.gateway.VerifySignature(orderID, paymentID, signature) {
		if err := s.bookings.CancelAndRelease(ctx, b.ID, "FAILED"); err != nil {
			s.logger.Errorw("releasing slot after failed verification",
				"booking_id", b.ID, "error", err)
		}
		return nil, ErrPaymentVerification
	}

	code := s.codes.Generate(b.ID)
	if err := s.bookings.Confirm(ctx, b.ID, paymentID, code); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrInvalidState
		}
		return nil, err
	}

	b.Status = store.BookingConfirmed
	b.PaymentID = paymentID
	b.PaymentStatus = "SUCCESS"
	b.ConfirmationCode = code

	s.logger.Infow("booking confirmed", "booking_id", b.ID, "payment_id", paymentID)

	s.notifyVenue(ctx, b)

	return b, nil
}

// Cancel releases a PENDING or CONFIRMED booking. Terminal bookings fail with
// ErrInvalidState and nothing changes.
func (s *Service) Cancel(ctx context.Context, bookingID int64, actor authz.Actor) error {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}

	if !authz.CanActOnBooking(actor, b.CustomerID) {
		return ErrForbidden
	}

	if b.Status.IsTerminal() {
		return ErrInvalidState
	}

	if err := s.bookings.CancelAndRelease(ctx, bookingID, ""); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return ErrInvalidState
		}
		return err
	}

	s.logger.Infow("booking cancelled", "booking_id", bookingID, "actor_id", actor.ID)
	return nil
}

func (s *Service) Get(ctx context.Context, bookingID int64) (*store.Booking, error) {
	return s.bookings.GetByID(ctx, bookingID)
}

func (s *Service) ListByCustomer(ctx context.Context, customerID int64) ([]store.Booking, error) {
	return s.bookings.ListByCustomer(ctx, customerID)
}

// ListByVenue is the venue-side view of bookings, including customer and
// payment fields, so it is restricted to the venue's owner and admins.
func (s *Service) ListByVenue(ctx context.Context, venueID int64, actor authz.Actor) ([]store.Booking, error) {
	venue, err := s.venues.GetByID(ctx, venueID)
	if err != nil {
		return nil, err
	}
	if !authz.CanActOnVenue(actor, venue.OwnerID) {
		return nil, ErrForbidden
	}
	return s.bookings.ListByVenue(ctx, venueID)
}

// ExpireStale cancels PENDING bookings whose payment never arrived within
// olderThan and releases their slots. Returns the number of slots released.
func (s *Service) ExpireStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	released, err := s.bookings.ExpireStalePending(ctx, olderThan)
	if err != nil {
		return 0, err
	}
	if released > 0 {
		s.logger.Infow("expired stale pending bookings", "released", released)
	}
	return released, nil
}

// compensate rolls a claimed slot back after a gateway failure. The booking
// stays behind as CANCELLED. A failure here is logged and swallowed: the
// caller's error is the gateway one, and the expiry sweep will pick the
// booking up.
func (s *Service) compensate(ctx context.Context, bookingID int64, paymentStatus string) {
	if err := s.bookings.CancelAndRelease(ctx, bookingID, paymentStatus); err != nil {
		s.logger.Errorw("compensating rollback failed",
			"booking_id", bookingID, "error", err)
	}
}

type confirmationMail struct {
	VenueName        string
	ConfirmationCode string
	StartTime        string
	EndTime          string
	TotalAmount      int64
}

// notifyVenue emails the venue's contact address. Best effort: delivery
// problems are logged, never surfaced to the payment flow.
func (s *Service) notifyVenue(ctx context.Context, b *store.Booking) {
	venue, err := s.venues.GetByID(ctx, b.VenueID)
	if err != nil {
		s.logger.Errorw("resolving venue for confirmation mail", "venue_id", b.VenueID, "error", err)
		return
	}
	if venue.ContactEmail == "" {
		return
	}

	data := confirmationMail{
		VenueName:        venue.Name,
		ConfirmationCode: b.ConfirmationCode,
		StartTime:        b.StartTime.Format(time.RFC1123),
		EndTime:          b.EndTime.Format(time.RFC1123),
		TotalAmount:      b.TotalAmount,
	}

	if _, err := s.mail.Send(mailer.BookingConfirmedTemplate, venue.Name, venue.ContactEmail, data); err != nil {
		s.logger.Errorw("sending confirmation mail", "booking_id", b.ID, "error", err)
	}
}

// ceilHours rounds a duration up to whole hours; any non-zero remainder
// counts as a full hour (1h01m -> 2).
func ceilHours(d time.Duration) int64 {
	hours := int64(d / time.Hour)
	if d%time.Hour > 0 {
		hours++
	}
	return hours
}
