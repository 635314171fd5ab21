package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"venuebook/internal/booking"
	"venuebook/internal/payments"
	"venuebook/internal/store"
)

type CreateBookingPayload struct {
	AvailabilityID int64 `json:"availability_id" validate:"required"`
}

type ConfirmPaymentPayload struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

// CreateBooking godoc
//
//	@Summary		Reserve a slot and open a payment order
//	@Tags			Booking
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateBookingPayload	true	"Slot to claim"
//	@Success		201		{object}	store.Booking
//	@Failure		409		{object}	error	"Slot already claimed"
//	@Failure		502		{object}	error	"Payment gateway unavailable"
//	@Security		ApiKeyAuth
//	@Router			/bookings [post]
func (app *application) createBookingHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateBookingPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	actor := getActorFromContext(r)

	b, err := app.bookings.Create(r.Context(), payload.AvailabilityID, actor.ID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		case errors.Is(err, booking.ErrNotAvailable):
			app.conflictResponse(w, r, err)
		case errors.Is(err, booking.ErrPastSlot):
			app.badRequestResponse(w, r, err)
		case errors.Is(err, booking.ErrPaymentInit), errors.Is(err, payments.ErrGatewayUnavailable):
			app.badGatewayResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, b); err != nil {
		app.internalServerError(w, r, err)
	}
}

// ConfirmPayment godoc
//
//	@Summary		Payment gateway confirmation callback
//	@Description	Verifies the gateway signature; a forged signature cancels the booking and releases the slot.
//	@Tags			Booking
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		ConfirmPaymentPayload	true	"Gateway callback fields"
//	@Success		200		{object}	store.Booking
//	@Failure		402		{object}	error	"Signature verification failed"
//	@Router			/bookings/confirm [post]
func (app *application) confirmPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var payload ConfirmPaymentPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	b, err := app.bookings.ConfirmPayment(r.Context(), payload.OrderID, payload.PaymentID, payload.Signature)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		case errors.Is(err, booking.ErrPaymentVerification):
			app.paymentRequiredResponse(w, r, err)
		case errors.Is(err, booking.ErrInvalidState):
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, b); err != nil {
		app.internalServerError(w, r, err)
	}
}

// CancelBooking godoc
//
//	@Summary	Cancel a booking and release its slot
//	@Tags		Booking
//	@Param		bookingID	path	int	true	"Booking ID"
//	@Success	204
//	@Failure	409	{object}	error	"Booking already terminal"
//	@Security	ApiKeyAuth
//	@Router		/bookings/{bookingID} [delete]
func (app *application) cancelBookingHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "bookingID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.bookings.Cancel(r.Context(), id, getActorFromContext(r)); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		case errors.Is(err, booking.ErrForbidden):
			app.forbiddenResponse(w, r)
		case errors.Is(err, booking.ErrInvalidState):
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (app *application) getBookingHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "bookingID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	b, err := app.bookings.Get(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, b); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) listMyBookingsHandler(w http.ResponseWriter, r *http.Request) {
	actor := getActorFromContext(r)

	bookings, err := app.bookings.ListByCustomer(r.Context(), actor.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if bookings == nil {
		bookings = []store.Booking{}
	}
	if err := app.jsonResponse(w, http.StatusOK, bookings); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) listVenueBookingsHandler(w http.ResponseWriter, r *http.Request) {
	venueID, err := strconv.ParseInt(chi.URLParam(r, "venueID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	bookings, err := app.bookings.ListByVenue(r.Context(), venueID, getActorFromContext(r))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		case errors.Is(err, booking.ErrForbidden):
			app.forbiddenResponse(w, r)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if bookings == nil {
		bookings = []store.Booking{}
	}
	if err := app.jsonResponse(w, http.StatusOK, bookings); err != nil {
		app.internalServerError(w, r, err)
	}
}
