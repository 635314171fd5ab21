package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"venuebook/internal/availability"
	"venuebook/internal/store"
)

type CreateAvailabilityPayload struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

// CreateAvailability godoc
//
//	@Summary		Publish a bookable time slot for a venue
//	@Tags			Availability
//	@Accept			json
//	@Produce		json
//	@Param			venueID	path		int							true	"Venue ID"
//	@Param			payload	body		CreateAvailabilityPayload	true	"Slot window"
//	@Success		201		{object}	store.Availability
//	@Failure		400		{object}	error	"Invalid time range"
//	@Failure		403		{object}	error	"Not the venue owner"
//	@Failure		409		{object}	error	"Overlapping slot"
//	@Security		ApiKeyAuth
//	@Router			/venues/{venueID}/availability [post]
func (app *application) createAvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	venueID, err := strconv.ParseInt(chi.URLParam(r, "venueID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload CreateAvailabilityPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	slot, err := app.availability.Create(r.Context(), venueID, payload.StartTime, payload.EndTime, getActorFromContext(r))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		case errors.Is(err, availability.ErrForbidden):
			app.forbiddenResponse(w, r)
		case errors.Is(err, availability.ErrInvalidRange), errors.Is(err, availability.ErrPastStart):
			app.badRequestResponse(w, r, err)
		case errors.Is(err, store.ErrOverlap):
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, slot); err != nil {
		app.internalServerError(w, r, err)
	}
}

// ListAvailability godoc
//
//	@Summary		List a venue's slots
//	@Description	Open slots from now (or ?from=RFC3339); ?all=true returns every slot for the owner.
//	@Tags			Availability
//	@Produce		json
//	@Param			venueID	path		int		true	"Venue ID"
//	@Param			all		query		bool	false	"Include booked slots (owner/admin only)"
//	@Param			from	query		string	false	"Lower bound, RFC3339"
//	@Success		200		{array}		store.Availability
//	@Security		ApiKeyAuth
//	@Router			/venues/{venueID}/availability [get]
func (app *application) listAvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	venueID, err := strconv.ParseInt(chi.URLParam(r, "venueID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var slots []store.Availability

	if r.URL.Query().Get("all") == "true" {
		slots, err = app.availability.ListAll(r.Context(), venueID, getActorFromContext(r))
	} else {
		asOf := time.Now()
		if from := r.URL.Query().Get("from"); from != "" {
			asOf, err = time.Parse(time.RFC3339, from)
			if err != nil {
				app.badRequestResponse(w, r, err)
				return
			}
		}
		slots, err = app.availability.ListAvailable(r.Context(), venueID, asOf)
	}

	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		case errors.Is(err, availability.ErrForbidden):
			app.forbiddenResponse(w, r)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if slots == nil {
		slots = []store.Availability{}
	}
	if err := app.jsonResponse(w, http.StatusOK, slots); err != nil {
		app.internalServerError(w, r, err)
	}
}

// DeleteAvailability godoc
//
//	@Summary	Delete an unbooked slot
//	@Tags		Availability
//	@Param		availabilityID	path	int	true	"Availability ID"
//	@Success	204
//	@Failure	409	{object}	error	"Slot is booked"
//	@Security	ApiKeyAuth
//	@Router		/availability/{availabilityID} [delete]
func (app *application) deleteAvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "availabilityID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.availability.Delete(r.Context(), id, getActorFromContext(r)); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			app.notFoundResponse(w, r, err)
		case errors.Is(err, availability.ErrForbidden):
			app.forbiddenResponse(w, r)
		case errors.Is(err, store.ErrConflict):
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
