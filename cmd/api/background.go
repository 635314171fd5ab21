package main

import (
	"context"
	"time"
)

// expirePendingBookings sweeps PENDING bookings whose payment never arrived:
// older than the configured TTL they are cancelled and their slots released.
func (app *application) expirePendingBookings() {
	go func() {
		ticker := time.NewTicker(app.config.booking.sweepInterval)
		defer ticker.Stop()

		sweep := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if _, err := app.bookings.ExpireStale(ctx, app.config.booking.pendingTTL); err != nil {
				app.logger.Errorf("Error expiring stale pending bookings: %v", err)
			}
		}

		// Run once immediately
		sweep()

		for range ticker.C {
			sweep()
		}
	}()
}
