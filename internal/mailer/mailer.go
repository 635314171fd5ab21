package mailer

import "embed"

const (
	FromName                 = "VenueBook"
	maxRetries               = 3
	BookingConfirmedTemplate = "booking_confirmed.tmpl"
)

//go:embed "templates"
var FS embed.FS

type Client interface {
	Send(templateFile, username, email string, data any) (int, error)
}
