// Package authz answers "may this actor touch this slot or booking". The
// predicates are pure; every mutating operation checks the relevant one
// before it writes anything.
package authz

const (
	RoleAdmin      = "ADMIN"
	RoleVenueOwner = "VENUE_OWNER"
	RoleCustomer   = "CUSTOMER"
)

// Actor is the authenticated caller, as resolved from the access token.
type Actor struct {
	ID   int64
	Role string
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanActOnVenue reports whether the actor may manage a venue's slots:
// the venue's owner, or an administrator.
func CanActOnVenue(actor Actor, ownerID int64) bool {
	return actor.IsAdmin() || actor.ID == ownerID
}

// CanActOnBooking reports whether the actor may act on a booking:
// the customer who made it, or an administrator.
func CanActOnBooking(actor Actor, customerID int64) bool {
	return actor.IsAdmin() || actor.ID == customerID
}
