package payments

import (
	"context"
	"errors"
)

// ErrGatewayUnavailable covers transport failures, timeouts and provider-side
// errors while talking to the payment gateway. A signature mismatch is NOT an
// error; VerifySignature just returns false.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// Gateway is the contract the booking workflow consumes. The provider's own
// order and settlement machinery stays behind it.
type Gateway interface {
	// CreateOrder opens a payment order for the given amount (whole currency
	// units) tagged with the receipt reference, and returns the provider's
	// order id.
	CreateOrder(ctx context.Context, amount int64, receipt string) (string, error)

	// VerifySignature recomputes the keyed MAC over "orderID|paymentID" and
	// compares it against the supplied signature in constant time.
	VerifySignature(orderID, paymentID, signature string) bool
}
