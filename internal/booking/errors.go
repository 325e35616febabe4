package booking

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidPurchase flags bad purchase parameters before any external
	// call. Safe to retry after correcting input.
	ErrInvalidPurchase = errors.New("invalid purchase parameters")

	// ErrPaymentDeclined is terminal for the transaction: the purchaser must
	// start a new payment attempt.
	ErrPaymentDeclined = errors.New("payment declined")

	// ErrBookingDataMissing means the charge succeeded but the purchase
	// intent was lost or incomplete. Requires support intervention, never a
	// payment retry.
	ErrBookingDataMissing = errors.New("booking data missing after successful payment")

	// ErrPersistenceConflict means session requests were written but the
	// enrollment append failed. Requires manual reconciliation.
	ErrPersistenceConflict = errors.New("booking partially persisted")

	ErrEnrollmentNotFound = errors.New("course enrollment not found")
	ErrEnrollmentExists   = errors.New("course enrollment already exists")
)

// GatewayError carries the payment gateway's own message list verbatim.
type GatewayError struct {
	Messages []string
}

func (e *GatewayError) Error() string {
	if len(e.Messages) == 0 {
		return "payment gateway error"
	}
	return fmt.Sprintf("payment gateway error: %s", strings.Join(e.Messages, ", "))
}
