// Package payment integrates the external checkout gateway. The gateway
// is the sole source of truth for "paid": bookings are only approved
// after a successful session status query, never on a client claim.
package payment

import (
	"context"
	"errors"
)

// Session statuses as reported by the gateway.
const (
	StatusUnpaid  = "unpaid"
	StatusPaid    = "paid"
	StatusExpired = "expired"
)

var ErrSessionNotFound = errors.New("payment session not found")

// SessionRequest describes the checkout session to open for a booking.
type SessionRequest struct {
	Reference   string // opaque booking reference, echoed back by the gateway
	AmountCents uint64
	Currency    string
	SuccessURL  string
	CancelURL   string
}

// Session is a checkout session as the gateway reports it.
type Session struct {
	ID          string
	URL         string // hosted checkout page the customer is sent to
	Reference   string
	AmountCents uint64
	Status      string
}

// Gateway creates hosted checkout sessions and reports their status.
type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
}
