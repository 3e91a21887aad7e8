package model

import "time"

// Booking payment statuses.  APPROVED, REJECTED and CANCELLED are
// terminal: no further transition is permitted once reached.
const (
	BookingPending   = "PENDING"
	BookingApproved  = "APPROVED"
	BookingRejected  = "REJECTED"
	BookingCancelled = "CANCELLED"
)

// Booking is one customer's reservation attempt for a set of show
// seats on a single show.  It is created PENDING in the same
// transaction that locks its seats, and moves to APPROVED once the
// payment gateway reports the session as paid, or to CANCELLED /
// REJECTED on explicit cancellation or reaped lock expiry.
//
// Fields:
//  ID               – primary key identifier.
//  UserID           – customer who placed the booking.
//  ShowID           – show being booked.
//  Status           – PENDING, APPROVED, REJECTED or CANCELLED.
//  AmountCents      – sum of the seat prices captured at lock time.
//  SeatCount        – number of seats claimed by the booking.
//  PaymentRef       – gateway session id recorded at payment initiation.
//  ConfirmationCode – issued only when the booking is APPROVED.
//  BookedAt         – when the booking was created.
type Booking struct {
	ID               uint64    `json:"id"`
	UserID           uint64    `json:"user_id"`
	ShowID           uint64    `json:"show_id"`
	Status           string    `json:"status"`
	AmountCents      uint64    `json:"amount_cents"`
	SeatCount        uint32    `json:"seat_count"`
	PaymentRef       *string   `json:"payment_ref,omitempty"`
	ConfirmationCode *string   `json:"confirmation_code,omitempty"`
	BookedAt         time.Time `json:"booked_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// BookingSeat links a booking to one of the show seats it claims.
// The set is fixed when the booking is created and never changes.
type BookingSeat struct {
	ID         uint64 `json:"id"`
	BookingID  uint64 `json:"booking_id"`
	ShowSeatID uint64 `json:"show_seat_id"`
	PriceCents uint32 `json:"price_cents"`
}

// Terminal reports whether the booking status permits no further
// transitions.
func (b Booking) Terminal() bool {
	return b.Status == BookingApproved || b.Status == BookingRejected || b.Status == BookingCancelled
}

// CanTransition reports whether a booking in status from may move to
// status to under the lifecycle rules.  PENDING may move to any
// terminal status; terminal statuses accept nothing.
func CanTransition(from, to string) bool {
	if from != BookingPending {
		return false
	}
	switch to {
	case BookingApproved, BookingRejected, BookingCancelled:
		return true
	}
	return false
}
