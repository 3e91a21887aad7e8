package model

import "time"

// Seat statuses for a show.  The show_seat status column is the single
// source of truth for whether a seat can be booked; no other table is
// consulted to decide bookability.
const (
	SeatAvailable = "AVAILABLE"
	SeatLocked    = "LOCKED"
	SeatBooked    = "BOOKED"
)

// ShowSeat is the bookable unit: one physical seat scoped to one show.
// Rows are created in bulk when the show is scheduled, at the show's
// base price.  Price edits are permitted only while the seat is still
// AVAILABLE; a pending booking's amount is never recomputed from here.
//
// Invariant: LockExpiresAt is non-nil if and only if Status is LOCKED.
type ShowSeat struct {
	ID            uint64     `json:"id"`
	ShowID        uint64     `json:"show_id"`
	SeatID        uint64     `json:"seat_id"`
	Status        string     `json:"status"`
	PriceCents    uint32     `json:"price_cents"`
	LockExpiresAt *time.Time `json:"lock_expires_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// LockExpired reports whether the seat holds a lock that has outlived
// its expiration at the given instant.  Seats that are not LOCKED are
// never expired.
func (ss ShowSeat) LockExpired(now time.Time) bool {
	return ss.Status == SeatLocked && ss.LockExpiresAt != nil && ss.LockExpiresAt.Before(now)
}
