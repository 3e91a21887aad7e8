package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(BookingPending, BookingApproved))
	assert.True(t, CanTransition(BookingPending, BookingRejected))
	assert.True(t, CanTransition(BookingPending, BookingCancelled))

	// Terminal states never transition again.
	for _, from := range []string{BookingApproved, BookingRejected, BookingCancelled} {
		for _, to := range []string{BookingPending, BookingApproved, BookingRejected, BookingCancelled} {
			assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.False(t, CanTransition(BookingPending, BookingPending))
}

func TestBookingTerminal(t *testing.T) {
	assert.False(t, Booking{Status: BookingPending}.Terminal())
	assert.True(t, Booking{Status: BookingApproved}.Terminal())
	assert.True(t, Booking{Status: BookingRejected}.Terminal())
	assert.True(t, Booking{Status: BookingCancelled}.Terminal())
}

func TestShowSeatLockExpired(t *testing.T) {
	now := time.Now().UTC()

	assert.False(t, ShowSeat{Status: SeatLocked}.LockExpired(now), "no expiry set")
	past := now.Add(-time.Second)
	assert.True(t, ShowSeat{Status: SeatLocked, LockExpiresAt: &past}.LockExpired(now))
	future := now.Add(time.Minute)
	assert.False(t, ShowSeat{Status: SeatLocked, LockExpiresAt: &future}.LockExpired(now))
	assert.False(t, ShowSeat{Status: SeatAvailable, LockExpiresAt: &past}.LockExpired(now))
}

func TestRowLetter(t *testing.T) {
	assert.Equal(t, "A", RowLetter(1))
	assert.Equal(t, "Z", RowLetter(26))
	assert.Equal(t, "AA", RowLetter(27))
	assert.Equal(t, "AB", RowLetter(28))
}

func TestSeatLabel(t *testing.T) {
	s := Seat{RowLabel: "B", SeatNumber: 7}
	assert.Equal(t, "B7", s.Label())
}
