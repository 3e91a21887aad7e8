package model

import (
	"fmt"
	"time"
)

// Seat is a physical seat in a hall, identified by its hall, row
// label and number within the row.  Seats are immutable once created
// and are only removed when no show references them.
type Seat struct {
	ID         uint64    `json:"id"`
	HallID     uint64    `json:"hall_id"`
	RowLabel   string    `json:"row_label"`
	SeatNumber uint32    `json:"seat_number"`
	CreatedAt  time.Time `json:"created_at"`
}

// Label returns the human-facing seat name, e.g. "A5".
func (s Seat) Label() string {
	return fmt.Sprintf("%s%d", s.RowLabel, s.SeatNumber)
}

// RowLetter converts a 1-based row index into the letter label used
// on printed tickets and the seat map (1 -> "A", 2 -> "B", ...).
// Rows beyond 26 wrap into double letters ("AA", "AB", ...).
func RowLetter(row uint32) string {
	if row == 0 {
		return ""
	}
	label := ""
	n := row
	for n > 0 {
		n--
		label = string(rune('A'+n%26)) + label
		n /= 26
	}
	return label
}
