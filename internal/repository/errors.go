package repository

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors shared across repositories. Handlers map these onto
// HTTP status codes, so everything above the SQL layer matches with
// errors.Is/errors.As instead of string comparison.
var (
	ErrCinemaNotFound    = errors.New("cinema not found")
	ErrHallNotFound      = errors.New("hall not found")
	ErrSeatNotFound      = errors.New("seat not found")
	ErrShowNotFound      = errors.New("show not found")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrForbidden         = errors.New("resource does not belong to caller")
	ErrConflict          = errors.New("conflicting resource state")
	ErrInvalidTransition = errors.New("invalid booking state transition")
	ErrNoChange          = errors.New("no rows changed")
)

// SeatUnavailableError reports which show seats blocked an all-or-nothing
// reservation. SeatIDs holds the ids that were not AVAILABLE at lock time.
type SeatUnavailableError struct {
	SeatIDs []uint64
}

func (e *SeatUnavailableError) Error() string {
	ids := make([]string, len(e.SeatIDs))
	for i, id := range e.SeatIDs {
		ids[i] = strconv.FormatUint(id, 10)
	}
	return fmt.Sprintf("seats unavailable: %s", strings.Join(ids, ", "))
}
