package model

import "time"

// Hall is a single screening room inside a cinema.  Its seat grid is
// described by SeatRows and SeatCols; the actual seats are rows in the
// `seats` table generated when the hall is provisioned.
//
// Fields:
//  ID        – primary key identifier.
//  OwnerID   – user ID of the hall owner.
//  CinemaID  – containing cinema (nil when the hall is standalone).
//  Name      – unique hall name per owner.
//  SeatRows  – number of seating rows.
//  SeatCols  – number of seats per row.
//  IsActive  – whether shows may be scheduled in the hall.
type Hall struct {
	ID        uint64    `json:"id"`
	OwnerID   uint64    `json:"owner_id"`
	CinemaID  *uint64   `json:"cinema_id,omitempty"`
	Name      string    `json:"name"`
	SeatRows  uint32    `json:"seat_rows"`
	SeatCols  uint32    `json:"seat_cols"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
