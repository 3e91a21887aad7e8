package model

import "time"

// Cinema is a theatre venue grouping one or more halls.  Each cinema
// belongs to one owner.  The struct corresponds to a row in the
// `cinemas` table.
type Cinema struct {
	ID        uint64    `json:"id"`
	OwnerID   uint64    `json:"owner_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
