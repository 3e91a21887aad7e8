package model

import "time"

// Show statuses.  A show accepts bookings only while SCHEDULED.
const (
	ShowScheduled = "SCHEDULED"
	ShowCancelled = "CANCELLED"
	ShowFinished  = "FINISHED"
)

// Show is a scheduled screening of a movie in a hall.  One show_seat
// row exists per hall seat for the lifetime of the show; the base
// price seeds those rows at scheduling time.
//
// Fields:
//  ID             – primary key identifier.
//  HallID         – hall where the screening takes place.
//  MovieTitle     – title of the movie being screened.
//  StartsAt       – when the show begins (UTC).
//  EndsAt         – when the show ends (UTC, after StartsAt).
//  BasePriceCents – price in cents applied to every seat at creation.
//  Status         – SCHEDULED, CANCELLED or FINISHED.
type Show struct {
	ID             uint64    `json:"id"`
	HallID         uint64    `json:"hall_id"`
	MovieTitle     string    `json:"movie_title"`
	StartsAt       time.Time `json:"starts_at"`
	EndsAt         time.Time `json:"ends_at"`
	BasePriceCents uint32    `json:"base_price_cents"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
