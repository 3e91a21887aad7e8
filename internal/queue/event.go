// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingApprovedEvent is published when a booking's payment is verified
// and the booking reaches its approved state. It carries enough context
// for downstream consumers to log, notify, or trigger analytics without
// querying the primary database.
type BookingApprovedEvent struct {
	BookingID        uint64   `json:"booking_id"`
	UserID           uint64   `json:"user_id"`
	ShowID           uint64   `json:"show_id"`
	HallName         string   `json:"hall_name"`
	MovieTitle       string   `json:"movie_title"`
	StartsAt         string   `json:"starts_at"`
	SeatLabels       []string `json:"seats"`
	AmountCents      uint64   `json:"amount_cents"`
	ConfirmationCode string   `json:"confirmation_code"`
	ApprovedAt       string   `json:"approved_at"`
}
