// Package service implements the booking lifecycle on top of the
// storage and payment layers: reserve seats, open a checkout session,
// confirm payment, cancel, and reap expired locks.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cinebooker/cinebooker/internal/model"
	"github.com/cinebooker/cinebooker/internal/payment"
	"github.com/cinebooker/cinebooker/internal/repository"
)

var (
	// ErrNoSeats rejects a reservation with an empty seat list.
	ErrNoSeats = errors.New("no seats selected")
	// ErrSessionExpired means the seat lock ran out before payment; the
	// booking is cancelled as a side effect and the caller must restart.
	ErrSessionExpired = errors.New("reservation session expired")
	// ErrPaymentNotCompleted means the gateway has not confirmed the
	// charge yet; the booking stays pending.
	ErrPaymentNotCompleted = errors.New("payment not completed")
)

// Store is the transactional persistence surface the lifecycle needs.
// *repository.Store implements it against MySQL; tests substitute an
// in-memory implementation with the same check-and-set semantics.
type Store interface {
	ReserveSeats(ctx context.Context, userID, showID uint64, seatIDs []uint64, expiresAt time.Time) (*model.Booking, error)
	BookingForUser(ctx context.Context, bookingID, userID uint64) (*model.Booking, error)
	LockExpiry(ctx context.Context, bookingID uint64) (*time.Time, error)
	SetPaymentRef(ctx context.Context, bookingID uint64, ref string) error
	ApproveBooking(ctx context.Context, bookingID uint64, code string) error
	CancelBooking(ctx context.Context, bookingID uint64, status string) error
	SweepExpired(ctx context.Context, now time.Time) (repository.SweepResult, error)
}

// CheckoutURLs is where the gateway sends the customer after checkout.
// Both templates receive the booking id via %d.
type CheckoutURLs struct {
	SuccessURL string
	CancelURL  string
}

// BookingService drives a booking from seat selection to approval.
type BookingService struct {
	store    Store
	gateway  payment.Gateway
	lockTTL  time.Duration
	currency string
	urls     CheckoutURLs
	now      func() time.Time
}

func NewBookingService(store Store, gateway payment.Gateway, lockTTL time.Duration, currency string, urls CheckoutURLs) *BookingService {
	return &BookingService{
		store:    store,
		gateway:  gateway,
		lockTTL:  lockTTL,
		currency: currency,
		urls:     urls,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Reserve locks the requested seats and creates a pending booking in a
// single atomic step. Duplicate seat ids are collapsed first so the
// all-or-nothing lock counts each seat once.
func (s *BookingService) Reserve(ctx context.Context, userID, showID uint64, seatIDs []uint64) (*model.Booking, error) {
	seatIDs = dedupe(seatIDs)
	if len(seatIDs) == 0 {
		return nil, ErrNoSeats
	}
	expiresAt := s.now().Add(s.lockTTL)
	return s.store.ReserveSeats(ctx, userID, showID, seatIDs, expiresAt)
}

// InitiatePayment opens a checkout session for a pending booking. When
// the seat lock has already expired the booking is cancelled and the
// caller gets ErrSessionExpired.
func (s *BookingService) InitiatePayment(ctx context.Context, userID, bookingID uint64) (*payment.Session, error) {
	booking, err := s.store.BookingForUser(ctx, bookingID, userID)
	if err != nil {
		return nil, err
	}
	if booking.Status != model.BookingPending {
		return nil, repository.ErrInvalidTransition
	}

	expiry, err := s.store.LockExpiry(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if expiry == nil || !s.now().Before(*expiry) {
		if cerr := s.store.CancelBooking(ctx, bookingID, model.BookingCancelled); cerr != nil &&
			!errors.Is(cerr, repository.ErrInvalidTransition) {
			return nil, cerr
		}
		return nil, ErrSessionExpired
	}

	session, err := s.gateway.CreateSession(ctx, payment.SessionRequest{
		Reference:   fmt.Sprintf("booking-%d", bookingID),
		AmountCents: booking.AmountCents,
		Currency:    s.currency,
		SuccessURL:  fmt.Sprintf(s.urls.SuccessURL, bookingID),
		CancelURL:   fmt.Sprintf(s.urls.CancelURL, bookingID),
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.SetPaymentRef(ctx, bookingID, session.ID); err != nil {
		return nil, err
	}
	return session, nil
}

// ConfirmPayment queries the gateway for the session and, if paid,
// promotes the booking and its seats to their booked state. Safe to
// call repeatedly: an already approved booking returns its existing
// confirmation code with approvedNow = false.
func (s *BookingService) ConfirmPayment(ctx context.Context, userID, bookingID uint64, sessionID string) (booking *model.Booking, approvedNow bool, err error) {
	booking, err = s.store.BookingForUser(ctx, bookingID, userID)
	if err != nil {
		return nil, false, err
	}
	if booking.Status == model.BookingApproved {
		return booking, false, nil
	}
	if booking.Terminal() {
		return nil, false, repository.ErrInvalidTransition
	}

	if sessionID == "" && booking.PaymentRef != nil {
		sessionID = *booking.PaymentRef
	}
	// No checkout session was ever opened for this booking.
	if sessionID == "" {
		return nil, false, ErrPaymentNotCompleted
	}
	session, err := s.gateway.GetSession(ctx, sessionID)
	if errors.Is(err, payment.ErrSessionNotFound) {
		return nil, false, ErrPaymentNotCompleted
	}
	if err != nil {
		return nil, false, err
	}
	if session.Status != payment.StatusPaid {
		return nil, false, ErrPaymentNotCompleted
	}

	code := strings.ToUpper(uuid.NewString()[:8])
	if err := s.store.ApproveBooking(ctx, bookingID, code); err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			// Lost a race: either another confirm won, or the reaper
			// took the seats first.
			refreshed, rerr := s.store.BookingForUser(ctx, bookingID, userID)
			if rerr == nil && refreshed.Status == model.BookingApproved {
				return refreshed, false, nil
			}
			return nil, false, ErrSessionExpired
		}
		return nil, false, err
	}
	booking, err = s.store.BookingForUser(ctx, bookingID, userID)
	if err != nil {
		return nil, false, err
	}
	return booking, true, nil
}

// Cancel releases the seats of a pending booking back to available and
// marks the booking cancelled. Terminal bookings are rejected.
func (s *BookingService) Cancel(ctx context.Context, userID, bookingID uint64) error {
	if _, err := s.store.BookingForUser(ctx, bookingID, userID); err != nil {
		return err
	}
	return s.store.CancelBooking(ctx, bookingID, model.BookingCancelled)
}

// Sweep runs one reaper pass at the given instant.
func (s *BookingService) Sweep(ctx context.Context, now time.Time) (repository.SweepResult, error) {
	return s.store.SweepExpired(ctx, now)
}

func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
