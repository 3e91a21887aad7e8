package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cinebooker/cinebooker/internal/model"
)

// Store composes the repositories into the multi-table operations the
// booking lifecycle needs. Each method runs in a single transaction so
// seat status, booking status and seat claims always change together.
type Store struct {
	db        *sql.DB
	shows     *ShowRepo
	showSeats *ShowSeatRepo
	bookings  *BookingRepo
}

func NewStore(db *sql.DB, shows *ShowRepo, showSeats *ShowSeatRepo, bookings *BookingRepo) *Store {
	return &Store{db: db, shows: shows, showSeats: showSeats, bookings: bookings}
}

// SweepResult reports what one reaper pass changed.
type SweepResult struct {
	SeatsReleased     int `json:"seats_released"`
	BookingsCancelled int `json:"bookings_cancelled"`
}

// ReserveSeats locks the requested seats and creates the PENDING
// booking in one transaction. Either every seat is locked and the
// booking exists, or nothing changed at all.
func (s *Store) ReserveSeats(ctx context.Context, userID, showID uint64, seatIDs []uint64, expiresAt time.Time) (*model.Booking, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	var showStatus string
	err = tx.QueryRowContext(ctx, `SELECT status FROM shows WHERE id = ?`, showID).Scan(&showStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrShowNotFound
	}
	if err != nil {
		return nil, err
	}
	if showStatus != model.ShowScheduled {
		return nil, ErrConflict
	}

	prices, err := s.showSeats.LockTx(ctx, tx, showID, seatIDs, expiresAt)
	if err != nil {
		return nil, err
	}

	var amount uint64
	for _, p := range prices {
		amount += uint64(p)
	}
	booking := &model.Booking{
		UserID:      userID,
		ShowID:      showID,
		Status:      model.BookingPending,
		AmountCents: amount,
		SeatCount:   uint32(len(seatIDs)),
	}
	if err := s.bookings.CreateTx(ctx, tx, booking); err != nil {
		return nil, err
	}
	if err := s.bookings.AddSeatsTx(ctx, tx, booking.ID, prices); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return booking, nil
}

// BookingForUser loads a booking and verifies it belongs to the caller.
func (s *Store) BookingForUser(ctx context.Context, bookingID, userID uint64) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, ErrForbidden
	}
	return b, nil
}

// LockExpiry returns the earliest lock expiry among the booking's
// still-locked seats, nil when no lock remains.
func (s *Store) LockExpiry(ctx context.Context, bookingID uint64) (*time.Time, error) {
	return s.bookings.MinLockExpiry(ctx, bookingID)
}

func (s *Store) SetPaymentRef(ctx context.Context, bookingID uint64, ref string) error {
	return s.bookings.SetPaymentRef(ctx, bookingID, ref)
}

// ApproveBooking promotes a PENDING booking and its LOCKED seats to
// their terminal booked state and stamps the confirmation code. Fails
// with ErrInvalidTransition when the booking or any of its seats has
// already left the expected state.
func (s *Store) ApproveBooking(ctx context.Context, bookingID uint64, code string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	booking, err := s.bookings.GetByIDForUpdateTx(ctx, tx, bookingID)
	if err != nil {
		return err
	}
	if booking.Status != model.BookingPending {
		return ErrInvalidTransition
	}

	seatIDs, err := s.bookings.SeatIDsTx(ctx, tx, bookingID)
	if err != nil {
		return err
	}
	if err := s.showSeats.ConfirmBookedTx(ctx, tx, seatIDs); err != nil {
		return err
	}
	if err := s.bookings.ApproveTx(ctx, tx, bookingID, code); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// CancelBooking moves a PENDING booking to the given terminal state and
// frees its seats. The booking row lock serializes this with confirm
// and sweep, so a booking can never lose its seats twice.
func (s *Store) CancelBooking(ctx context.Context, bookingID uint64, status string) error {
	if !model.CanTransition(model.BookingPending, status) {
		return ErrInvalidTransition
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	booking, err := s.bookings.GetByIDForUpdateTx(ctx, tx, bookingID)
	if err != nil {
		return err
	}
	if booking.Status != model.BookingPending {
		return ErrInvalidTransition
	}

	seatIDs, err := s.bookings.SeatIDsTx(ctx, tx, bookingID)
	if err != nil {
		return err
	}
	if err := s.showSeats.ReleaseTx(ctx, tx, seatIDs); err != nil {
		return err
	}
	if err := s.bookings.UpdateStatusTx(ctx, tx, bookingID, model.BookingPending, status); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// SweepExpired releases every seat whose lock has passed its expiry and
// cancels PENDING bookings left without a live seat. Safe to run
// concurrently with itself and with customer confirms and cancels: the
// sweep locks the affected booking rows before touching any seat row,
// the same order ApproveBooking and CancelBooking take, so concurrent
// writers queue instead of deadlocking, and a second pass finds nothing
// to do.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) (SweepResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return SweepResult{}, err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	bookingIDs, err := s.bookings.PendingWithExpiredSeatsTx(ctx, tx, now)
	if err != nil {
		return SweepResult{}, err
	}
	locked, err := s.bookings.LockPendingTx(ctx, tx, bookingIDs)
	if err != nil {
		return SweepResult{}, err
	}
	released, err := s.showSeats.ReleaseExpiredTx(ctx, tx, now)
	if err != nil {
		return SweepResult{}, err
	}
	cancelled, err := s.bookings.CancelOrphanedTx(ctx, tx, locked, model.BookingCancelled)
	if err != nil {
		return SweepResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return SweepResult{}, err
	}
	committed = true
	return SweepResult{SeatsReleased: int(released), BookingsCancelled: int(cancelled)}, nil
}

// ReleaseShowLocks force-releases every LOCKED seat of one show,
// expired or not, cancelling the pending bookings that held them. Locks
// booking rows first, like the sweep.
func (s *Store) ReleaseShowLocks(ctx context.Context, showID uint64) (SweepResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return SweepResult{}, err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	bookingIDs, err := s.bookings.PendingWithLockedSeatsTx(ctx, tx, showID)
	if err != nil {
		return SweepResult{}, err
	}
	locked, err := s.bookings.LockPendingTx(ctx, tx, bookingIDs)
	if err != nil {
		return SweepResult{}, err
	}
	released, err := s.showSeats.ReleaseByShowTx(ctx, tx, showID)
	if err != nil {
		return SweepResult{}, err
	}
	cancelled, err := s.bookings.CancelOrphanedTx(ctx, tx, locked, model.BookingCancelled)
	if err != nil {
		return SweepResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return SweepResult{}, err
	}
	committed = true
	return SweepResult{SeatsReleased: int(released), BookingsCancelled: int(cancelled)}, nil
}

// CreateShowWithSeats schedules a show and materializes its seat
// inventory from the hall layout in one transaction. Fails with
// ErrConflict when another scheduled show overlaps the time window.
func (s *Store) CreateShowWithSeats(ctx context.Context, show *model.Show, seatIDs []uint64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	overlap, err := s.shows.HasOverlapTx(ctx, tx, show.HallID, show.StartsAt, show.EndsAt)
	if err != nil {
		return err
	}
	if overlap {
		return ErrConflict
	}
	if err := s.shows.CreateTx(ctx, tx, show); err != nil {
		return err
	}
	if err := s.showSeats.CreateBulkTx(ctx, tx, show.ID, seatIDs, show.BasePriceCents); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
