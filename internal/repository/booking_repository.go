package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cinebooker/cinebooker/internal/model"
)

// BookingRepo provides access to bookings and their seat claims.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

// BookingSummary is a booking joined with its show, as rendered in
// booking lists and detail views.
type BookingSummary struct {
	ID               uint64    `json:"id"`
	UserID           uint64    `json:"user_id"`
	ShowID           uint64    `json:"show_id"`
	MovieTitle       string    `json:"movie_title"`
	StartsAt         time.Time `json:"starts_at"`
	HallName         string    `json:"hall_name"`
	Status           string    `json:"status"`
	AmountCents      uint64    `json:"amount_cents"`
	SeatCount        uint32    `json:"seat_count"`
	ConfirmationCode *string   `json:"confirmation_code,omitempty"`
	BookedAt         time.Time `json:"booked_at"`
}

func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (user_id, show_id, status, amount_cents, seat_count)
		 VALUES (?, ?, ?, ?, ?)`,
		b.UserID, b.ShowID, b.Status, b.AmountCents, b.SeatCount,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return tx.QueryRowContext(ctx,
		`SELECT booked_at, updated_at FROM bookings WHERE id = ?`, b.ID,
	).Scan(&b.BookedAt, &b.UpdatedAt)
}

// AddSeatsTx records the booking's seat claims with the price captured
// at lock time. The claim set is immutable afterwards.
func (r *BookingRepo) AddSeatsTx(ctx context.Context, tx *sql.Tx, bookingID uint64, prices map[uint64]uint32) error {
	if len(prices) == 0 {
		return ErrNoChange
	}
	query := `INSERT INTO booking_seats (booking_id, show_seat_id, price_cents) VALUES `
	var args []interface{}
	first := true
	for showSeatID, price := range prices {
		if !first {
			query += ", "
		}
		first = false
		query += "(?, ?, ?)"
		args = append(args, bookingID, showSeatID, price)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func scanBooking(row *sql.Row) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.UserID, &b.ShowID, &b.Status, &b.AmountCents, &b.SeatCount,
		&b.PaymentRef, &b.ConfirmationCode, &b.BookedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

const bookingColumns = `id, user_id, show_id, status, amount_cents, seat_count,
	payment_ref, confirmation_code, booked_at, updated_at`

func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	return scanBooking(r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id,
	))
}

// GetByIDForUpdateTx loads a booking inside a transaction and locks its
// row, serializing confirm, cancel and sweep on the same booking.
func (r *BookingRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	return scanBooking(tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, id,
	))
}

// SeatIDsTx returns the show seat ids claimed by a booking.
func (r *BookingRepo) SeatIDsTx(ctx context.Context, tx *sql.Tx, bookingID uint64) ([]uint64, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT show_seat_id FROM booking_seats WHERE booking_id = ?`, bookingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// SeatLabels returns the human seat labels of a booking ordered by
// position, e.g. ["A5", "A6"].
func (r *BookingRepo) SeatLabels(ctx context.Context, bookingID uint64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT CONCAT(s.row_label, s.seat_number)
		 FROM booking_seats bs
		 JOIN show_seats ss ON ss.id = bs.show_seat_id
		 JOIN seats s ON s.id = ss.seat_id
		 WHERE bs.booking_id = ?
		 ORDER BY LENGTH(s.row_label), s.row_label, s.seat_number`, bookingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, err
		}
		out = append(out, label)
	}
	return out, rows.Err()
}

// UpdateStatusTx performs a guarded state transition. Zero affected
// rows means the booking was not in the expected state.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, from, to string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ? WHERE id = ? AND status = ?`, to, id, from,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// ApproveTx transitions a PENDING booking to APPROVED and stamps the
// confirmation code in the same statement.
func (r *BookingRepo) ApproveTx(ctx context.Context, tx *sql.Tx, id uint64, code string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, confirmation_code = ? WHERE id = ? AND status = ?`,
		model.BookingApproved, code, id, model.BookingPending,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (r *BookingRepo) SetPaymentRef(ctx context.Context, id uint64, ref string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET payment_ref = ? WHERE id = ?`, ref, id,
	)
	return err
}

// MinLockExpiry returns the earliest lock expiry among a booking's
// still-LOCKED seats, or nil when none of its seats hold a lock.
func (r *BookingRepo) MinLockExpiry(ctx context.Context, bookingID uint64) (*time.Time, error) {
	var expiry sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT MIN(ss.lock_expires_at)
		 FROM booking_seats bs
		 JOIN show_seats ss ON ss.id = bs.show_seat_id
		 WHERE bs.booking_id = ? AND ss.status = ?`,
		bookingID, model.SeatLocked,
	).Scan(&expiry)
	if err != nil {
		return nil, err
	}
	if !expiry.Valid {
		return nil, nil
	}
	return &expiry.Time, nil
}

const summaryQuery = `SELECT b.id, b.user_id, b.show_id, sh.movie_title, sh.starts_at, h.name,
		b.status, b.amount_cents, b.seat_count, b.confirmation_code, b.booked_at
	 FROM bookings b
	 JOIN shows sh ON sh.id = b.show_id
	 JOIN halls h ON h.id = sh.hall_id`

func (r *BookingRepo) scanSummaries(rows *sql.Rows) ([]BookingSummary, error) {
	defer rows.Close()
	var out []BookingSummary
	for rows.Next() {
		var s BookingSummary
		if err := rows.Scan(&s.ID, &s.UserID, &s.ShowID, &s.MovieTitle, &s.StartsAt, &s.HallName,
			&s.Status, &s.AmountCents, &s.SeatCount, &s.ConfirmationCode, &s.BookedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		summaryQuery+` WHERE b.user_id = ? ORDER BY b.booked_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	return r.scanSummaries(rows)
}

func (r *BookingRepo) ListByShow(ctx context.Context, showID uint64) ([]BookingSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		summaryQuery+` WHERE b.show_id = ? ORDER BY b.booked_at DESC`, showID,
	)
	if err != nil {
		return nil, err
	}
	return r.scanSummaries(rows)
}

// PendingWithExpiredSeatsTx returns ids of PENDING bookings holding at
// least one seat whose lock passed its expiry. Plain read: the sweep
// locks the rows with LockPendingTx before touching any seat.
func (r *BookingRepo) PendingWithExpiredSeatsTx(ctx context.Context, tx *sql.Tx, now time.Time) ([]uint64, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT DISTINCT bs.booking_id
		 FROM booking_seats bs
		 JOIN bookings b ON b.id = bs.booking_id
		 JOIN show_seats ss ON ss.id = bs.show_seat_id
		 WHERE b.status = ? AND ss.status = ?
		 AND ss.lock_expires_at IS NOT NULL AND ss.lock_expires_at < ?`,
		model.BookingPending, model.SeatLocked, now,
	)
	if err != nil {
		return nil, err
	}
	return scanIDs(rows)
}

// PendingWithLockedSeatsTx returns ids of PENDING bookings holding any
// LOCKED seat of the given show, expired or not.
func (r *BookingRepo) PendingWithLockedSeatsTx(ctx context.Context, tx *sql.Tx, showID uint64) ([]uint64, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT DISTINCT bs.booking_id
		 FROM booking_seats bs
		 JOIN bookings b ON b.id = bs.booking_id
		 JOIN show_seats ss ON ss.id = bs.show_seat_id
		 WHERE b.status = ? AND ss.status = ? AND ss.show_id = ?`,
		model.BookingPending, model.SeatLocked, showID,
	)
	if err != nil {
		return nil, err
	}
	return scanIDs(rows)
}

// LockPendingTx locks the given booking rows in id order and returns the
// ids still PENDING once the locks are held. Booking row locks are taken
// before any seat row lock, the same order confirm and cancel use.
func (r *BookingRepo) LockPendingTx(ctx context.Context, tx *sql.Tx, ids []uint64) ([]uint64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := []interface{}{model.BookingPending}
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM bookings
		 WHERE status = ? AND id IN (`+placeholders(len(ids))+`)
		 ORDER BY id FOR UPDATE`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	return scanIDs(rows)
}

// CancelOrphanedTx moves the given PENDING bookings to a terminal state
// when none of their seats is still LOCKED or BOOKED. Bookings that kept
// a live seat, or raced into a terminal state, are skipped.
func (r *BookingRepo) CancelOrphanedTx(ctx context.Context, tx *sql.Tx, ids []uint64, status string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []interface{}{status, model.BookingPending}
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, model.SeatLocked, model.SeatBooked)
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings b SET b.status = ?
		 WHERE b.status = ? AND b.id IN (`+placeholders(len(ids))+`)
		 AND NOT EXISTS (
			SELECT 1 FROM booking_seats bs
			JOIN show_seats ss ON ss.id = bs.show_seat_id
			WHERE bs.booking_id = b.id AND ss.status IN (?, ?)
		 )`,
		args...,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanIDs(rows *sql.Rows) ([]uint64, error) {
	defer rows.Close()
	var out []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
