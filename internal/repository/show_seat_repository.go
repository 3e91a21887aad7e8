package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/cinebooker/cinebooker/internal/model"
)

// ShowSeatRepo manages per-show seat inventory. The status column on
// show_seats is the single source of truth for seat availability:
// every transition is a conditional UPDATE guarded by the current
// status, so concurrent writers can never double-sell a seat.
type ShowSeatRepo struct {
	db *sql.DB
}

func NewShowSeatRepo(db *sql.DB) *ShowSeatRepo {
	return &ShowSeatRepo{db: db}
}

// SeatMapEntry is one seat in the public seat map, joined with its
// physical position in the hall.
type SeatMapEntry struct {
	ShowSeatID    uint64     `json:"show_seat_id"`
	SeatID        uint64     `json:"seat_id"`
	RowLabel      string     `json:"row_label"`
	SeatNumber    uint32     `json:"seat_number"`
	Status        string     `json:"status"`
	PriceCents    uint32     `json:"price_cents"`
	LockExpiresAt *time.Time `json:"-"`
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// CreateBulkTx inserts one inventory row per physical seat when a show
// is scheduled. All seats start AVAILABLE at the show's base price.
func (r *ShowSeatRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, showID uint64, seatIDs []uint64, priceCents uint32) error {
	if len(seatIDs) == 0 {
		return ErrNoChange
	}
	var (
		sb   strings.Builder
		args []interface{}
	)
	sb.WriteString(`INSERT INTO show_seats (show_id, seat_id, status, price_cents) VALUES `)
	for i, seatID := range seatIDs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?)")
		args = append(args, showID, seatID, model.SeatAvailable, priceCents)
	}
	_, err := tx.ExecContext(ctx, sb.String(), args...)
	return err
}

// ListByShow returns the seat map ordered by row and seat number.
func (r *ShowSeatRepo) ListByShow(ctx context.Context, showID uint64) ([]SeatMapEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ss.id, ss.seat_id, s.row_label, s.seat_number, ss.status, ss.price_cents, ss.lock_expires_at
		 FROM show_seats ss
		 JOIN seats s ON s.id = ss.seat_id
		 WHERE ss.show_id = ?
		 ORDER BY LENGTH(s.row_label), s.row_label, s.seat_number`, showID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SeatMapEntry
	for rows.Next() {
		var e SeatMapEntry
		if err := rows.Scan(&e.ShowSeatID, &e.SeatID, &e.RowLabel, &e.SeatNumber, &e.Status, &e.PriceCents, &e.LockExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LockTx atomically flips the given show seats from AVAILABLE to LOCKED.
// The candidate rows are locked and inspected before the transition, so
// a failed attempt names exactly the seats that blocked it: missing from
// the show or no longer AVAILABLE. On success it returns the price
// captured per show seat id.
func (r *ShowSeatRepo) LockTx(ctx context.Context, tx *sql.Tx, showID uint64, seatIDs []uint64, expiresAt time.Time) (map[uint64]uint32, error) {
	if len(seatIDs) == 0 {
		return nil, ErrNoChange
	}
	status, prices, err := r.selectForLockTx(ctx, tx, showID, seatIDs)
	if err != nil {
		return nil, err
	}

	var blocked []uint64
	for _, id := range seatIDs {
		if st, ok := status[id]; !ok || st != model.SeatAvailable {
			blocked = append(blocked, id)
		}
	}
	if len(blocked) > 0 {
		return nil, &SeatUnavailableError{SeatIDs: blocked}
	}

	args := []interface{}{model.SeatLocked, expiresAt, showID, model.SeatAvailable}
	for _, id := range seatIDs {
		args = append(args, id)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE show_seats SET status = ?, lock_expires_at = ?
		 WHERE show_id = ? AND status = ? AND id IN (`+placeholders(len(seatIDs))+`)`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	// The rows are held FOR UPDATE since the select above, so the
	// guarded transition cannot fall short.
	if int(affected) != len(seatIDs) {
		return nil, ErrConflict
	}
	return prices, nil
}

// selectForLockTx locks the candidate rows and returns their current
// status and price. The rows are fully consumed before returning so the
// transaction can run further statements.
func (r *ShowSeatRepo) selectForLockTx(ctx context.Context, tx *sql.Tx, showID uint64, seatIDs []uint64) (map[uint64]string, map[uint64]uint32, error) {
	args := []interface{}{showID}
	for _, id := range seatIDs {
		args = append(args, id)
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT id, status, price_cents FROM show_seats
		 WHERE show_id = ? AND id IN (`+placeholders(len(seatIDs))+`)
		 FOR UPDATE`,
		args...,
	)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	status := make(map[uint64]string, len(seatIDs))
	prices := make(map[uint64]uint32, len(seatIDs))
	for rows.Next() {
		var (
			id    uint64
			st    string
			price uint32
		)
		if err := rows.Scan(&id, &st, &price); err != nil {
			return nil, nil, err
		}
		status[id] = st
		prices[id] = price
	}
	return status, prices, rows.Err()
}

// ReleaseTx returns seats to AVAILABLE and clears their lock expiry.
func (r *ShowSeatRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, seatIDs []uint64) error {
	if len(seatIDs) == 0 {
		return nil
	}
	args := []interface{}{model.SeatAvailable}
	for _, id := range seatIDs {
		args = append(args, id)
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE show_seats SET status = ?, lock_expires_at = NULL
		 WHERE id IN (`+placeholders(len(seatIDs))+`)`,
		args...,
	)
	return err
}

// ConfirmBookedTx promotes LOCKED seats to BOOKED. Every seat must still
// be LOCKED; a shortfall means the lock was reaped and the transition is
// no longer valid.
func (r *ShowSeatRepo) ConfirmBookedTx(ctx context.Context, tx *sql.Tx, seatIDs []uint64) error {
	if len(seatIDs) == 0 {
		return ErrInvalidTransition
	}
	args := []interface{}{model.SeatBooked, model.SeatLocked}
	for _, id := range seatIDs {
		args = append(args, id)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE show_seats SET status = ?, lock_expires_at = NULL
		 WHERE status = ? AND id IN (`+placeholders(len(seatIDs))+`)`,
		args...,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if int(affected) != len(seatIDs) {
		return ErrInvalidTransition
	}
	return nil
}

// ReleaseExpiredTx returns every seat whose lock passed its expiry to
// AVAILABLE and reports how many rows changed. Guarded by status and
// expiry, so a seat a concurrent confirm already booked is left alone.
func (r *ShowSeatRepo) ReleaseExpiredTx(ctx context.Context, tx *sql.Tx, now time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE show_seats SET status = ?, lock_expires_at = NULL
		 WHERE status = ? AND lock_expires_at IS NOT NULL AND lock_expires_at < ?`,
		model.SeatAvailable, model.SeatLocked, now,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReleaseByShowTx returns every LOCKED seat of one show to AVAILABLE,
// expired or not. Backs the owner's force-release operation.
func (r *ShowSeatRepo) ReleaseByShowTx(ctx context.Context, tx *sql.Tx, showID uint64) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE show_seats SET status = ?, lock_expires_at = NULL
		 WHERE show_id = ? AND status = ?`,
		model.SeatAvailable, showID, model.SeatLocked,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdatePriceWhereAvailable reprices the seats of a show that are still
// AVAILABLE. Locked and booked seats keep the price captured at lock
// time. Returns how many rows changed.
func (r *ShowSeatRepo) UpdatePriceWhereAvailable(ctx context.Context, showID uint64, priceCents uint32) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE show_seats SET price_cents = ? WHERE show_id = ? AND status = ?`,
		priceCents, showID, model.SeatAvailable,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
