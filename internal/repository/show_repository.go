package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cinebooker/cinebooker/internal/model"
)

// ShowRepo provides access to the shows table.
type ShowRepo struct {
	db *sql.DB
}

func NewShowRepo(db *sql.DB) *ShowRepo {
	return &ShowRepo{db: db}
}

func (r *ShowRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.Show) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO shows (hall_id, movie_title, starts_at, ends_at, base_price_cents, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.HallID, s.MovieTitle, s.StartsAt, s.EndsAt, s.BasePriceCents, s.Status,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return tx.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM shows WHERE id = ?`, s.ID,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *ShowRepo) GetByID(ctx context.Context, id uint64) (*model.Show, error) {
	var s model.Show
	err := r.db.QueryRowContext(ctx,
		`SELECT id, hall_id, movie_title, starts_at, ends_at, base_price_cents, status, created_at, updated_at
		 FROM shows WHERE id = ?`, id,
	).Scan(&s.ID, &s.HallID, &s.MovieTitle, &s.StartsAt, &s.EndsAt, &s.BasePriceCents, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrShowNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// HasOverlapTx reports whether another scheduled show in the same hall
// overlaps the given window. Used inside the show creation transaction.
func (r *ShowRepo) HasOverlapTx(ctx context.Context, tx *sql.Tx, hallID uint64, startsAt, endsAt time.Time) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM shows
		 WHERE hall_id = ? AND status = ? AND starts_at < ? AND ends_at > ?`,
		hallID, model.ShowScheduled, endsAt, startsAt,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *ShowRepo) ListByHall(ctx context.Context, hallID uint64) ([]model.Show, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, hall_id, movie_title, starts_at, ends_at, base_price_cents, status, created_at, updated_at
		 FROM shows WHERE hall_id = ? AND status = ? ORDER BY starts_at`, hallID, model.ShowScheduled,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Show
	for rows.Next() {
		var s model.Show
		if err := rows.Scan(&s.ID, &s.HallID, &s.MovieTitle, &s.StartsAt, &s.EndsAt, &s.BasePriceCents, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// OwnerID resolves the owner of the hall a show runs in. Ownership
// checks on show-level operations go through here.
func (r *ShowRepo) OwnerID(ctx context.Context, showID uint64) (uint64, error) {
	var ownerID uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT h.owner_id FROM shows s JOIN halls h ON h.id = s.hall_id WHERE s.id = ?`, showID,
	).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrShowNotFound
	}
	if err != nil {
		return 0, err
	}
	return ownerID, nil
}
