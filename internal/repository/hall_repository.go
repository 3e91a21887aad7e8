package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cinebooker/cinebooker/internal/model"
)

// HallRepo provides access to the halls table.
type HallRepo struct {
	db *sql.DB
}

func NewHallRepo(db *sql.DB) *HallRepo {
	return &HallRepo{db: db}
}

func (r *HallRepo) Create(ctx context.Context, h *model.Hall) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO halls (owner_id, cinema_id, name, seat_rows, seat_cols, is_active)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		h.OwnerID, h.CinemaID, h.Name, h.SeatRows, h.SeatCols, h.IsActive,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	return r.db.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM halls WHERE id = ?`, h.ID,
	).Scan(&h.CreatedAt, &h.UpdatedAt)
}

func (r *HallRepo) GetByID(ctx context.Context, id uint64) (*model.Hall, error) {
	var h model.Hall
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, cinema_id, name, seat_rows, seat_cols, is_active, created_at, updated_at
		 FROM halls WHERE id = ?`, id,
	).Scan(&h.ID, &h.OwnerID, &h.CinemaID, &h.Name, &h.SeatRows, &h.SeatCols, &h.IsActive, &h.CreatedAt, &h.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrHallNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// GetByIDForOwner loads a hall and checks ownership in one step.
func (r *HallRepo) GetByIDForOwner(ctx context.Context, id, ownerID uint64) (*model.Hall, error) {
	h, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if h.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return h, nil
}

func (r *HallRepo) ListByCinema(ctx context.Context, cinemaID uint64) ([]model.Hall, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, cinema_id, name, seat_rows, seat_cols, is_active, created_at, updated_at
		 FROM halls WHERE cinema_id = ? AND is_active = 1 ORDER BY name`, cinemaID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Hall
	for rows.Next() {
		var h model.Hall
		if err := rows.Scan(&h.ID, &h.OwnerID, &h.CinemaID, &h.Name, &h.SeatRows, &h.SeatCols, &h.IsActive, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
