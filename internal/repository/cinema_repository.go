package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cinebooker/cinebooker/internal/model"
)

// CinemaRepo provides access to the cinemas table.
type CinemaRepo struct {
	db *sql.DB
}

func NewCinemaRepo(db *sql.DB) *CinemaRepo {
	return &CinemaRepo{db: db}
}

func (r *CinemaRepo) Create(ctx context.Context, c *model.Cinema) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO cinemas (owner_id, name) VALUES (?, ?)`,
		c.OwnerID, c.Name,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return r.db.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM cinemas WHERE id = ?`, c.ID,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *CinemaRepo) GetByID(ctx context.Context, id uint64) (*model.Cinema, error) {
	var c model.Cinema
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, created_at, updated_at FROM cinemas WHERE id = ?`, id,
	).Scan(&c.ID, &c.OwnerID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCinemaNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns all cinemas ordered by name, for the public catalog.
func (r *CinemaRepo) List(ctx context.Context) ([]model.Cinema, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name, created_at, updated_at FROM cinemas ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Cinema
	for rows.Next() {
		var c model.Cinema
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
