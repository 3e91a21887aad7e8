package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/cinebooker/cinebooker/internal/model"
)

// SeatRepo provides access to the physical seats of a hall.
type SeatRepo struct {
	db *sql.DB
}

func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

// CreateGrid inserts the full rows x cols seat layout for a hall in a
// single multi-row INSERT. Rows become letter labels (A, B, ...).
func (r *SeatRepo) CreateGrid(ctx context.Context, hallID uint64, seatRows, seatCols uint32) error {
	if seatRows == 0 || seatCols == 0 {
		return ErrNoChange
	}
	var (
		sb   strings.Builder
		args []interface{}
	)
	sb.WriteString(`INSERT INTO seats (hall_id, row_label, seat_number) VALUES `)
	first := true
	for row := uint32(1); row <= seatRows; row++ {
		label := model.RowLetter(row)
		for col := uint32(1); col <= seatCols; col++ {
			if !first {
				sb.WriteString(", ")
			}
			first = false
			sb.WriteString("(?, ?, ?)")
			args = append(args, hallID, label, col)
		}
	}
	_, err := r.db.ExecContext(ctx, sb.String(), args...)
	return err
}

func (r *SeatRepo) GetByHall(ctx context.Context, hallID uint64) ([]model.Seat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, hall_id, row_label, seat_number, created_at
		 FROM seats WHERE hall_id = ? ORDER BY LENGTH(row_label), row_label, seat_number`, hallID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.HallID, &s.RowLabel, &s.SeatNumber, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
