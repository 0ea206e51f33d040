package repository

import (
	"context"
	"fmt"

	"movie-booking/internal/data/entity"
	"movie-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type SeatRepository interface {
	FindByRoomID(ctx context.Context, roomID uuid.UUID) ([]*entity.Seat, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Seat, error)
}

type seatRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewSeatRepository(db database.PgxIface, log *zap.Logger) SeatRepository {
	return &seatRepository{
		db:  db,
		log: log.With(zap.String("repository", "seat")),
	}
}

const seatColumns = `id, room_id, seat_row, seat_number, seat_type, price, created_at, updated_at, deleted_at`

func (r *seatRepository) FindByRoomID(ctx context.Context, roomID uuid.UUID) ([]*entity.Seat, error) {
	query := `
		SELECT ` + seatColumns + `
		FROM seats
		WHERE room_id = $1 AND deleted_at IS NULL
		ORDER BY seat_row, seat_number
	`

	rows, err := r.db.Query(ctx, query, roomID)
	if err != nil {
		r.log.Error("Failed to find seats by room ID",
			zap.Error(err),
			zap.String("room_id", roomID.String()),
		)
		return nil, fmt.Errorf("find seats by room ID %s: %w", roomID.String(), err)
	}
	defer rows.Close()

	return scanSeats(rows)
}

func (r *seatRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Seat, error) {
	query := `
		SELECT ` + seatColumns + `
		FROM seats
		WHERE id = ANY($1) AND deleted_at IS NULL
	`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		r.log.Error("Failed to find seats by IDs", zap.Error(err))
		return nil, fmt.Errorf("find seats by IDs: %w", err)
	}
	defer rows.Close()

	return scanSeats(rows)
}

func scanSeats(rows pgx.Rows) ([]*entity.Seat, error) {
	var seats []*entity.Seat
	for rows.Next() {
		var seat entity.Seat
		err := rows.Scan(
			&seat.ID,
			&seat.RoomID,
			&seat.SeatRow,
			&seat.SeatNumber,
			&seat.SeatType,
			&seat.Price,
			&seat.CreatedAt,
			&seat.UpdatedAt,
			&seat.DeletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan seat row: %w", err)
		}
		seats = append(seats, &seat)
	}
	return seats, rows.Err()
}
