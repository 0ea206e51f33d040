package repository

import (
	"context"
	"fmt"
	"time"

	"movie-booking/internal/data/entity"
	"movie-booking/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HeldSeat is a seat currently occupied by a live booking, together with the
// holding booking's status so seat maps can distinguish holds from sales.
type HeldSeat struct {
	SeatID uuid.UUID
	Status entity.BookingStatus
}

type BookingSeatRepository interface {
	FindSeatIDsByBookingID(ctx context.Context, bookingID uuid.UUID) ([]uuid.UUID, error)

	// FindHeldSeats returns the seats of all live bookings for a showtime as
	// of instant now. Pure read; the reserve path re-checks inside its own
	// transaction.
	FindHeldSeats(ctx context.Context, showtimeID uuid.UUID, now time.Time) ([]HeldSeat, error)
}

type bookingSeatRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingSeatRepository(db database.PgxIface, log *zap.Logger) BookingSeatRepository {
	return &bookingSeatRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking_seat")),
	}
}

func (r *bookingSeatRepository) FindSeatIDsByBookingID(ctx context.Context, bookingID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT seat_id FROM booking_seats WHERE booking_id = $1 ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, bookingID)
	if err != nil {
		r.log.Error("Failed to find seats by booking ID",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("find seats by booking ID %s: %w", bookingID.String(), err)
	}
	defer rows.Close()

	var seatIDs []uuid.UUID
	for rows.Next() {
		var seatID uuid.UUID
		if err := rows.Scan(&seatID); err != nil {
			return nil, fmt.Errorf("scan booking seat row: %w", err)
		}
		seatIDs = append(seatIDs, seatID)
	}

	return seatIDs, rows.Err()
}

func (r *bookingSeatRepository) FindHeldSeats(ctx context.Context, showtimeID uuid.UUID, now time.Time) ([]HeldSeat, error) {
	query := `
		SELECT bs.seat_id, b.status
		FROM booking_seats bs
		JOIN bookings b ON b.id = bs.booking_id
		WHERE bs.showtime_id = $1
		  AND (b.status = 'confirmed' OR (b.status = 'pending' AND b.expires_at > $2))
	`

	rows, err := r.db.Query(ctx, query, showtimeID, now)
	if err != nil {
		r.log.Error("Failed to find held seats",
			zap.Error(err),
			zap.String("showtime_id", showtimeID.String()),
		)
		return nil, fmt.Errorf("find held seats for showtime %s: %w", showtimeID.String(), err)
	}
	defer rows.Close()

	var held []HeldSeat
	for rows.Next() {
		var hs HeldSeat
		if err := rows.Scan(&hs.SeatID, &hs.Status); err != nil {
			return nil, fmt.Errorf("scan held seat row: %w", err)
		}
		held = append(held, hs)
	}

	return held, rows.Err()
}
