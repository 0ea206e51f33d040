package repository

import (
	"context"
	"fmt"
	"time"

	"movie-booking/internal/data/entity"
	"movie-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type BookingRepository interface {
	// CreateWithSeats performs the atomic check-and-reserve: inside one
	// transaction it locks the showtime row, re-checks the requested seats
	// against live holders, and inserts the booking together with its seat
	// rows. Returns *SeatConflictError when any requested seat is taken.
	CreateWithSeats(ctx context.Context, booking *entity.Booking, seatIDs []uuid.UUID) error

	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error)
	CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error)

	// Conditional transitions. All return whether a row was actually moved,
	// so racing callers (webhook vs sweeper) resolve deterministically: one
	// observes true, the rest observe false and no-op.
	ConfirmIfPending(ctx context.Context, bookingID uuid.UUID, now time.Time) (bool, error)
	UpdateStatusIf(ctx context.Context, bookingID uuid.UUID, from, to entity.BookingStatus) (bool, error)

	// ExpireStale moves at most limit pending bookings whose hold deadline
	// passed before now into expired, returning the transitioned rows.
	ExpireStale(ctx context.Context, now time.Time, limit int) ([]*entity.Booking, error)

	// MarkUsedForElapsed moves confirmed bookings of fully elapsed showtimes
	// into used, at most limit per call.
	MarkUsedForElapsed(ctx context.Context, now time.Time, limit int) (int64, error)
}

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `id, order_id, user_id, showtime_id, total_seats, total_price, status, expires_at, created_at, updated_at`

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var b entity.Booking
	err := row.Scan(
		&b.ID,
		&b.OrderID,
		&b.UserID,
		&b.ShowtimeID,
		&b.TotalSeats,
		&b.TotalPrice,
		&b.Status,
		&b.ExpiresAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) CreateWithSeats(ctx context.Context, booking *entity.Booking, seatIDs []uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reserve tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serialize concurrent reservations per showtime. Two creates for the
	// same showtime cannot both pass the conflict check below.
	var locked uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT id FROM showtimes WHERE id = $1 FOR UPDATE`,
		booking.ShowtimeID,
	).Scan(&locked)
	if err == pgx.ErrNoRows {
		return ErrShowtimeNotFound
	}
	if err != nil {
		return fmt.Errorf("lock showtime %s: %w", booking.ShowtimeID.String(), err)
	}

	// Re-check availability under the lock: seats of confirmed bookings and
	// of pending bookings whose hold deadline is still in the future.
	rows, err := tx.Query(ctx, `
		SELECT DISTINCT bs.seat_id
		FROM booking_seats bs
		JOIN bookings b ON b.id = bs.booking_id
		WHERE bs.showtime_id = $1
		  AND bs.seat_id = ANY($2)
		  AND (b.status = 'confirmed' OR (b.status = 'pending' AND b.expires_at > $3))
	`, booking.ShowtimeID, seatIDs, booking.CreatedAt)
	if err != nil {
		return fmt.Errorf("check seat conflicts: %w", err)
	}

	var conflicts []uuid.UUID
	for rows.Next() {
		var seatID uuid.UUID
		if err := rows.Scan(&seatID); err != nil {
			rows.Close()
			return fmt.Errorf("scan conflicting seat: %w", err)
		}
		conflicts = append(conflicts, seatID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("check seat conflicts: %w", err)
	}

	if len(conflicts) > 0 {
		return &SeatConflictError{SeatIDs: conflicts}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO bookings (id, order_id, user_id, showtime_id, total_seats, total_price, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		booking.ID,
		booking.OrderID,
		booking.UserID,
		booking.ShowtimeID,
		booking.TotalSeats,
		booking.TotalPrice,
		booking.Status,
		booking.ExpiresAt,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to insert booking",
			zap.Error(err),
			zap.String("order_id", booking.OrderID),
		)
		return fmt.Errorf("insert booking %s: %w", booking.OrderID, err)
	}

	for _, seatID := range seatIDs {
		_, err = tx.Exec(ctx, `
			INSERT INTO booking_seats (id, booking_id, showtime_id, seat_id, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, uuid.New(), booking.ID, booking.ShowtimeID, seatID, booking.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert booking seat %s: %w", seatID.String(), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reserve tx: %w", err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find bookings by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("find bookings by user ID %s: %w", userID.String(), err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

func (r *bookingRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count bookings by user ID %s: %w", userID.String(), err)
	}
	return count, nil
}

func (r *bookingRepository) ConfirmIfPending(ctx context.Context, bookingID uuid.UUID, now time.Time) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'confirmed', expires_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'pending' AND expires_at > $2
	`

	result, err := r.db.Exec(ctx, query, bookingID, now)
	if err != nil {
		r.log.Error("Failed to confirm booking",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return false, fmt.Errorf("confirm booking %s: %w", bookingID.String(), err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *bookingRepository) UpdateStatusIf(ctx context.Context, bookingID uuid.UUID, from, to entity.BookingStatus) (bool, error) {
	query := `UPDATE bookings SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`

	result, err := r.db.Exec(ctx, query, bookingID, from, to)
	if err != nil {
		r.log.Error("Failed to update booking status",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		return false, fmt.Errorf("update booking %s status %s -> %s: %w",
			bookingID.String(), string(from), string(to), err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *bookingRepository) ExpireStale(ctx context.Context, now time.Time, limit int) ([]*entity.Booking, error) {
	// SKIP LOCKED keeps overlapping sweeper runs from contending on the same
	// rows; the status predicate makes the transition idempotent.
	query := `
		UPDATE bookings
		SET status = 'expired', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM bookings
			WHERE status = 'pending' AND expires_at < $1
			ORDER BY expires_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + bookingColumns

	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		r.log.Error("Failed to expire stale bookings", zap.Error(err))
		return nil, fmt.Errorf("expire stale bookings: %w", err)
	}
	defer rows.Close()

	var expired []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expired booking: %w", err)
		}
		expired = append(expired, booking)
	}

	return expired, rows.Err()
}

func (r *bookingRepository) MarkUsedForElapsed(ctx context.Context, now time.Time, limit int) (int64, error) {
	query := `
		UPDATE bookings
		SET status = 'used', updated_at = NOW()
		WHERE id IN (
			SELECT bk.id
			FROM bookings bk
			JOIN showtimes st ON st.id = bk.showtime_id
			WHERE bk.status = 'confirmed' AND st.ends_at < $1
			LIMIT $2
			FOR UPDATE OF bk SKIP LOCKED
		)
	`

	result, err := r.db.Exec(ctx, query, now, limit)
	if err != nil {
		r.log.Error("Failed to mark elapsed bookings used", zap.Error(err))
		return 0, fmt.Errorf("mark elapsed bookings used: %w", err)
	}

	return result.RowsAffected(), nil
}
