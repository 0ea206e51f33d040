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

type ShowtimeRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Showtime, error)
	FindActiveByID(ctx context.Context, id uuid.UUID) (*entity.Showtime, error)
}

type showtimeRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewShowtimeRepository(db database.PgxIface, log *zap.Logger) ShowtimeRepository {
	return &showtimeRepository{
		db:  db,
		log: log.With(zap.String("repository", "showtime")),
	}
}

const showtimeColumns = `id, movie_id, room_id, starts_at, ends_at, is_active, created_at, updated_at, deleted_at`

func (r *showtimeRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Showtime, error) {
	query := `SELECT ` + showtimeColumns + ` FROM showtimes WHERE id = $1 AND deleted_at IS NULL`
	return r.findOne(ctx, query, id)
}

func (r *showtimeRepository) FindActiveByID(ctx context.Context, id uuid.UUID) (*entity.Showtime, error) {
	query := `SELECT ` + showtimeColumns + ` FROM showtimes WHERE id = $1 AND is_active AND deleted_at IS NULL`
	return r.findOne(ctx, query, id)
}

func (r *showtimeRepository) findOne(ctx context.Context, query string, id uuid.UUID) (*entity.Showtime, error) {
	var st entity.Showtime
	err := r.db.QueryRow(ctx, query, id).Scan(
		&st.ID,
		&st.MovieID,
		&st.RoomID,
		&st.StartsAt,
		&st.EndsAt,
		&st.IsActive,
		&st.CreatedAt,
		&st.UpdatedAt,
		&st.DeletedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find showtime",
			zap.Error(err),
			zap.String("showtime_id", id.String()),
		)
		return nil, fmt.Errorf("find showtime %s: %w", id.String(), err)
	}

	return &st, nil
}
