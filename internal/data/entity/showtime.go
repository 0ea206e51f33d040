package entity

import (
	"time"

	"github.com/google/uuid"
)

type Showtime struct {
	Base
	MovieID  uuid.UUID `db:"movie_id"`
	RoomID   uuid.UUID `db:"room_id"`
	StartsAt time.Time `db:"starts_at"`
	EndsAt   time.Time `db:"ends_at"`
	IsActive bool      `db:"is_active"`
}
