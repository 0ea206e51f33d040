package entity

import "github.com/google/uuid"

type Room struct {
	Base
	TheaterID  uuid.UUID `db:"theater_id"`
	RoomNumber int       `db:"room_number"`
	TotalSeats int       `db:"total_seats"`
}
