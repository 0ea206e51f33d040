package entity

import (
	"fmt"

	"github.com/google/uuid"
)

type SeatType string

const (
	SeatTypeRegular SeatType = "regular"
	SeatTypePremium SeatType = "premium"
)

// Seat is part of a room's fixed layout. Immutable once the room is
// configured; availability is derived from bookings, not stored here.
type Seat struct {
	Base
	RoomID     uuid.UUID `db:"room_id"`
	SeatRow    string    `db:"seat_row"`    // A, B, C, etc.
	SeatNumber int       `db:"seat_number"` // 1, 2, 3, etc.
	SeatType   SeatType  `db:"seat_type"`
	Price      float64   `db:"price"`
}

// Label returns the display identifier, e.g. "A1".
func (s *Seat) Label() string {
	return fmt.Sprintf("%s%d", s.SeatRow, s.SeatNumber)
}
