package entity

import "github.com/google/uuid"

// BookingSeat links a booking to one seat. ShowtimeID is denormalized from
// the booking so availability checks and the reserve transaction can work on
// this table alone.
type BookingSeat struct {
	BaseSimple
	BookingID  uuid.UUID `db:"booking_id"`
	ShowtimeID uuid.UUID `db:"showtime_id"`
	SeatID     uuid.UUID `db:"seat_id"`
}
