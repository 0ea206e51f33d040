package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCanceled  BookingStatus = "canceled"
	BookingStatusExpired   BookingStatus = "expired"
	BookingStatusUsed      BookingStatus = "used"
)

// IsTerminal reports whether no further transition is allowed from status.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCanceled || s == BookingStatusExpired || s == BookingStatusUsed
}

type Booking struct {
	Base
	OrderID    string        `db:"order_id"`
	UserID     uuid.UUID     `db:"user_id"`
	ShowtimeID uuid.UUID     `db:"showtime_id"`
	TotalSeats int           `db:"total_seats"`
	TotalPrice float64       `db:"total_price"`
	Status     BookingStatus `db:"status"`
	ExpiresAt  *time.Time    `db:"expires_at"` // set while pending, nil afterwards
}

// IsLive reports whether the booking occupies its seats at instant now:
// confirmed, or pending with an unexpired hold deadline.
func (b *Booking) IsLive(now time.Time) bool {
	if b.Status == BookingStatusConfirmed {
		return true
	}
	return b.Status == BookingStatusPending && b.ExpiresAt != nil && b.ExpiresAt.After(now)
}
