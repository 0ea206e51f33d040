package realtime

import "github.com/google/uuid"

type EventType string

const (
	EventSeatsChanged  EventType = "seats_changed"
	EventBookingStatus EventType = "booking_status"
)

type HoldState string

const (
	SeatsHeld     HoldState = "held"
	SeatsReleased HoldState = "released"
)

// Event is the wire payload pushed to subscribed connections. Delivery is
// best-effort, at-most-once per connection; clients reconcile with the GET
// endpoints on reconnect.
type Event struct {
	Type       EventType `json:"type"`
	ShowtimeID string    `json:"showtime_id,omitempty"`
	Seats      []string  `json:"seats,omitempty"`
	HoldState  HoldState `json:"hold_state,omitempty"`
	BookingID  string    `json:"booking_id,omitempty"`
	Status     string    `json:"status,omitempty"`
}

// ShowtimeChannel names the channel watched by clients rendering a seat map.
func ShowtimeChannel(showtimeID uuid.UUID) string {
	return "showtime:" + showtimeID.String()
}

// UserChannel names the channel watched by a user's own clients for booking
// status updates.
func UserChannel(userID uuid.UUID) string {
	return "user:" + userID.String()
}
