package response

import (
	"time"

	"movie-booking/internal/data/entity"
)

type SeatState string

const (
	SeatStateAvailable SeatState = "available"
	SeatStateHeld      SeatState = "held" // pending hold, may expire
	SeatStateSold      SeatState = "sold" // confirmed booking
)

type SeatResponse struct {
	ID     string          `json:"id"`
	Row    string          `json:"row"`
	Number int             `json:"number"`
	Type   entity.SeatType `json:"type"`
	Price  float64         `json:"price"`
	State  SeatState       `json:"state"`
}

// ShowtimeSeatsResponse is the initial seat map a client renders before
// subscribing to the showtime's real-time channel.
type ShowtimeSeatsResponse struct {
	ShowtimeID string         `json:"showtime_id"`
	MovieTitle string         `json:"movie_title,omitempty"`
	StartsAt   time.Time      `json:"starts_at"`
	Seats      []SeatResponse `json:"seats"`
}
