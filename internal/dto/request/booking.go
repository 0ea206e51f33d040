package request

// SeatRef identifies a seat by its position in the room layout.
type SeatRef struct {
	Row    string `json:"row" validate:"required,alpha,max=3"`
	Number int    `json:"number" validate:"required,min=1"`
}

type CreateBookingRequest struct {
	ShowtimeID string    `json:"showtime_id" validate:"required,uuid4"`
	Seats      []SeatRef `json:"seats" validate:"required,min=1,max=10,dive"`
	TotalPrice float64   `json:"total_price" validate:"required,gt=0"`
}

// PaymentWebhookRequest is the inbound provider event driving confirmation.
type PaymentWebhookRequest struct {
	BookingID             string `json:"booking_id" validate:"required,uuid4"`
	Outcome               string `json:"outcome" validate:"required,oneof=success failure"`
	ProviderTransactionID string `json:"provider_transaction_id" validate:"required"`
}
