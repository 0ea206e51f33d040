package response

import (
	"time"

	"movie-booking/internal/data/entity"
)

type BookingResponse struct {
	ID         string               `json:"id"`
	OrderID    string               `json:"order_id"`
	UserID     string               `json:"user_id"`
	ShowtimeID string               `json:"showtime_id"`
	MovieTitle string               `json:"movie_title,omitempty"`
	StartsAt   *time.Time           `json:"starts_at,omitempty"`
	TotalSeats int                  `json:"total_seats"`
	TotalPrice float64              `json:"total_price"`
	Status     entity.BookingStatus `json:"status"`
	Seats      []string             `json:"seats,omitempty"`
	ExpiresAt  *time.Time           `json:"expires_at,omitempty"`
	PaymentURL string               `json:"payment_url,omitempty"`
	Payment    *PaymentResponse     `json:"payment,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
}

type PaymentResponse struct {
	ID            string               `json:"id"`
	BookingID     string               `json:"booking_id"`
	Amount        float64              `json:"amount"`
	Status        entity.PaymentStatus `json:"status"`
	ProviderTxnID string               `json:"provider_txn_id"`
	PaidAt        time.Time            `json:"paid_at"`
}

func PaymentToResponse(payment *entity.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            payment.ID.String(),
		BookingID:     payment.BookingID.String(),
		Amount:        payment.Amount,
		Status:        payment.Status,
		ProviderTxnID: payment.ProviderTxnID,
		PaidAt:        payment.PaidAt,
	}
}
