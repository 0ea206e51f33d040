package entity

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Payment is written once a provider outcome reaches the webhook. One-to-one
// with its booking.
type Payment struct {
	Base
	BookingID     uuid.UUID     `db:"booking_id"`
	Amount        float64       `db:"amount"`
	Status        PaymentStatus `db:"status"`
	ProviderTxnID string        `db:"provider_txn_id"`
	PaidAt        time.Time     `db:"paid_at"`
}
