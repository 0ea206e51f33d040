package wire

import (
	"movie-booking/internal/adaptor"
	"movie-booking/internal/data/repository"
	"movie-booking/pkg/middleware"
	"movie-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireBooking(
	r chi.Router,
	bookingHandler *adaptor.BookingHandler,
	webhookHandler *adaptor.WebhookHandler,
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) {
	// ==================== PROTECTED ROUTES (require auth) ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, log))

		// POST /api/bookings - Reserve seats and open a payment intent
		r.Post("/api/bookings", bookingHandler.Create)

		// GET /api/bookings/{id} - View one of the user's own bookings
		r.Get("/api/bookings/{id}", bookingHandler.GetByID)

		// PATCH /api/bookings/{id}/cancel - Cancel a confirmed booking
		r.Patch("/api/bookings/{id}/cancel", bookingHandler.Cancel)

		// GET /api/user/bookings - Booking history (user's own bookings)
		r.Get("/api/user/bookings", bookingHandler.GetUserBookings)
	})

	// ==================== PUBLIC ROUTES ====================
	// GET /api/showtimes/{id}/seats - Seat map with live availability
	r.Get("/api/showtimes/{id}/seats", bookingHandler.GetShowtimeSeats)

	// POST /api/payments/webhook - Payment provider outcome notifications
	r.Post("/api/payments/webhook", webhookHandler.PaymentWebhook)
}
