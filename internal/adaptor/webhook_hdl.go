package adaptor

import (
	"encoding/json"
	"net/http"

	"movie-booking/internal/dto/request"
	"movie-booking/internal/usecase"
	"movie-booking/pkg/utils"

	"go.uber.org/zap"
)

// WebhookHandler receives asynchronous payment outcomes from the provider.
// Delivery is at-least-once, so the underlying transitions are idempotent.
type WebhookHandler struct {
	service usecase.BookingService
	log     *zap.Logger
}

func NewWebhookHandler(service usecase.BookingService, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		log:     log.With(zap.String("handler", "webhook")),
	}
}

func (h *WebhookHandler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var req request.PaymentWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	h.log.Info("Payment webhook received",
		zap.String("booking_id", req.BookingID),
		zap.String("outcome", req.Outcome),
	)

	if err := h.service.ConfirmOnPayment(r.Context(), &req); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	utils.ResponseSuccess(w, "Webhook processed", nil)
}
