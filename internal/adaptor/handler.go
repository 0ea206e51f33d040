package adaptor

import (
	"errors"
	"net/http"

	"movie-booking/internal/data/repository"
	"movie-booking/internal/realtime"
	"movie-booking/internal/usecase"
	"movie-booking/pkg/utils"

	"go.uber.org/zap"
)

// Handler bundles the HTTP handlers for routing.
type Handler struct {
	Auth    *AuthHandler
	Booking *BookingHandler
	Webhook *WebhookHandler
	WS      *WSHandler
}

func NewHandler(service *usecase.Service, hub *realtime.Hub, log *zap.Logger) *Handler {
	return &Handler{
		Auth:    NewAuthHandler(service.Auth, log),
		Booking: NewBookingHandler(service.Booking, log),
		Webhook: NewWebhookHandler(service.Booking, log),
		WS:      NewWSHandler(hub, log),
	}
}

// writeServiceError maps service errors onto HTTP responses. Handlers never
// match error strings; the sentinel chain decides the status code.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	var conflict *repository.SeatConflictError
	if errors.As(err, &conflict) {
		utils.ResponseConflict(w, "Some seats are no longer available", map[string]any{
			"conflicting_seats": conflict.Labels,
		})
		return
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		utils.ResponseNotFound(w, err.Error())
	case errors.Is(err, repository.ErrValidation):
		utils.ResponseBadRequest(w, err.Error(), nil)
	case errors.Is(err, repository.ErrForbidden):
		utils.ResponseForbidden(w, err.Error())
	case errors.Is(err, repository.ErrBookingNotPending),
		errors.Is(err, repository.ErrInvalidState):
		utils.ResponseUnprocessable(w, err.Error())
	default:
		log.Error("Unhandled service error", zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
