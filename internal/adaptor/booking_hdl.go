package adaptor

import (
	"encoding/json"
	"net/http"

	"movie-booking/internal/dto/request"
	"movie-booking/internal/usecase"
	"movie-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingHandler struct {
	service usecase.BookingService
	log     *zap.Logger
}

func NewBookingHandler(service usecase.BookingService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log.With(zap.String("handler", "booking")),
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "User not authenticated")
		return
	}

	var req request.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	resp, err := h.service.CreateBooking(r.Context(), userID.String(), &req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	utils.ResponseCreated(w, "Booking created", resp)
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "User not authenticated")
		return
	}

	bookingID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(bookingID); err != nil {
		utils.ResponseBadRequest(w, "Invalid booking ID", nil)
		return
	}

	resp, err := h.service.GetBooking(r.Context(), userID.String(), bookingID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	utils.ResponseSuccess(w, "Booking retrieved", resp)
}

func (h *BookingHandler) GetUserBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "User not authenticated")
		return
	}

	req := &request.PaginatedRequest{
		Page:    utils.ParseInt(r.URL.Query().Get("page"), 1),
		PerPage: utils.ParseInt(r.URL.Query().Get("per_page"), 10),
	}

	resp, err := h.service.GetUserBookings(r.Context(), userID.String(), req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	utils.ResponseSuccess(w, "Bookings retrieved", resp)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "User not authenticated")
		return
	}

	bookingID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(bookingID); err != nil {
		utils.ResponseBadRequest(w, "Invalid booking ID", nil)
		return
	}

	if err := h.service.CancelBooking(r.Context(), userID.String(), bookingID); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	utils.ResponseSuccess(w, "Booking canceled", nil)
}

func (h *BookingHandler) GetShowtimeSeats(w http.ResponseWriter, r *http.Request) {
	showtimeID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(showtimeID); err != nil {
		utils.ResponseBadRequest(w, "Invalid showtime ID", nil)
		return
	}

	resp, err := h.service.GetShowtimeSeats(r.Context(), showtimeID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	utils.ResponseSuccess(w, "Seat map retrieved", resp)
}
