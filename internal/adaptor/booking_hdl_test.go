package adaptor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"movie-booking/internal/data/repository"
	"movie-booking/internal/dto/request"
	"movie-booking/internal/dto/response"
	"movie-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubBookingService returns canned values so the tests exercise only the
// HTTP mapping.
type stubBookingService struct {
	createResp *response.BookingResponse
	createErr  error
	cancelErr  error
	seatsResp  *response.ShowtimeSeatsResponse
	seatsErr   error
}

func (s *stubBookingService) CreateBooking(context.Context, string, *request.CreateBookingRequest) (*response.BookingResponse, error) {
	return s.createResp, s.createErr
}

func (s *stubBookingService) ConfirmOnPayment(context.Context, *request.PaymentWebhookRequest) error {
	return nil
}

func (s *stubBookingService) CancelBooking(context.Context, string, string) error {
	return s.cancelErr
}

func (s *stubBookingService) GetBooking(context.Context, string, string) (*response.BookingResponse, error) {
	return s.createResp, s.createErr
}

func (s *stubBookingService) GetUserBookings(context.Context, string, *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	return response.NewPaginatedResponse([]response.BookingResponse{}, 1, 10, 0), nil
}

func (s *stubBookingService) GetShowtimeSeats(context.Context, string) (*response.ShowtimeSeatsResponse, error) {
	return s.seatsResp, s.seatsErr
}

func (s *stubBookingService) ExpireStale(context.Context) (int, error) { return 0, nil }

func (s *stubBookingService) MarkUsed(context.Context) (int64, error) { return 0, nil }

// withUser injects an authenticated user the way the session middleware does.
func withUser(userID uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := utils.SetUserContext(r.Context(), userID, "customer")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newTestRouter(service *stubBookingService, userID uuid.UUID) *chi.Mux {
	handler := NewBookingHandler(service, zap.NewNop())

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(withUser(userID))
		r.Post("/api/bookings", handler.Create)
		r.Get("/api/bookings/{id}", handler.GetByID)
		r.Patch("/api/bookings/{id}/cancel", handler.Cancel)
	})
	r.Get("/api/showtimes/{id}/seats", handler.GetShowtimeSeats)
	return r
}

func createBookingBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(request.CreateBookingRequest{
		ShowtimeID: uuid.NewString(),
		Seats:      []request.SeatRef{{Row: "A", Number: 1}},
		TotalPrice: 50,
	})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestCreateBookingStatusMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"seat conflict", &repository.SeatConflictError{Labels: []string{"A1"}}, http.StatusConflict},
		{"showtime missing", repository.ErrShowtimeNotFound, http.StatusNotFound},
		{"validation", fmt.Errorf("%w: seat Z9 is not part of this room", repository.ErrInvalidSeats), http.StatusBadRequest},
		{"showtime started", fmt.Errorf("%w: showtime already started", repository.ErrInvalidState), http.StatusUnprocessableEntity},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(&stubBookingService{createErr: tc.err}, uuid.New())

			req := httptest.NewRequest(http.MethodPost, "/api/bookings", createBookingBody(t))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.wantCode, w.Code)

			var resp utils.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Status)
		})
	}
}

func TestCreateBookingSuccess(t *testing.T) {
	bookingID := uuid.NewString()
	router := newTestRouter(&stubBookingService{
		createResp: &response.BookingResponse{ID: bookingID, Status: "pending", Seats: []string{"A1"}},
	}, uuid.New())

	req := httptest.NewRequest(http.MethodPost, "/api/bookings", createBookingBody(t))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp utils.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Status)
}

func TestCreateBookingConflictPayload(t *testing.T) {
	router := newTestRouter(&stubBookingService{
		createErr: &repository.SeatConflictError{Labels: []string{"A1", "A2"}},
	}, uuid.New())

	req := httptest.NewRequest(http.MethodPost, "/api/bookings", createBookingBody(t))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)

	var resp struct {
		Errors struct {
			ConflictingSeats []string `json:"conflicting_seats"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"A1", "A2"}, resp.Errors.ConflictingSeats)
}

func TestCancelBookingStatusMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"ok", nil, http.StatusOK},
		{"not found", repository.ErrBookingNotFound, http.StatusNotFound},
		{"foreign booking", fmt.Errorf("%w: booking belongs to another user", repository.ErrForbidden), http.StatusForbidden},
		{"not cancelable", fmt.Errorf("%w: booking is expired", repository.ErrInvalidState), http.StatusUnprocessableEntity},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(&stubBookingService{cancelErr: tc.err}, uuid.New())

			url := "/api/bookings/" + uuid.NewString() + "/cancel"
			req := httptest.NewRequest(http.MethodPatch, url, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.wantCode, w.Code)
		})
	}
}

func TestCancelBookingRejectsMalformedID(t *testing.T) {
	router := newTestRouter(&stubBookingService{}, uuid.New())

	req := httptest.NewRequest(http.MethodPatch, "/api/bookings/not-a-uuid/cancel", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateBookingRequiresAuth(t *testing.T) {
	handler := NewBookingHandler(&stubBookingService{}, zap.NewNop())

	r := chi.NewRouter()
	r.Post("/api/bookings", handler.Create) // no auth middleware

	req := httptest.NewRequest(http.MethodPost, "/api/bookings", createBookingBody(t))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetShowtimeSeats(t *testing.T) {
	showtimeID := uuid.NewString()
	router := newTestRouter(&stubBookingService{
		seatsResp: &response.ShowtimeSeatsResponse{
			ShowtimeID: showtimeID,
			Seats: []response.SeatResponse{
				{Row: "A", Number: 1, State: response.SeatStateHeld},
				{Row: "A", Number: 2, State: response.SeatStateAvailable},
			},
		},
	}, uuid.New())

	req := httptest.NewRequest(http.MethodGet, "/api/showtimes/"+showtimeID+"/seats", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data response.ShowtimeSeatsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Seats, 2)
}
