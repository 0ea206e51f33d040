package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"movie-booking/internal/data/entity"
	"movie-booking/internal/data/repository"
	"movie-booking/internal/dto/request"
	"movie-booking/internal/dto/response"
	"movie-booking/internal/external"
	"movie-booking/internal/realtime"
	"movie-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingService interface {
	// CreateBooking reserves seats for a showtime and opens a payment intent.
	// The booking starts PENDING with a hold deadline; the seats are released
	// by the sweeper if no payment outcome arrives in time.
	CreateBooking(ctx context.Context, userID string, req *request.CreateBookingRequest) (*response.BookingResponse, error)

	// ConfirmOnPayment applies a payment provider outcome to a pending
	// booking. Duplicate success events on an already confirmed booking are
	// a no-op, tolerating at-least-once webhook delivery.
	ConfirmOnPayment(ctx context.Context, req *request.PaymentWebhookRequest) error

	// CancelBooking moves a confirmed booking to canceled when requested by
	// its owner inside the cancellation window, then fires a refund.
	CancelBooking(ctx context.Context, userID, bookingID string) error

	GetBooking(ctx context.Context, userID, bookingID string) (*response.BookingResponse, error)
	GetUserBookings(ctx context.Context, userID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)
	GetShowtimeSeats(ctx context.Context, showtimeID string) (*response.ShowtimeSeatsResponse, error)

	// ExpireStale and MarkUsed are the sweeper's entry points. Both are
	// idempotent: re-running over already transitioned bookings is a no-op.
	ExpireStale(ctx context.Context) (int, error)
	MarkUsed(ctx context.Context) (int64, error)
}

type bookingService struct {
	repo     *repository.Repository
	config   *utils.Config
	notifier *realtime.Notifier
	payments *external.PaymentClient
	log      *zap.Logger
}

func NewBookingService(
	repo *repository.Repository,
	config *utils.Config,
	notifier *realtime.Notifier,
	payments *external.PaymentClient,
	log *zap.Logger,
) BookingService {
	return &bookingService{
		repo:     repo,
		config:   config,
		notifier: notifier,
		payments: payments,
		log:      log.With(zap.String("service", "booking")),
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, userID string, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("%w: %s", repository.ErrValidation, utils.FormatValidationErrors(errs))
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format %s: %w", userID, err)
	}

	showtimeID, err := uuid.Parse(req.ShowtimeID)
	if err != nil {
		return nil, fmt.Errorf("invalid showtime ID format %s: %w", req.ShowtimeID, err)
	}

	showtime, err := s.repo.Showtime.FindActiveByID(ctx, showtimeID)
	if err != nil {
		return nil, fmt.Errorf("load showtime: %w", err)
	}
	if showtime == nil {
		return nil, repository.ErrShowtimeNotFound
	}

	now := time.Now()
	if !showtime.StartsAt.After(now) {
		return nil, fmt.Errorf("%w: showtime already started", repository.ErrInvalidState)
	}

	room, err := s.repo.Room.FindByID(ctx, showtime.RoomID)
	if err != nil {
		return nil, fmt.Errorf("load room: %w", err)
	}
	if room == nil {
		return nil, repository.ErrRoomNotFound
	}

	layout, err := s.repo.Seat.FindByRoomID(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("load room layout: %w", err)
	}

	seats, err := resolveSeats(layout, req.Seats)
	if err != nil {
		return nil, err
	}

	var totalPrice float64
	for _, seat := range seats {
		totalPrice += seat.Price
	}
	if totalPrice != req.TotalPrice {
		return nil, fmt.Errorf("%w: total price %.2f does not match seat prices %.2f",
			repository.ErrInvalidSeats, req.TotalPrice, totalPrice)
	}

	expiresAt := now.Add(s.config.Booking.HoldDuration)
	booking := &entity.Booking{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		OrderID:    utils.GenerateOrderID(),
		UserID:     userUUID,
		ShowtimeID: showtimeID,
		TotalSeats: len(seats),
		TotalPrice: totalPrice,
		Status:     entity.BookingStatusPending,
		ExpiresAt:  &expiresAt,
	}

	seatIDs := make([]uuid.UUID, len(seats))
	labels := make([]string, len(seats))
	for i, seat := range seats {
		seatIDs[i] = seat.ID
		labels[i] = seat.Label()
	}

	if err := s.repo.Booking.CreateWithSeats(ctx, booking, seatIDs); err != nil {
		var conflict *repository.SeatConflictError
		if errors.As(err, &conflict) {
			conflict.Labels = labelsFor(layout, conflict.SeatIDs)
			s.log.Info("Seat conflict on create",
				zap.String("showtime_id", req.ShowtimeID),
				zap.Strings("seats", conflict.Labels),
			)
			return nil, conflict
		}
		return nil, err
	}

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("order_id", booking.OrderID),
		zap.String("user_id", userID),
		zap.Strings("seats", labels),
		zap.Float64("total_price", totalPrice),
		zap.Time("expires_at", expiresAt),
	)

	// Provider intent is opened after the reserve commits. A provider outage
	// must not undo the hold; the hold simply expires if no one pays.
	var paymentURL string
	if s.payments.Enabled() {
		intent, err := s.payments.CreateIntent(ctx, booking.OrderID, totalPrice)
		if err != nil {
			s.log.Error("Failed to create payment intent",
				zap.Error(err),
				zap.String("order_id", booking.OrderID),
			)
		} else {
			paymentURL = intent.PaymentURL
		}
	}

	s.notifier.PublishSeatsChanged(ctx, showtimeID.String(), labels, realtime.SeatsHeld)

	resp := s.buildBookingResponse(ctx, booking, labels)
	resp.PaymentURL = paymentURL
	return resp, nil
}

func (s *bookingService) ConfirmOnPayment(ctx context.Context, req *request.PaymentWebhookRequest) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Payment webhook validation failed", zap.Any("errors", errs))
		return fmt.Errorf("%w: %s", repository.ErrValidation, utils.FormatValidationErrors(errs))
	}

	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return fmt.Errorf("invalid booking ID format %s: %w", req.BookingID, err)
	}

	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("load booking: %w", err)
	}
	if booking == nil {
		return repository.ErrBookingNotFound
	}

	if req.Outcome == "success" {
		return s.confirm(ctx, booking, req.ProviderTransactionID)
	}
	return s.declinePayment(ctx, booking)
}

func (s *bookingService) confirm(ctx context.Context, booking *entity.Booking, providerTxnID string) error {
	now := time.Now()

	moved, err := s.repo.Booking.ConfirmIfPending(ctx, booking.ID, now)
	if err != nil {
		return err
	}

	if !moved {
		// The sweeper or a duplicate webhook got there first. A repeated
		// success event on a confirmed booking is success, not an error.
		current, err := s.repo.Booking.FindByID(ctx, booking.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return repository.ErrBookingNotFound
		}
		if current.Status == entity.BookingStatusConfirmed {
			s.log.Info("Duplicate payment success ignored",
				zap.String("booking_id", booking.ID.String()),
			)
			return nil
		}
		return fmt.Errorf("%w: booking %s is %s", repository.ErrBookingNotPending,
			booking.ID.String(), string(current.Status))
	}

	payment := &entity.Payment{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingID:     booking.ID,
		Amount:        booking.TotalPrice,
		Status:        entity.PaymentStatusPaid,
		ProviderTxnID: providerTxnID,
		PaidAt:        now,
	}
	if err := s.repo.Payment.Create(ctx, payment); err != nil {
		// The confirmed status is authoritative; a failed payment record
		// write is surfaced in logs, not rolled back.
		s.log.Error("Failed to persist payment record",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
	}

	s.log.Info("Booking confirmed",
		zap.String("booking_id", booking.ID.String()),
		zap.String("order_id", booking.OrderID),
		zap.String("provider_txn_id", providerTxnID),
	)

	// Seats stay occupied, but watchers re-render them as sold rather than
	// on a countdown hold.
	s.notifier.PublishSeatsChanged(ctx, booking.ShowtimeID.String(), s.seatLabels(ctx, booking.ID), realtime.SeatsHeld)
	s.notifier.PublishBookingStatus(ctx, booking.UserID.String(), booking.ID.String(), string(entity.BookingStatusConfirmed))
	return nil
}

func (s *bookingService) declinePayment(ctx context.Context, booking *entity.Booking) error {
	// Declined, not timed out: canceled rather than expired.
	moved, err := s.repo.Booking.UpdateStatusIf(ctx, booking.ID, entity.BookingStatusPending, entity.BookingStatusCanceled)
	if err != nil {
		return err
	}

	if !moved {
		current, err := s.repo.Booking.FindByID(ctx, booking.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return repository.ErrBookingNotFound
		}
		if current.Status == entity.BookingStatusCanceled {
			return nil
		}
		return fmt.Errorf("%w: booking %s is %s", repository.ErrBookingNotPending,
			booking.ID.String(), string(current.Status))
	}

	s.log.Info("Booking canceled on payment failure",
		zap.String("booking_id", booking.ID.String()),
		zap.String("order_id", booking.OrderID),
	)

	s.publishSeatsReleased(ctx, booking)
	s.notifier.PublishBookingStatus(ctx, booking.UserID.String(), booking.ID.String(), string(entity.BookingStatusCanceled))
	return nil
}

func (s *bookingService) CancelBooking(ctx context.Context, userID, bookingID string) error {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("invalid user ID format %s: %w", userID, err)
	}

	id, err := uuid.Parse(bookingID)
	if err != nil {
		return fmt.Errorf("invalid booking ID format %s: %w", bookingID, err)
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load booking: %w", err)
	}
	if booking == nil {
		return repository.ErrBookingNotFound
	}

	if booking.UserID != userUUID {
		return fmt.Errorf("%w: booking belongs to another user", repository.ErrForbidden)
	}

	if booking.Status != entity.BookingStatusConfirmed {
		return fmt.Errorf("%w: booking is %s", repository.ErrInvalidState, string(booking.Status))
	}

	if time.Now().After(booking.CreatedAt.Add(s.config.Booking.CancelWindow)) {
		return fmt.Errorf("%w: cancellation window has passed", repository.ErrForbidden)
	}

	moved, err := s.repo.Booking.UpdateStatusIf(ctx, id, entity.BookingStatusConfirmed, entity.BookingStatusCanceled)
	if err != nil {
		return err
	}
	if !moved {
		return fmt.Errorf("%w: booking is no longer confirmed", repository.ErrInvalidState)
	}

	s.log.Info("Booking canceled by user",
		zap.String("booking_id", bookingID),
		zap.String("order_id", booking.OrderID),
	)

	// Refund is fire-once. The canceled status is authoritative even when
	// the provider call fails; failures are retried out-of-band.
	if s.payments.Enabled() {
		if _, err := s.payments.Refund(ctx, booking.OrderID, booking.TotalPrice); err != nil {
			s.log.Error("Refund request failed",
				zap.Error(err),
				zap.String("order_id", booking.OrderID),
			)
		} else if err := s.repo.Payment.MarkRefunded(ctx, id); err != nil {
			s.log.Error("Failed to mark payment refunded", zap.Error(err))
		}
	}

	s.publishSeatsReleased(ctx, booking)
	s.notifier.PublishBookingStatus(ctx, userID, bookingID, string(entity.BookingStatusCanceled))
	return nil
}

func (s *bookingService) ExpireStale(ctx context.Context) (int, error) {
	now := time.Now()

	expired, err := s.repo.Booking.ExpireStale(ctx, now, s.config.Sweeper.BatchSize)
	if err != nil {
		return 0, err
	}

	for _, booking := range expired {
		s.log.Info("Booking hold expired",
			zap.String("booking_id", booking.ID.String()),
			zap.String("order_id", booking.OrderID),
		)
		s.publishSeatsReleased(ctx, booking)
		s.notifier.PublishBookingStatus(ctx, booking.UserID.String(), booking.ID.String(), string(entity.BookingStatusExpired))
	}

	return len(expired), nil
}

func (s *bookingService) MarkUsed(ctx context.Context) (int64, error) {
	return s.repo.Booking.MarkUsedForElapsed(ctx, time.Now(), s.config.Sweeper.BatchSize)
}

func (s *bookingService) GetBooking(ctx context.Context, userID, bookingID string) (*response.BookingResponse, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format %s: %w", userID, err)
	}

	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("invalid booking ID format %s: %w", bookingID, err)
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if booking == nil || booking.UserID != userUUID {
		// Another user's booking is indistinguishable from a missing one.
		return nil, repository.ErrBookingNotFound
	}

	return s.buildBookingResponse(ctx, booking, s.seatLabels(ctx, booking.ID)), nil
}

func (s *bookingService) GetUserBookings(ctx context.Context, userID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format %s: %w", userID, err)
	}

	bookings, err := s.repo.Booking.FindByUserID(ctx, userUUID, req.Limit(), req.Offset())
	if err != nil {
		return nil, fmt.Errorf("get user bookings: %w", err)
	}

	total, err := s.repo.Booking.CountByUserID(ctx, userUUID)
	if err != nil {
		return nil, fmt.Errorf("count user bookings: %w", err)
	}

	bookingResponses := make([]response.BookingResponse, len(bookings))
	for i, booking := range bookings {
		bookingResponses[i] = *s.buildBookingResponse(ctx, booking, s.seatLabels(ctx, booking.ID))
	}

	return response.NewPaginatedResponse(bookingResponses, req.Page, req.PerPage, total), nil
}

func (s *bookingService) GetShowtimeSeats(ctx context.Context, showtimeID string) (*response.ShowtimeSeatsResponse, error) {
	id, err := uuid.Parse(showtimeID)
	if err != nil {
		return nil, fmt.Errorf("invalid showtime ID format %s: %w", showtimeID, err)
	}

	showtime, err := s.repo.Showtime.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load showtime: %w", err)
	}
	if showtime == nil {
		return nil, repository.ErrShowtimeNotFound
	}

	layout, err := s.repo.Seat.FindByRoomID(ctx, showtime.RoomID)
	if err != nil {
		return nil, fmt.Errorf("load room layout: %w", err)
	}

	held, err := s.repo.BookingSeat.FindHeldSeats(ctx, id, time.Now())
	if err != nil {
		return nil, fmt.Errorf("load held seats: %w", err)
	}

	states := make(map[uuid.UUID]response.SeatState, len(held))
	for _, hs := range held {
		if hs.Status == entity.BookingStatusConfirmed {
			states[hs.SeatID] = response.SeatStateSold
		} else {
			states[hs.SeatID] = response.SeatStateHeld
		}
	}

	resp := &response.ShowtimeSeatsResponse{
		ShowtimeID: showtimeID,
		StartsAt:   showtime.StartsAt,
		Seats:      make([]response.SeatResponse, len(layout)),
	}

	if movie, _ := s.repo.Movie.FindByID(ctx, showtime.MovieID); movie != nil {
		resp.MovieTitle = movie.Title
	}

	for i, seat := range layout {
		state := response.SeatStateAvailable
		if st, ok := states[seat.ID]; ok {
			state = st
		}
		resp.Seats[i] = response.SeatResponse{
			ID:     seat.ID.String(),
			Row:    seat.SeatRow,
			Number: seat.SeatNumber,
			Type:   seat.SeatType,
			Price:  seat.Price,
			State:  state,
		}
	}

	return resp, nil
}

// ==================== HELPER METHODS ====================

// resolveSeats maps the requested (row, number) pairs onto the room layout.
// Unknown or duplicated seats are a validation error, not a conflict.
func resolveSeats(layout []*entity.Seat, refs []request.SeatRef) ([]*entity.Seat, error) {
	byPos := make(map[string]*entity.Seat, len(layout))
	for _, seat := range layout {
		byPos[seat.Label()] = seat
	}

	seen := make(map[string]bool, len(refs))
	seats := make([]*entity.Seat, 0, len(refs))
	for _, ref := range refs {
		label := fmt.Sprintf("%s%d", ref.Row, ref.Number)
		if seen[label] {
			return nil, fmt.Errorf("%w: seat %s requested twice", repository.ErrInvalidSeats, label)
		}
		seen[label] = true

		seat, ok := byPos[label]
		if !ok {
			return nil, fmt.Errorf("%w: seat %s is not part of this room", repository.ErrInvalidSeats, label)
		}
		seats = append(seats, seat)
	}

	return seats, nil
}

func labelsFor(layout []*entity.Seat, seatIDs []uuid.UUID) []string {
	byID := make(map[uuid.UUID]*entity.Seat, len(layout))
	for _, seat := range layout {
		byID[seat.ID] = seat
	}

	labels := make([]string, 0, len(seatIDs))
	for _, id := range seatIDs {
		if seat, ok := byID[id]; ok {
			labels = append(labels, seat.Label())
		} else {
			labels = append(labels, id.String())
		}
	}
	return labels
}

// seatLabels loads the display labels for a booking's seats. Best-effort:
// response building never fails the request over seat lookups.
func (s *bookingService) seatLabels(ctx context.Context, bookingID uuid.UUID) []string {
	seatIDs, err := s.repo.BookingSeat.FindSeatIDsByBookingID(ctx, bookingID)
	if err != nil || len(seatIDs) == 0 {
		return nil
	}

	seats, err := s.repo.Seat.FindByIDs(ctx, seatIDs)
	if err != nil {
		return nil
	}

	labels := make([]string, len(seats))
	for i, seat := range seats {
		labels[i] = seat.Label()
	}
	return labels
}

func (s *bookingService) publishSeatsReleased(ctx context.Context, booking *entity.Booking) {
	labels := s.seatLabels(ctx, booking.ID)
	s.notifier.PublishSeatsChanged(ctx, booking.ShowtimeID.String(), labels, realtime.SeatsReleased)
}

func (s *bookingService) buildBookingResponse(ctx context.Context, booking *entity.Booking, seatLabels []string) *response.BookingResponse {
	resp := &response.BookingResponse{
		ID:         booking.ID.String(),
		OrderID:    booking.OrderID,
		UserID:     booking.UserID.String(),
		ShowtimeID: booking.ShowtimeID.String(),
		TotalSeats: booking.TotalSeats,
		TotalPrice: booking.TotalPrice,
		Status:     booking.Status,
		Seats:      seatLabels,
		ExpiresAt:  booking.ExpiresAt,
		CreatedAt:  booking.CreatedAt,
	}

	showtime, _ := s.repo.Showtime.FindByID(ctx, booking.ShowtimeID)
	if showtime != nil {
		startsAt := showtime.StartsAt
		resp.StartsAt = &startsAt

		if movie, _ := s.repo.Movie.FindByID(ctx, showtime.MovieID); movie != nil {
			resp.MovieTitle = movie.Title
		}
	}

	if payment, _ := s.repo.Payment.FindByBookingID(ctx, booking.ID); payment != nil {
		paymentResp := response.PaymentToResponse(payment)
		resp.Payment = &paymentResp
	}

	return resp
}
