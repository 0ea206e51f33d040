package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"movie-booking/internal/data/entity"
	"movie-booking/internal/data/repository"
	"movie-booking/internal/dto/request"
	"movie-booking/internal/dto/response"
	"movie-booking/internal/external"
	"movie-booking/internal/realtime"
	"movie-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ==================== IN-MEMORY STORE ====================

// memStore backs fake repositories with the same transition semantics the SQL
// implementations have, guarded by one mutex so concurrent creates serialize
// the way the per-showtime row lock does.
type memStore struct {
	mu           sync.Mutex
	movies       map[uuid.UUID]*entity.Movie
	rooms        map[uuid.UUID]*entity.Room
	seats        map[uuid.UUID]*entity.Seat
	showtimes    map[uuid.UUID]*entity.Showtime
	bookings     map[uuid.UUID]*entity.Booking
	bookingSeats map[uuid.UUID][]uuid.UUID
	payments     map[uuid.UUID]*entity.Payment
}

func newMemStore() *memStore {
	return &memStore{
		movies:       make(map[uuid.UUID]*entity.Movie),
		rooms:        make(map[uuid.UUID]*entity.Room),
		seats:        make(map[uuid.UUID]*entity.Seat),
		showtimes:    make(map[uuid.UUID]*entity.Showtime),
		bookings:     make(map[uuid.UUID]*entity.Booking),
		bookingSeats: make(map[uuid.UUID][]uuid.UUID),
		payments:     make(map[uuid.UUID]*entity.Payment),
	}
}

func (s *memStore) repository() *repository.Repository {
	return &repository.Repository{
		Movie:       memMovieRepo{s},
		Room:        memRoomRepo{s},
		Seat:        memSeatRepo{s},
		Showtime:    memShowtimeRepo{s},
		Booking:     memBookingRepo{s},
		BookingSeat: memBookingSeatRepo{s},
		Payment:     memPaymentRepo{s},
	}
}

// live mirrors the SQL predicate: confirmed, or pending with an unexpired hold.
func live(b *entity.Booking, now time.Time) bool {
	return b.IsLive(now)
}

type memMovieRepo struct{ s *memStore }

func (r memMovieRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Movie, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.movies[id], nil
}

type memRoomRepo struct{ s *memStore }

func (r memRoomRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.rooms[id], nil
}

type memSeatRepo struct{ s *memStore }

func (r memSeatRepo) FindByRoomID(_ context.Context, roomID uuid.UUID) ([]*entity.Seat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var seats []*entity.Seat
	for _, seat := range r.s.seats {
		if seat.RoomID == roomID {
			seats = append(seats, seat)
		}
	}
	return seats, nil
}

func (r memSeatRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]*entity.Seat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var seats []*entity.Seat
	for _, id := range ids {
		if seat, ok := r.s.seats[id]; ok {
			seats = append(seats, seat)
		}
	}
	return seats, nil
}

type memShowtimeRepo struct{ s *memStore }

func (r memShowtimeRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Showtime, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.showtimes[id], nil
}

func (r memShowtimeRepo) FindActiveByID(_ context.Context, id uuid.UUID) (*entity.Showtime, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st := r.s.showtimes[id]
	if st == nil || !st.IsActive {
		return nil, nil
	}
	return st, nil
}

type memBookingRepo struct{ s *memStore }

func (r memBookingRepo) CreateWithSeats(_ context.Context, booking *entity.Booking, seatIDs []uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.showtimes[booking.ShowtimeID]; !ok {
		return repository.ErrShowtimeNotFound
	}

	var conflicts []uuid.UUID
	for _, b := range r.s.bookings {
		if b.ShowtimeID != booking.ShowtimeID || !live(b, booking.CreatedAt) {
			continue
		}
		for _, held := range r.s.bookingSeats[b.ID] {
			for _, want := range seatIDs {
				if held == want {
					conflicts = append(conflicts, want)
				}
			}
		}
	}
	if len(conflicts) > 0 {
		return &repository.SeatConflictError{SeatIDs: conflicts}
	}

	copied := *booking
	r.s.bookings[booking.ID] = &copied
	r.s.bookingSeats[booking.ID] = append([]uuid.UUID(nil), seatIDs...)
	return nil
}

func (r memBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, nil
	}
	copied := *b
	return &copied, nil
}

func (r memBookingRepo) FindByUserID(_ context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Booking
	for _, b := range r.s.bookings {
		if b.UserID == userID {
			copied := *b
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r memBookingRepo) CountByUserID(_ context.Context, userID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for _, b := range r.s.bookings {
		if b.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r memBookingRepo) ConfirmIfPending(_ context.Context, bookingID uuid.UUID, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[bookingID]
	if !ok || b.Status != entity.BookingStatusPending || b.ExpiresAt == nil || !b.ExpiresAt.After(now) {
		return false, nil
	}
	b.Status = entity.BookingStatusConfirmed
	b.ExpiresAt = nil
	return true, nil
}

func (r memBookingRepo) UpdateStatusIf(_ context.Context, bookingID uuid.UUID, from, to entity.BookingStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[bookingID]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	return true, nil
}

func (r memBookingRepo) ExpireStale(_ context.Context, now time.Time, limit int) ([]*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var expired []*entity.Booking
	for _, b := range r.s.bookings {
		if len(expired) >= limit {
			break
		}
		if b.Status == entity.BookingStatusPending && b.ExpiresAt != nil && b.ExpiresAt.Before(now) {
			b.Status = entity.BookingStatusExpired
			copied := *b
			expired = append(expired, &copied)
		}
	}
	return expired, nil
}

func (r memBookingRepo) MarkUsedForElapsed(_ context.Context, now time.Time, limit int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var used int64
	for _, b := range r.s.bookings {
		if used >= int64(limit) {
			break
		}
		st := r.s.showtimes[b.ShowtimeID]
		if b.Status == entity.BookingStatusConfirmed && st != nil && st.EndsAt.Before(now) {
			b.Status = entity.BookingStatusUsed
			used++
		}
	}
	return used, nil
}

type memBookingSeatRepo struct{ s *memStore }

func (r memBookingSeatRepo) FindSeatIDsByBookingID(_ context.Context, bookingID uuid.UUID) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]uuid.UUID(nil), r.s.bookingSeats[bookingID]...), nil
}

func (r memBookingSeatRepo) FindHeldSeats(_ context.Context, showtimeID uuid.UUID, now time.Time) ([]repository.HeldSeat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var held []repository.HeldSeat
	for _, b := range r.s.bookings {
		if b.ShowtimeID != showtimeID || !live(b, now) {
			continue
		}
		for _, seatID := range r.s.bookingSeats[b.ID] {
			held = append(held, repository.HeldSeat{SeatID: seatID, Status: b.Status})
		}
	}
	return held, nil
}

type memPaymentRepo struct{ s *memStore }

func (r memPaymentRepo) Create(_ context.Context, payment *entity.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.payments[payment.BookingID]; ok {
		return nil
	}
	copied := *payment
	r.s.payments[payment.BookingID] = &copied
	return nil
}

func (r memPaymentRepo) FindByBookingID(_ context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[bookingID]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (r memPaymentRepo) MarkRefunded(_ context.Context, bookingID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.payments[bookingID]; ok {
		p.Status = entity.PaymentStatusRefunded
	}
	return nil
}

// captureBroker records published events for assertions.
type captureBroker struct {
	mu     sync.Mutex
	events []capturedEvent
}

type capturedEvent struct {
	channel string
	event   realtime.Event
}

func (b *captureBroker) Publish(_ context.Context, channel string, event realtime.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, capturedEvent{channel: channel, event: event})
}

func (b *captureBroker) Close() error { return nil }

func (b *captureBroker) byType(t realtime.EventType) []capturedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []capturedEvent
	for _, e := range b.events {
		if e.event.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// ==================== FIXTURE ====================

type fixture struct {
	store    *memStore
	broker   *captureBroker
	service  BookingService
	userID   uuid.UUID
	showtime *entity.Showtime
	seats    map[string]*entity.Seat // by label
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newMemStore()
	now := time.Now()

	movie := &entity.Movie{
		Base:              entity.Base{ID: uuid.New()},
		Title:             "Interstellar",
		DurationInMinutes: 169,
	}
	store.movies[movie.ID] = movie

	room := &entity.Room{
		Base:       entity.Base{ID: uuid.New()},
		TheaterID:  uuid.New(),
		RoomNumber: 1,
		TotalSeats: 5,
	}
	store.rooms[room.ID] = room

	seats := make(map[string]*entity.Seat)
	for i := 1; i <= 5; i++ {
		seat := &entity.Seat{
			Base:       entity.Base{ID: uuid.New()},
			RoomID:     room.ID,
			SeatRow:    "A",
			SeatNumber: i,
			SeatType:   entity.SeatTypeRegular,
			Price:      50,
		}
		store.seats[seat.ID] = seat
		seats[seat.Label()] = seat
	}

	showtime := &entity.Showtime{
		Base:     entity.Base{ID: uuid.New()},
		MovieID:  movie.ID,
		RoomID:   room.ID,
		StartsAt: now.Add(2 * time.Hour),
		EndsAt:   now.Add(5 * time.Hour),
		IsActive: true,
	}
	store.showtimes[showtime.ID] = showtime

	broker := &captureBroker{}
	logger := zap.NewNop()
	config := &utils.Config{
		Booking: utils.BookingConfig{
			HoldDuration: 5 * time.Minute,
			CancelWindow: 24 * time.Hour,
		},
		Sweeper: utils.SweeperConfig{BatchSize: 100},
	}

	service := NewBookingService(
		store.repository(),
		config,
		realtime.NewNotifier(broker, logger),
		external.NewPaymentClient(utils.PaymentConfig{}, logger),
		logger,
	)

	return &fixture{
		store:    store,
		broker:   broker,
		service:  service,
		userID:   uuid.New(),
		showtime: showtime,
		seats:    seats,
	}
}

func (f *fixture) createReq(seats []request.SeatRef, total float64) *request.CreateBookingRequest {
	return &request.CreateBookingRequest{
		ShowtimeID: f.showtime.ID.String(),
		Seats:      seats,
		TotalPrice: total,
	}
}

func seatRefs(numbers ...int) []request.SeatRef {
	refs := make([]request.SeatRef, len(numbers))
	for i, n := range numbers {
		refs[i] = request.SeatRef{Row: "A", Number: n}
	}
	return refs
}

// ==================== CREATE ====================

func TestCreateBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.service.CreateBooking(ctx, f.userID.String(), f.createReq(seatRefs(1, 2), 100))
	require.NoError(t, err)

	assert.Equal(t, entity.BookingStatusPending, resp.Status)
	assert.Equal(t, 2, resp.TotalSeats)
	assert.Equal(t, 100.0, resp.TotalPrice)
	require.NotNil(t, resp.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), *resp.ExpiresAt, 10*time.Second)
	assert.ElementsMatch(t, []string{"A1", "A2"}, resp.Seats)

	events := f.broker.byType(realtime.EventSeatsChanged)
	require.Len(t, events, 1)
	assert.Equal(t, "showtime:"+f.showtime.ID.String(), events[0].channel)
	assert.Equal(t, realtime.SeatsHeld, events[0].event.HoldState)
	assert.ElementsMatch(t, []string{"A1", "A2"}, events[0].event.Seats)
}

func TestCreateBookingSeatConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateBooking(ctx, f.userID.String(), f.createReq(seatRefs(1, 2), 100))
	require.NoError(t, err)

	// Another user wants A2 and A3 while A2 is still on hold.
	_, err = f.service.CreateBooking(ctx, uuid.New().String(), f.createReq(seatRefs(2, 3), 100))
	require.Error(t, err)

	var conflict *repository.SeatConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"A2"}, conflict.Labels)

	// A3 stayed free for the next attempt.
	_, err = f.service.CreateBooking(ctx, uuid.New().String(), f.createReq(seatRefs(3), 50))
	assert.NoError(t, err)
}

func TestCreateBookingExpiredHoldDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.service.CreateBooking(ctx, f.userID.String(), f.createReq(seatRefs(1), 50))
	require.NoError(t, err)

	// Simulate the hold deadline passing without the sweeper having run yet.
	f.store.mu.Lock()
	past := time.Now().Add(-time.Minute)
	f.store.bookings[uuid.MustParse(resp.ID)].ExpiresAt = &past
	f.store.mu.Unlock()

	_, err = f.service.CreateBooking(ctx, uuid.New().String(), f.createReq(seatRefs(1), 50))
	assert.NoError(t, err, "seat under an expired hold is available immediately")
}

func TestCreateBookingValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("unknown seat", func(t *testing.T) {
		_, err := f.service.CreateBooking(ctx, f.userID.String(), f.createReq([]request.SeatRef{{Row: "Z", Number: 9}}, 50))
		assert.ErrorIs(t, err, repository.ErrInvalidSeats)
	})

	t.Run("duplicate seat", func(t *testing.T) {
		_, err := f.service.CreateBooking(ctx, f.userID.String(), f.createReq(seatRefs(1, 1), 100))
		assert.ErrorIs(t, err, repository.ErrInvalidSeats)
	})

	t.Run("price mismatch", func(t *testing.T) {
		_, err := f.service.CreateBooking(ctx, f.userID.String(), f.createReq(seatRefs(1), 49))
		assert.ErrorIs(t, err, repository.ErrValidation)
	})

	t.Run("empty seats", func(t *testing.T) {
		_, err := f.service.CreateBooking(ctx, f.userID.String(), f.createReq(nil, 0))
		assert.ErrorIs(t, err, repository.ErrValidation)
	})

	t.Run("unknown showtime", func(t *testing.T) {
		req := f.createReq(seatRefs(1), 50)
		req.ShowtimeID = uuid.New().String()
		_, err := f.service.CreateBooking(ctx, f.userID.String(), req)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestCreateBookingShowtimeStarted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.mu.Lock()
	f.showtime.StartsAt = time.Now().Add(-time.Minute)
	f.store.mu.Unlock()

	_, err := f.service.CreateBooking(ctx, f.userID.String(), f.createReq(seatRefs(1), 50))
	assert.ErrorIs(t, err, repository.ErrInvalidState)
}

func TestCreateBookingConcurrentSameSeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const attempts = 8
	results := make(chan error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.CreateBooking(ctx, uuid.New().String(), f.createReq(seatRefs(4), 50))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		var conflict *repository.SeatConflictError
		require.ErrorAs(t, err, &conflict)
		conflicts++
	}

	assert.Equal(t, 1, wins, "exactly one contender gets the seat")
	assert.Equal(t, attempts-1, conflicts)
}

// ==================== PAYMENT WEBHOOK ====================

func webhook(bookingID, outcome string) *request.PaymentWebhookRequest {
	return &request.PaymentWebhookRequest{
		BookingID:             bookingID,
		Outcome:               outcome,
		ProviderTransactionID: "txn-" + uuid.NewString(),
	}
}

func TestConfirmOnPaymentSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.service.CreateBooking(ctx, f.userID.String(), f.createReq(seatRefs(1), 50))
	require.NoError(t, err)

	require.NoError(t, f.service.ConfirmOnPayment(ctx, webhook(resp.ID, "success")))

	booking, err := f.service.GetBooking(ctx, f.userID.String(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusConfirmed, booking.Status)
	assert.Nil(t, booking.ExpiresAt, "confirmed bookings have no hold deadline")
	require.NotNil(t, booking.Payment)
	assert.Equal(t, entity.PaymentStatusPaid, booking.Payment.Status)

	statusEvents := f.broker.byType(realtime.EventBookingStatus)
	require.Len(t, statusEvents, 1)
	assert.Equal(t, "user:"+f.userID.String(), statusEvents[0].channel)
	assert.Equal(t, string(entity.BookingStatusConfirmed), statusEvents[0].event.Status)
}

func TestConfirmOnPaymentDuplicateSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.service.CreateBooking(ctx, f.userID.String(), f.createReq(seatRefs(1), 50))
	require.NoError(t, err)

	require.NoError(t, f.service.ConfirmOnPayment(ctx, webhook(resp.ID, "success")))
	require.NoError(t, f.service.ConfirmOnPayment(ctx, webhook(resp.ID, "success")), "redelivered webhook is a no-op")

	assert.Len(t, f.broker.byType(realtime.EventBookingStatus), 1, "no duplicate status event")
}

func TestConfirmOnPaymentAfterExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.service.CreateBooking(ctx, f.userID.String(), f.createReq(seatRefs(1), 50))
	require.NoError(t, err)

	f.store.mu.Lock()
	past := time.Now().Add(-time.Minute)
	f.store.bookings[uuid.MustParse(resp.ID)].ExpiresAt = &past
	f.store.mu.Unlock()

	_, err = f.service.ExpireStale(ctx)
	require.NoError(t, err)

	err = f.service.ConfirmOnPayment(ctx, webhook(resp.ID, "success"))
	assert.ErrorIs(t, err, repository.ErrBookingNotPending)
}

func TestConfirmOnPaymentFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.service.CreateBooking(ctx, f.userID.String(), f.createReq(seatRefs(1, 2), 100))
	require.NoError(t, err)

	require.NoError(t, f.service.ConfirmOnPayment(ctx, webhook(resp.ID, "failure")))

	booking, err := f.service.GetBooking(ctx, f.userID.String(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCanceled, booking.Status)

	// Held then released.
	seatEvents := f.broker.byType(realtime.EventSeatsChanged)
	require.Len(t, seatEvents, 2)
	assert.Equal(t, realtime.SeatsReleased, seatEvents[1].event.HoldState)
	assert.ElementsMatch(t, []string{"A1", "A2"}, seatEvents[1].event.Seats)

	// Seats are bookable again.
	_, err = f.service.CreateBooking(ctx, uuid.New().String(), f.createReq(seatRefs(1, 2), 100))
	assert.NoError(t, err)
}

func TestConfirmOnPaymentUnknownBooking(t *testing.T) {
	f := newFixture(t)

	err := f.service.ConfirmOnPayment(context.Background(), webhook(uuid.NewString(), "success"))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// ==================== CANCEL ====================

func TestCancelBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.service.CreateBooking(ctx, f.userID.String(), f.createReq(seatRefs(1), 50))
	require.NoError(t, err)
	require.NoError(t, f.service.ConfirmOnPayment(ctx, webhook(resp.ID, "success")))

	require.NoError(t, f.service.CancelBooking(ctx, f.userID.String(), resp.ID))

	booking, err := f.service.GetBooking(ctx, f.userID.String(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCanceled, booking.Status)

	seatEvents := f.broker.byType(realtime.EventSeatsChanged)
	require.NotEmpty(t, seatEvents)
	assert.Equal(t, realtime.SeatsReleased, seatEvents[len(seatEvents)-1].event.HoldState)
}

func TestCancelBookingRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.service.CreateBooking(ctx, f.userID.String(), f.createReq(seatRefs(1), 50))
	require.NoError(t, err)

	t.Run("pending booking cannot be canceled", func(t *testing.T) {
		err := f.service.CancelBooking(ctx, f.userID.String(), resp.ID)
		assert.ErrorIs(t, err, repository.ErrInvalidState)
	})

	require.NoError(t, f.service.ConfirmOnPayment(ctx, webhook(resp.ID, "success")))

	t.Run("other user forbidden", func(t *testing.T) {
		err := f.service.CancelBooking(ctx, uuid.NewString(), resp.ID)
		assert.ErrorIs(t, err, repository.ErrForbidden)
	})

	t.Run("window passed", func(t *testing.T) {
		f.store.mu.Lock()
		f.store.bookings[uuid.MustParse(resp.ID)].CreatedAt = time.Now().Add(-25 * time.Hour)
		f.store.mu.Unlock()

		err := f.service.CancelBooking(ctx, f.userID.String(), resp.ID)
		assert.ErrorIs(t, err, repository.ErrForbidden)
	})

	t.Run("unknown booking", func(t *testing.T) {
		err := f.service.CancelBooking(ctx, f.userID.String(), uuid.NewString())
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

// ==================== SWEEPER TRANSITIONS ====================

func TestExpireStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.service.CreateBooking(ctx, f.userID.String(), f.createReq(seatRefs(1), 50))
	require.NoError(t, err)
	second, err := f.service.CreateBooking(ctx, uuid.NewString(), f.createReq(seatRefs(2), 50))
	require.NoError(t, err)
	_, err = f.service.CreateBooking(ctx, uuid.NewString(), f.createReq(seatRefs(3), 50))
	require.NoError(t, err)

	f.store.mu.Lock()
	past := time.Now().Add(-time.Minute)
	f.store.bookings[uuid.MustParse(first.ID)].ExpiresAt = &past
	f.store.bookings[uuid.MustParse(second.ID)].ExpiresAt = &past
	f.store.mu.Unlock()

	expired, err := f.service.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, expired, "only due holds expire")

	expired, err = f.service.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, expired, "second sweep finds nothing")

	booking, err := f.service.GetBooking(ctx, f.userID.String(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusExpired, booking.Status)
}

func TestMarkUsed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.service.CreateBooking(ctx, f.userID.String(), f.createReq(seatRefs(1), 50))
	require.NoError(t, err)
	require.NoError(t, f.service.ConfirmOnPayment(ctx, webhook(resp.ID, "success")))

	f.store.mu.Lock()
	f.showtime.EndsAt = time.Now().Add(-time.Minute)
	f.store.mu.Unlock()

	used, err := f.service.MarkUsed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), used)

	booking, err := f.service.GetBooking(ctx, f.userID.String(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusUsed, booking.Status)
}

// ==================== READS ====================

func TestGetBookingScopedToOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.service.CreateBooking(ctx, f.userID.String(), f.createReq(seatRefs(1), 50))
	require.NoError(t, err)

	_, err = f.service.GetBooking(ctx, uuid.NewString(), resp.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound, "another user's booking reads as missing")
}

func TestGetShowtimeSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateBooking(ctx, f.userID.String(), f.createReq(seatRefs(1), 50))
	require.NoError(t, err)

	sold, err := f.service.CreateBooking(ctx, uuid.NewString(), f.createReq(seatRefs(2), 50))
	require.NoError(t, err)
	require.NoError(t, f.service.ConfirmOnPayment(ctx, webhook(sold.ID, "success")))

	resp, err := f.service.GetShowtimeSeats(ctx, f.showtime.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Interstellar", resp.MovieTitle)
	require.Len(t, resp.Seats, 5)

	states := make(map[string]response.SeatState)
	for _, seat := range resp.Seats {
		states[fmt.Sprintf("%s%d", seat.Row, seat.Number)] = seat.State
	}
	assert.Equal(t, response.SeatStateHeld, states["A1"])
	assert.Equal(t, response.SeatStateSold, states["A2"])
	assert.Equal(t, response.SeatStateAvailable, states["A3"])
}

func TestGetUserBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for n := 1; n <= 3; n++ {
		_, err := f.service.CreateBooking(ctx, f.userID.String(), f.createReq(seatRefs(n), 50))
		require.NoError(t, err)
	}
	_, err := f.service.CreateBooking(ctx, uuid.NewString(), f.createReq(seatRefs(4), 50))
	require.NoError(t, err)

	resp, err := f.service.GetUserBookings(ctx, f.userID.String(), &request.PaginatedRequest{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Len(t, resp.Data, 3)
	assert.Equal(t, int64(3), resp.Pagination.Total)
}
