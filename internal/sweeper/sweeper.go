package sweeper

import (
	"context"
	"sync"
	"time"

	"movie-booking/internal/usecase"

	"go.uber.org/zap"
)

// Sweeper periodically expires stale pending bookings and retires bookings
// whose showtime has ended. It is safe to run on every instance: the batch
// queries skip rows another instance already locked.
type Sweeper struct {
	bookings usecase.BookingService
	interval time.Duration
	log      *zap.Logger

	stopOnce sync.Once
	done     chan struct{}
	stopped  chan struct{}
}

func New(bookings usecase.BookingService, interval time.Duration, log *zap.Logger) *Sweeper {
	return &Sweeper{
		bookings: bookings,
		interval: interval,
		log:      log.With(zap.String("component", "sweeper")),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	s.log.Info("Sweeper started", zap.Duration("interval", s.interval))

	go func() {
		defer close(s.stopped)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.done:
				s.log.Info("Sweeper stopped")
				return
			}
		}
	}()
}

// Stop signals the loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
	<-s.stopped
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	// Drain all due holds, one batch per iteration. A full batch means more
	// rows may be waiting.
	for {
		expired, err := s.bookings.ExpireStale(ctx)
		if err != nil {
			s.log.Error("Failed to expire stale bookings", zap.Error(err))
			break
		}
		if expired > 0 {
			s.log.Info("Expired stale bookings", zap.Int("count", expired))
		}
		if expired == 0 {
			break
		}
	}

	used, err := s.bookings.MarkUsed(ctx)
	if err != nil {
		s.log.Error("Failed to mark elapsed bookings used", zap.Error(err))
		return
	}
	if used > 0 {
		s.log.Info("Marked elapsed bookings used", zap.Int64("count", used))
	}
}
