package wire

import (
	"net/http"

	"movie-booking/internal/adaptor"
	"movie-booking/internal/data/repository"
	"movie-booking/internal/external"
	"movie-booking/internal/realtime"
	"movie-booking/internal/sweeper"
	"movie-booking/internal/usecase"
	"movie-booking/pkg/middleware"
	"movie-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App holds the wired application.
type App struct {
	Router  *chi.Mux
	Sweeper *sweeper.Sweeper
	Broker  realtime.Broker
}

// Wiring initializes all dependencies. A nil redis client keeps real-time
// events on the in-process bus (single-instance mode).
func Wiring(repo *repository.Repository, config *utils.Config, rdb *redis.Client, logger *zap.Logger) *App {
	hub := realtime.NewHub(logger)

	var broker realtime.Broker
	if rdb != nil {
		broker = realtime.NewRedisBroker(rdb, hub, logger)
	} else {
		broker = realtime.NewInProcessBroker(hub)
	}

	notifier := realtime.NewNotifier(broker, logger)
	payments := external.NewPaymentClient(config.Payment, logger)

	service := usecase.NewService(repo, config, notifier, payments, logger)
	handler := adaptor.NewHandler(service, hub, logger)

	router := setupRouter(handler, repo, config, logger)

	return &App{
		Router:  router,
		Sweeper: sweeper.New(service.Booking, config.Sweeper.Interval, logger),
		Broker:  broker,
	}
}

func setupRouter(
	handler *adaptor.Handler,
	repo *repository.Repository,
	config *utils.Config,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS())

	// Apply routes
	wireAuth(r, handler.Auth, repo, config, logger)
	wireBooking(r, handler.Booking, handler.Webhook, repo, config, logger)
	wireRealtime(r, handler.WS, repo, logger)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
