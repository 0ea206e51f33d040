package usecase

import (
	"movie-booking/internal/data/repository"
	"movie-booking/internal/external"
	"movie-booking/internal/realtime"
	"movie-booking/pkg/utils"

	"go.uber.org/zap"
)

// Service bundles the use cases the HTTP layer depends on.
type Service struct {
	Auth    AuthService
	Booking BookingService
}

func NewService(
	repo *repository.Repository,
	config *utils.Config,
	notifier *realtime.Notifier,
	payments *external.PaymentClient,
	log *zap.Logger,
) *Service {
	return &Service{
		Auth:    NewAuthService(repo, config, log),
		Booking: NewBookingService(repo, config, notifier, payments, log),
	}
}
