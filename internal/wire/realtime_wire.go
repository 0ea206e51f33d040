package wire

import (
	"movie-booking/internal/adaptor"
	"movie-booking/internal/data/repository"
	"movie-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireRealtime(
	r chi.Router,
	wsHandler *adaptor.WSHandler,
	repo *repository.Repository,
	log *zap.Logger,
) {
	// GET /api/ws - WebSocket endpoint for seat map and booking updates
	r.With(middleware.AuthSession(repo.Session, log)).Get("/api/ws", wsHandler.Serve)
}
