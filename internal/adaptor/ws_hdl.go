package adaptor

import (
	"net/http"

	"movie-booking/internal/realtime"
	"movie-booking/pkg/utils"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WSHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewWSHandler(hub *realtime.Hub, log *zap.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Session auth guards the endpoint; cross-origin browser clients
			// are expected.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log.With(zap.String("handler", "ws")),
	}
}

// Serve upgrades the request and runs the connection until it closes. Clients
// pick channels themselves with subscribe messages.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "User not authenticated")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	h.log.Debug("Websocket connected", zap.String("user_id", userID.String()))
	realtime.NewClient(h.hub, conn, userID, h.log).Run()
}
