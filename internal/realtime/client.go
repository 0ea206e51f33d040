package realtime

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 32
)

// subscribeMessage is the only inbound message clients send.
type subscribeMessage struct {
	Type    string `json:"type"` // subscribe | unsubscribe
	Channel string `json:"channel"`
}

// Client is one WebSocket connection. It may subscribe to any showtime
// channel and to its own user channel.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan Event
	userID uuid.UUID
	log    *zap.Logger

	closeOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, log *zap.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan Event, sendBuffer),
		userID: userID,
		log:    log.With(zap.String("component", "realtime_client")),
	}
}

// Run services the connection until it closes, then detaches the client from
// all channels.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Detach(c)
		c.close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("Unexpected websocket close", zap.Error(err))
			}
			return
		}

		var msg subscribeMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.log.Warn("Malformed realtime message", zap.Error(err))
			continue
		}

		if !c.allowed(msg.Channel) {
			c.log.Warn("Rejected channel subscription",
				zap.String("channel", msg.Channel),
				zap.String("user_id", c.userID.String()),
			)
			continue
		}

		switch msg.Type {
		case "subscribe":
			c.hub.Subscribe(msg.Channel, c)
		case "unsubscribe":
			c.hub.Unsubscribe(msg.Channel, c)
		}
	}
}

// allowed restricts user channels to the connection's own user. Showtime
// channels are public: seat state is visible to everyone browsing them.
func (c *Client) allowed(channel string) bool {
	if strings.HasPrefix(channel, "showtime:") {
		return true
	}
	return channel == UserChannel(c.userID)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(event); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
