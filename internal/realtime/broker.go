package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Broker moves events between publishers and the hub. The in-process broker
// is enough for a single instance; the Redis broker relays events through
// pub/sub so every instance's hub sees every event.
type Broker interface {
	Publish(ctx context.Context, channel string, event Event)
	Close() error
}

// ---------------------------------------------------------------------------

type inProcessBroker struct {
	hub *Hub
}

func NewInProcessBroker(hub *Hub) Broker {
	return &inProcessBroker{hub: hub}
}

func (b *inProcessBroker) Publish(_ context.Context, channel string, event Event) {
	b.hub.Deliver(channel, event)
}

func (b *inProcessBroker) Close() error { return nil }

// ---------------------------------------------------------------------------

const redisChannelPrefix = "rt:"

type redisBroker struct {
	rdb    *redis.Client
	hub    *Hub
	log    *zap.Logger
	cancel context.CancelFunc
}

// NewRedisBroker starts relaying pub/sub messages into the hub immediately.
func NewRedisBroker(rdb *redis.Client, hub *Hub, log *zap.Logger) Broker {
	ctx, cancel := context.WithCancel(context.Background())

	b := &redisBroker{
		rdb:    rdb,
		hub:    hub,
		log:    log.With(zap.String("component", "redis_broker")),
		cancel: cancel,
	}

	go b.relay(ctx)

	return b
}

func (b *redisBroker) Publish(ctx context.Context, channel string, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		b.log.Error("Failed to marshal realtime event", zap.Error(err))
		return
	}

	// Best-effort: a failed publish is logged and swallowed, never surfaced
	// to the booking operation that triggered it.
	if err := b.rdb.Publish(ctx, redisChannelPrefix+channel, payload).Err(); err != nil {
		b.log.Error("Failed to publish realtime event",
			zap.Error(err),
			zap.String("channel", channel),
		)
	}
}

func (b *redisBroker) relay(ctx context.Context) {
	pubsub := b.rdb.PSubscribe(ctx, redisChannelPrefix+"*")
	defer pubsub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-pubsub.Channel():
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.log.Warn("Malformed realtime event from redis", zap.Error(err))
				continue
			}

			b.hub.Deliver(msg.Channel[len(redisChannelPrefix):], event)
		}
	}
}

func (b *redisBroker) Close() error {
	b.cancel()
	return nil
}

// ---------------------------------------------------------------------------

// Notifier is the publish side used by the booking service and the sweeper.
type Notifier struct {
	broker Broker
	log    *zap.Logger
}

func NewNotifier(broker Broker, log *zap.Logger) *Notifier {
	return &Notifier{
		broker: broker,
		log:    log.With(zap.String("component", "notifier")),
	}
}

// PublishSeatsChanged tells everyone watching a showtime that seats became
// held or released.
func (n *Notifier) PublishSeatsChanged(ctx context.Context, showtimeID string, seats []string, state HoldState) {
	if len(seats) == 0 {
		return
	}

	n.broker.Publish(ctx, "showtime:"+showtimeID, Event{
		Type:       EventSeatsChanged,
		ShowtimeID: showtimeID,
		Seats:      seats,
		HoldState:  state,
	})
}

// PublishBookingStatus tells a user's own connections that one of their
// bookings changed state.
func (n *Notifier) PublishBookingStatus(ctx context.Context, userID, bookingID, status string) {
	n.broker.Publish(ctx, "user:"+userID, Event{
		Type:      EventBookingStatus,
		BookingID: bookingID,
		Status:    status,
	})
}
