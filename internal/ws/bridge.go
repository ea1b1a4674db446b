package ws

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"messaging-service/internal/models"
)

// Bridge relays user-addressed events between service instances over a
// Redis channel. Each instance tags outgoing envelopes with its origin
// id and ignores its own messages on the way back in.
type Bridge struct {
	rdb     *redis.Client
	channel string
	origin  string
	logger  *zap.Logger
}

type bridgeEnvelope struct {
	Origin string              `json:"origin"`
	UserID int                 `json:"user_id"`
	Event  models.ChannelEvent `json:"event"`
}

// NewBridge constructs a Bridge on the given Redis client and channel.
func NewBridge(rdb *redis.Client, channel string, logger *zap.Logger) *Bridge {
	return &Bridge{
		rdb:     rdb,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger,
	}
}

// Forward publishes an event addressed to a user so other instances
// can deliver it to connections they hold.
func (b *Bridge) Forward(ctx context.Context, userID int, event models.ChannelEvent) error {
	payload, err := json.Marshal(bridgeEnvelope{Origin: b.origin, UserID: userID, Event: event})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, payload).Err()
}

// Run subscribes to the bridge channel and hands remote envelopes to
// deliver until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context, deliver func(userID int, event models.ChannelEvent)) {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var envelope bridgeEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				b.logger.Warn("bridge envelope decode failed", zap.Error(err))
				continue
			}
			if envelope.Origin == b.origin {
				continue
			}
			deliver(envelope.UserID, envelope.Event)
		}
	}
}
