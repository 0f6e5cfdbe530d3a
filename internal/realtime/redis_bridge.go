package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/wolfman30/agency-backoffice/internal/notify"
	"github.com/wolfman30/agency-backoffice/pkg/logging"
)

// DefaultChannel is the Redis channel that carries notification changes.
const DefaultChannel = "admin_notifications:changes"

// RedisBridge shares the change feed across API instances. Publish goes
// through Redis; Run relays everything on the channel into the local hub,
// including this instance's own publishes.
type RedisBridge struct {
	client  *redis.Client
	channel string
	hub     *Hub
	logger  *logging.Logger
}

// NewRedisBridge returns nil when client is nil so callers can fall back to the hub.
func NewRedisBridge(client *redis.Client, hub *Hub, channel string, logger *logging.Logger) *RedisBridge {
	if client == nil || hub == nil {
		return nil
	}
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisBridge{client: client, channel: channel, hub: hub, logger: logger}
}

// Publish sends the change to every instance. On Redis failure it delivers
// locally so connected admins on this instance still see it.
func (b *RedisBridge) Publish(ctx context.Context, change notify.Change) {
	payload, err := json.Marshal(change)
	if err != nil {
		b.logger.Error("realtime: encode change failed", "error", err)
		return
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.logger.Warn("realtime: redis publish failed, delivering locally", "error", err)
		b.hub.deliver(change.New.UserID, payload)
	}
}

// Run relays channel messages to the hub until ctx is done.
func (b *RedisBridge) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("realtime: subscribe %s: %w", b.channel, err)
	}
	b.logger.Info("realtime: redis bridge subscribed", "channel", b.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var change notify.Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				b.logger.Warn("realtime: dropping malformed change", "error", err)
				continue
			}
			b.hub.deliver(change.New.UserID, []byte(msg.Payload))
		}
	}
}

var _ notify.Publisher = (*RedisBridge)(nil)
