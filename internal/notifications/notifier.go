package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"dreamio/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const streamChannelPattern = "live:stream:*"

// Notifier publishes viewer events to Redis so every API instance can fan them out.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier returns a notifier; a nil client disables cross-instance delivery.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether messages go through Redis.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishStream sends payload to the channel of streamID.
func (n *Notifier) PublishStream(ctx context.Context, streamID uint, payload string) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, StreamChannel(streamID), payload).Err()
}

// StartStreamSubscriber forwards every stream channel message to onMessage until ctx ends.
func (n *Notifier) StartStreamSubscriber(ctx context.Context, onMessage func(streamID uint, payload string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, streamChannelPattern)
	// Wait for the subscription so publishes right after start are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", streamChannelPattern, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var streamID uint
				if _, err := fmt.Sscanf(msg.Channel, "live:stream:%d", &streamID); err != nil {
					middleware.Logger.Warn("invalid stream channel", slog.String("channel", msg.Channel))
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in stream subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(streamID, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// StreamChannel is the Redis channel carrying events for one live stream.
func StreamChannel(streamID uint) string {
	return fmt.Sprintf("live:stream:%d", streamID)
}
