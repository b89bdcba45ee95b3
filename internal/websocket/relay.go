package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/flexbase/flexbase/internal/logger"
	"github.com/flexbase/flexbase/internal/metrics"
	"github.com/flexbase/flexbase/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const relayPrefix = "flexbase:"

// Relay fans events out through Redis pub/sub so every server instance
// delivers to its own connected clients. Without a Redis client it
// delivers straight to the local hub.
type Relay struct {
	rdb *redis.Client
	hub *Hub
}

var _ Publisher = (*Relay)(nil)

// NewRelay creates a Relay. rdb may be nil.
func NewRelay(rdb *redis.Client, hub *Hub) *Relay {
	return &Relay{rdb: rdb, hub: hub}
}

func userChannel(userID string) string { return relayPrefix + "user:" + userID }
func postChannel(postID string) string { return relayPrefix + "post:" + postID }

// PublishToUser implements Publisher
func (r *Relay) PublishToUser(userID string, message *Message) {
	if !r.publish(userChannel(userID), message) {
		r.hub.SendToUser(userID, message)
	}
}

// PublishToPost implements Publisher
func (r *Relay) PublishToPost(postID string, message *Message) {
	if !r.publish(postChannel(postID), message) {
		r.hub.SendToRoom(postID, message)
	}
}

// publish reports whether the message went out over Redis
func (r *Relay) publish(channel string, message *Message) bool {
	if r.rdb == nil {
		return false
	}

	data, err := json.Marshal(message)
	if err != nil {
		logger.Log.Error("Failed to marshal relay message", zap.String("channel", channel), zap.Error(err))
		return true
	}

	ctx, span := telemetry.TraceCacheCall(context.Background(), "publish", channel)
	defer span.End()

	err = r.rdb.Publish(ctx, channel, data).Err()
	telemetry.RecordServiceError(span, err)
	metrics.RecordRelayMessage("outbound", err)
	if err != nil {
		logger.Log.Warn("Redis publish failed, delivering locally",
			zap.String("channel", channel),
			zap.Error(err))
		return false
	}
	return true
}

// Start subscribes to the relay channels and forwards incoming messages to
// the hub until ctx is cancelled. It returns once the subscription is live.
func (r *Relay) Start(ctx context.Context) error {
	if r.rdb == nil {
		return nil
	}

	sub := r.rdb.PSubscribe(ctx, relayPrefix+"user:*", relayPrefix+"post:*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe relay channels: %w", err)
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
				func() {
					defer func() {
						if rec := recover(); rec != nil {
							logger.Log.Error("Panic in relay subscriber",
								zap.Any("panic", rec),
								zap.String("stack", string(debug.Stack())))
						}
					}()
					r.dispatch(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	logger.Log.Info("Realtime relay subscribed", zap.String("prefix", relayPrefix))
	return nil
}

func (r *Relay) dispatch(channel, payload string) {
	var message Message
	err := json.Unmarshal([]byte(payload), &message)
	metrics.RecordRelayMessage("inbound", err)
	if err != nil {
		logger.Log.Warn("Dropping malformed relay message", zap.String("channel", channel), zap.Error(err))
		return
	}

	rest := strings.TrimPrefix(channel, relayPrefix)
	switch {
	case strings.HasPrefix(rest, "user:"):
		r.hub.SendToUser(strings.TrimPrefix(rest, "user:"), &message)
	case strings.HasPrefix(rest, "post:"):
		r.hub.SendToRoom(strings.TrimPrefix(rest, "post:"), &message)
	}
}
