package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	bridgePrefix   = "lecture-events:"
	publishTimeout = 5 * time.Second
)

// bridgePayload is the envelope published to Redis for cross-instance
// fan-out. Origin identifies the publishing instance so it can skip its
// own messages on the way back in.
type bridgePayload struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// RedisBridge mirrors hub events across instances via Redis pub/sub.
type RedisBridge struct {
	client *redis.Client
	origin string
	logger *zap.Logger
}

// NewRedisBridge creates a bridge over the given Redis client.
func NewRedisBridge(client *redis.Client, logger *zap.Logger) *RedisBridge {
	return &RedisBridge{client: client, origin: uuid.New().String(), logger: logger}
}

func bridgeChannel(channel Channel, key string) string {
	if key == "" {
		return bridgePrefix + string(channel)
	}
	return bridgePrefix + string(channel) + ":" + key
}

// PublishEvent publishes evt to the Redis channel for its filter key.
func (b *RedisBridge) PublishEvent(evt Event) error {
	body, err := json.Marshal(bridgePayload{Origin: b.origin, Event: evt})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return b.client.Publish(ctx, bridgeChannel(evt.Channel, evt.FilterKey), body).Err()
}

// Subscribe listens on the Redis channel for one (channel, key) pair and
// invokes handler for every event published by another instance. Returns a
// cancel function that stops the subscription.
func (b *RedisBridge) Subscribe(channel Channel, key string, handler func(Event)) (func(), error) {
	name := bridgeChannel(channel, key)
	ctx, cancelCtx := context.WithCancel(context.Background())
	pubsub := b.client.Subscribe(ctx, name)
	if _, err := pubsub.Receive(ctx); err != nil {
		cancelCtx()
		return nil, fmt.Errorf("subscribe %s: %w", name, err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var p bridgePayload
				if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
					b.logger.Warn("invalid bridge payload", zap.String("redis_channel", name), zap.Error(err))
					continue
				}
				if p.Origin == b.origin {
					continue
				}
				handler(p.Event)
			}
		}
	}()
	return func() { cancelCtx() }, nil
}
