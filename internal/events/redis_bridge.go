package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"tutorchat/pkg/logger"
)

// RedisBridge relays broadcast events between instances over Redis Pub/Sub.
// Directed error events stay local; they only concern one live connection.
type RedisBridge struct {
	client     *redis.Client
	channel    string
	instanceID string
	logger     *logger.Logger

	cancel context.CancelFunc
}

func NewRedisBridge(client *redis.Client, channel, instanceID string, l *logger.Logger) *RedisBridge {
	return &RedisBridge{
		client:     client,
		channel:    channel,
		instanceID: instanceID,
		logger:     l,
	}
}

func (b *RedisBridge) Publish(ctx context.Context, event Event) error {
	if event.TargetUserID != nil {
		return nil
	}
	event.Origin = b.instanceID
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return b.client.Publish(ctx, b.channel, data).Err()
}

// Start subscribes and feeds remote events into sink until Stop is called.
func (b *RedisBridge) Start(sink func(Event)) {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	pubsub := b.client.Subscribe(ctx, b.channel)
	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					if b.logger != nil {
						b.logger.Errorf("redis bridge: bad event payload: %s", err)
					}
					continue
				}
				if event.Origin == b.instanceID {
					continue
				}
				sink(event)
			}
		}
	}()
}

func (b *RedisBridge) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
}
