package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"sampletrack/internal/timeline"
)

const DefaultChannel = "sampletrack.events"

// busMessage tags an event with the instance that published it so the
// forwarder can skip its own echoes.
type busMessage struct {
	Origin string         `json:"origin"`
	Event  timeline.Event `json:"event"`
}

// RedisBus shares events between instances over Redis pub/sub. The redis
// client is owned by the caller; Close only tears down the subscription.
type RedisBus struct {
	rdb     goredis.UniversalClient
	channel string
	origin  string
	logger  *slog.Logger

	mu  sync.Mutex
	sub *goredis.PubSub
}

func NewRedisBus(rdb goredis.UniversalClient, channel string, logger *slog.Logger) *RedisBus {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBus{
		rdb:     rdb,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger.With("component", "redis_bus"),
	}
}

func (b *RedisBus) Publish(ctx context.Context, ev timeline.Event) error {
	raw, err := json.Marshal(busMessage{Origin: b.origin, Event: ev})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// StartForwarder subscribes and invokes onEvent for every event another
// instance publishes until ctx is cancelled. It returns once the
// subscription is confirmed.
func (b *RedisBus) StartForwarder(ctx context.Context, onEvent func(timeline.Event)) error {
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	b.mu.Lock()
	b.sub = sub
	b.mu.Unlock()

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var msg busMessage
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					b.logger.Warn("bad event payload on bus", "error", err)
					continue
				}
				if msg.Origin == b.origin {
					continue
				}
				onEvent(msg.Event)
			}
		}
	}()
	return nil
}

func (b *RedisBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub == nil {
		return nil
	}
	err := b.sub.Close()
	b.sub = nil
	return err
}
