package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"resonance-server/internal/shared/redis"
)

const redisChannel = "resonance:events"

type subscriber struct {
	ch chan Event
}

// Bus fans events out to stream subscribers. With a Redis client attached,
// events take the pub/sub round trip so every server instance sees publishes
// from every other instance; without one the bus stays in-process.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]*subscriber
	nextID int
	client *redis.Client
	cancel context.CancelFunc
	logger *slog.Logger
}

func NewBus(client *redis.Client, logger *slog.Logger) *Bus {
	b := &Bus{
		subs:   make(map[int]*subscriber),
		client: client,
		logger: logger.With("component", "events_bus"),
	}

	if client != nil {
		ctx, cancel := context.WithCancel(context.Background())
		b.cancel = cancel
		go b.relay(ctx)
		b.logger.Info("Event bus connected to Redis pub/sub", "channel", redisChannel)
	} else {
		b.logger.Info("Event bus running in-process only")
	}

	return b
}

// Publish delivers an event to all subscribers. Publishing never blocks the
// caller: slow subscribers shed their oldest buffered event instead.
func (b *Bus) Publish(ctx context.Context, event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	if b.client == nil {
		b.deliver(event)
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "type", event.Type, "error", err)
		return
	}

	if err := b.client.Publish(ctx, redisChannel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event to Redis", "type", event.Type, "error", err)
		// Local subscribers still get the event when Redis is down.
		b.deliver(event)
	}
}

// Subscribe registers a buffered listener. The returned cancel func must be
// called when the listener goes away.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	sub := &subscriber{ch: make(chan Event, buffer)}
	b.subs[id] = sub
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub.ch)
		}
	}

	return sub.ch, cancel
}

func (b *Bus) Close() {
	if b.cancel != nil {
		b.cancel()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}

func (b *Bus) relay(ctx context.Context) {
	pubsub := b.client.Subscribe(ctx, redisChannel)
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
				b.logger.Warn("Dropping malformed event from Redis", "error", err)
				continue
			}
			b.deliver(event)
		}
	}
}

func (b *Bus) deliver(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		select {
		case sub.ch <- event:
		default:
			// Buffer full: drop the oldest event to make room for the new one.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- event:
			default:
			}
		}
	}
}
