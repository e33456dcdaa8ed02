package main

import (
	"context"
	"log/slog"
	"sync"
)

// OrderEventPubSubber fans order lifecycle events out to the operator
// dashboard feed. Publishing is best-effort everywhere: a failure is
// logged by the caller and never reaches an HTTP response.
type OrderEventPubSubber interface {
	Publish(ctx context.Context, event OrderEvent) error
	Subscribe(ctx context.Context) (<-chan OrderEvent, func(), error)
}

const eventChannelSize = 16

// ChannelOrderEvents is the in-process implementation used when NATS is
// disabled. Slow subscribers drop events rather than block the API.
type ChannelOrderEvents struct {
	mu   sync.Mutex
	subs map[chan OrderEvent]struct{}
}

var _ OrderEventPubSubber = (*ChannelOrderEvents)(nil)

func NewChannelOrderEvents() *ChannelOrderEvents {
	return &ChannelOrderEvents{
		subs: make(map[chan OrderEvent]struct{}),
	}
}

func (c *ChannelOrderEvents) Publish(ctx context.Context, event OrderEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for sub := range c.subs {
		select {
		case sub <- event:
		default:
			slog.WarnContext(ctx, "dropping order event for slow subscriber",
				slog.String("event", event.Event),
				slog.String("event_id", event.EventID),
			)
		}
	}
	return nil
}

func (c *ChannelOrderEvents) Subscribe(_ context.Context) (<-chan OrderEvent, func(), error) {
	ch := make(chan OrderEvent, eventChannelSize)

	c.mu.Lock()
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	unsubscribe := func() {
		c.mu.Lock()
		delete(c.subs, ch)
		c.mu.Unlock()
	}
	return ch, unsubscribe, nil
}
