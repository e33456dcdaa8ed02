package main

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// NATSOrderEvents mirrors ChannelOrderEvents over a NATS subject, so a
// dashboard running elsewhere sees the same feed.
type NATSOrderEvents struct {
	nc      *nats.Conn
	subject string
}

var _ OrderEventPubSubber = (*NATSOrderEvents)(nil)

func NewNATSOrderEvents(nc *nats.Conn, subject string) *NATSOrderEvents {
	return &NATSOrderEvents{nc: nc, subject: subject}
}

func (n *NATSOrderEvents) Publish(ctx context.Context, event OrderEvent) error {
	msg := &nats.Msg{
		Subject: n.subject,
		Header:  nats.Header{},
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg.Data = data

	return n.nc.PublishMsg(msg)
}

func (n *NATSOrderEvents) Subscribe(ctx context.Context) (<-chan OrderEvent, func(), error) {
	ch := make(chan OrderEvent, eventChannelSize)

	sub, err := n.nc.Subscribe(n.subject, func(msg *nats.Msg) {
		var event OrderEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			slog.ErrorContext(ctx, "failed to unmarshal order event from NATS message", slog.Any("err", err))
			return
		}

		select {
		case ch <- event:
		default:
			slog.WarnContext(ctx, "dropping order event for slow subscriber",
				slog.String("event", event.Event),
				slog.String("event_id", event.EventID),
			)
		}
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to subscribe to NATS subject",
			slog.String("subject", n.subject), slog.Any("err", err))
		return nil, nil, err
	}

	unsubscribe := func() {
		if err := sub.Unsubscribe(); err != nil {
			slog.ErrorContext(ctx, "failed to unsubscribe from NATS subject", slog.Any("err", err))
		}
	}
	return ch, unsubscribe, nil
}
