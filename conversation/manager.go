package conversation

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/taldoflemis/trattoria/menu"
	"github.com/taldoflemis/trattoria/store"
)

var (
	tracer = otel.Tracer("conversation")
	meter  = otel.Meter("conversation")
)

const replyStoreFailure = "Sorry, something went wrong on our side. Please send that again in a moment."

// Manager owns the in-memory session map and runs every inbound message
// to completion under one mutex, so session and store mutations are
// serialized the way the single-threaded original relied on.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]Session

	store   store.Store
	catalog *menu.Catalog

	messagesHandled metric.Int64Counter
	ordersFinalized metric.Int64Counter
}

func NewManager(st store.Store, catalog *menu.Catalog) (*Manager, error) {
	messagesHandled, err := meter.Int64Counter(
		"conversation.messages.handled",
		metric.WithDescription("Inbound webhook messages processed by the state machine"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	ordersFinalized, err := meter.Int64Counter(
		"conversation.orders.finalized",
		metric.WithDescription("Reservations and takeout orders completed over the bot"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	return &Manager{
		sessions:        make(map[string]Session),
		store:           st,
		catalog:         catalog,
		messagesHandled: messagesHandled,
		ordersFinalized: ordersFinalized,
	}, nil
}

// HandleMessage advances the sender's session by one message and returns
// the reply to send back. It never fails from the webhook's point of
// view: a store failure keeps the session alive and asks the customer to
// resend.
func (m *Manager) HandleMessage(ctx context.Context, from, body string) string {
	ctx, span := tracer.Start(ctx, "Manager.HandleMessage", trace.WithAttributes(
		attribute.String("conversation.sender", from),
	))
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.messagesHandled.Add(ctx, 1)

	sess, known := m.sessions[from]
	if !known {
		sess = NewSession()
		slog.InfoContext(ctx, "new conversation started", slog.String("sender", from))
	}

	span.SetAttributes(attribute.String("conversation.phase", string(sess.Phase)))

	res := Advance(sess, body, m.catalog)

	if res.Order != nil {
		res.Order.Phone = from
		if res.Order.Type == store.TypeTakeout && len(res.Order.Products) == 0 {
			slog.WarnContext(ctx, "takeout order confirmed with no recognized items",
				slog.String("sender", from))
		}

		stored, err := m.store.Insert(ctx, res.Order)
		if err != nil {
			slog.ErrorContext(ctx, "failed to persist finalized order",
				slog.String("sender", from), slog.Any("err", err))
			// Session stays where it was so the customer can retry.
			return replyStoreFailure
		}

		m.ordersFinalized.Add(ctx, 1, metric.WithAttributes(
			attribute.String("order.type", stored.Type),
		))
		slog.InfoContext(ctx, "order finalized over the bot",
			slog.Int64("order_id", stored.ID),
			slog.String("order_type", stored.Type),
		)
	}

	if res.Done {
		delete(m.sessions, from)
	} else {
		m.sessions[from] = res.Session
	}

	return res.Reply
}

// ActiveSessions reports how many conversations are currently in flight.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
