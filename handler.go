package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	healthgo "github.com/hellofresh/health-go/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
	"github.com/twilio/twilio-go/twiml"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"

	"github.com/taldoflemis/trattoria/conversation"
	"github.com/taldoflemis/trattoria/notify"
	"github.com/taldoflemis/trattoria/store"
)

var tracer = otel.Tracer("trattoria")

type MainHandler struct {
	store    store.Store
	notifier notify.Notifier
	conv     *conversation.Manager
	events   OrderEventPubSubber
	health   *healthgo.Health
}

func NewMainHandler(
	e *echo.Echo,
	settings *Settings,
	st store.Store,
	notifier notify.Notifier,
	conv *conversation.Manager,
	events OrderEventPubSubber,
	health *healthgo.Health,
) *MainHandler {
	e.HideBanner = true
	e.Use(slogecho.New(slog.Default()))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: settings.HTTP.CORS.Origins,
		AllowMethods: settings.HTTP.CORS.Methods,
		AllowHeaders: settings.HTTP.CORS.Headers,
	}))
	e.Use(otelecho.Middleware(settings.App.Name))

	handler := &MainHandler{
		store:    st,
		notifier: notifier,
		conv:     conv,
		events:   events,
		health:   health,
	}

	e.GET("/healthz", handler.HealthCheck)
	e.POST("/bot", handler.Webhook)

	api := e.Group("/api")
	api.GET("/pedidos", handler.ListOrders)
	api.POST("/pedidos", handler.CreateOrder)
	api.GET("/pedidos/live", handler.GetLiveOrdersSSE)
	api.PUT("/pedidos/:id", handler.UpdateOrder)
	api.DELETE("/pedidos/:id", handler.DeleteOrder)

	return handler
}

func (h *MainHandler) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()

	orders, err := h.store.List(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list orders", slog.Any("err", err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list orders"})
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *MainHandler) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()

	var patch store.Patch
	if err := c.Bind(&patch); err != nil {
		slog.ErrorContext(ctx, "failed to bind request", slog.Any("err", err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
	}

	order := &store.Order{Products: []string{}}
	order.Apply(patch)

	stored, err := h.store.Insert(ctx, order)
	if err != nil {
		slog.ErrorContext(ctx, "failed to insert order", slog.Any("err", err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to create order"})
	}

	h.publishEvent(c, EventOrderCreated, *stored)

	return c.JSON(http.StatusCreated, OrderResponse{Message: "order created", Order: *stored})
}

func (h *MainHandler) UpdateOrder(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid order id"})
	}

	var patch store.Patch
	if err := c.Bind(&patch); err != nil {
		slog.ErrorContext(ctx, "failed to bind request", slog.Any("err", err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
	}

	updated, err := h.store.Update(ctx, id, patch)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "order not found"})
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to update order", slog.Int64("order_id", id), slog.Any("err", err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to update order"})
	}

	// A status change is what customers care about; tell them.
	if status, ok := patch["status"].(string); ok && updated.Phone != "" {
		if text, recognized := notify.StatusMessage(status); recognized {
			h.notifyCustomer(c, updated.Phone, text)
		}
	}

	h.publishEvent(c, EventOrderUpdated, *updated)

	return c.JSON(http.StatusOK, OrderResponse{Message: "order updated", Order: *updated})
}

func (h *MainHandler) DeleteOrder(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid order id"})
	}

	order, err := h.store.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "order not found"})
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to load order", slog.Int64("order_id", id), slog.Any("err", err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to delete order"})
	}

	if order.Phone != "" {
		h.notifyCustomer(c, order.Phone, notify.CancellationMessage(order.Type))
	}

	if err := h.store.Delete(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to delete order", slog.Int64("order_id", id), slog.Any("err", err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to delete order"})
	}

	h.publishEvent(c, EventOrderDeleted, *order)

	return c.JSON(http.StatusOK, MessageResponse{Message: "order deleted"})
}

// Webhook handles inbound messages from the messaging provider. The
// response is a TwiML document with exactly one reply.
func (h *MainHandler) Webhook(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracer.Start(ctx, "MainHandler.Webhook")
	defer span.End()

	sender := strings.TrimPrefix(c.FormValue("From"), "whatsapp:")
	body := c.FormValue("Body")
	if sender == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing sender"})
	}

	reply := h.conv.HandleMessage(ctx, sender, body)

	doc, err := twiml.Messages([]twiml.Element{
		&twiml.MessagingMessage{Body: reply},
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to render twiml response", slog.Any("err", err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to render reply"})
	}

	return c.Blob(http.StatusOK, "text/xml", []byte(doc))
}

// GetLiveOrdersSSE streams order events to the dashboard over
// Server-Sent Events until the client goes away.
func (h *MainHandler) GetLiveOrdersSSE(c echo.Context) error {
	ctx := c.Request().Context()

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		slog.ErrorContext(ctx, "streaming unsupported by response writer")
		return echo.NewHTTPError(http.StatusInternalServerError, "Streaming unsupported")
	}

	ch, unsubscribe, err := h.events.Subscribe(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to subscribe to order events", slog.Any("err", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to subscribe")
	}
	defer unsubscribe()

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "client closed order event stream")
			return nil
		case event := <-ch:
			data, err := json.Marshal(event)
			if err != nil {
				slog.ErrorContext(ctx, "failed to marshal order event", slog.Any("err", err))
				continue
			}
			if _, err := c.Response().Writer.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
				slog.ErrorContext(ctx, "failed to write order event", slog.Any("err", err))
				return err
			}
			flusher.Flush()
		}
	}
}

func (h *MainHandler) HealthCheck(c echo.Context) error {
	check := h.health.Measure(c.Request().Context())

	statusCode := http.StatusOK
	if check.Status != healthgo.StatusOK {
		statusCode = http.StatusServiceUnavailable
	}
	return c.JSON(statusCode, check)
}

// notifyCustomer delivers best-effort: a failure is logged and the HTTP
// response proceeds as if nothing happened.
func (h *MainHandler) notifyCustomer(c echo.Context, phone, text string) {
	ctx := c.Request().Context()
	if err := h.notifier.Send(ctx, phone, text); err != nil {
		slog.ErrorContext(ctx, "failed to send notification",
			slog.String("phone", phone), slog.Any("err", err))
	}
}

func (h *MainHandler) publishEvent(c echo.Context, eventType string, order store.Order) {
	ctx := c.Request().Context()
	event := OrderEvent{
		EventID: uuid.New().String(),
		Event:   eventType,
		Order:   order,
	}
	if err := h.events.Publish(ctx, event); err != nil {
		slog.ErrorContext(ctx, "failed to publish order event",
			slog.String("event", eventType), slog.Any("err", err))
	}
}
