package main

import (
	"github.com/taldoflemis/trattoria/store"
)

type OrderResponse struct {
	Message string      `json:"message"`
	Order   store.Order `json:"order"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// OrderEvent is what the dashboard feed and the NATS subject carry.
type OrderEvent struct {
	EventID string      `json:"event_id"`
	Event   string      `json:"event"`
	Order   store.Order `json:"order"`
}

const (
	EventOrderCreated = "order_created"
	EventOrderUpdated = "order_updated"
	EventOrderDeleted = "order_deleted"
)
