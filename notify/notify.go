// Package notify delivers best-effort status messages to customers over
// the messaging channel. Failures are for the caller to log and swallow;
// they never reach an HTTP response or the conversation flow.
package notify

import (
	"context"

	"github.com/taldoflemis/trattoria/store"
)

type Notifier interface {
	Send(ctx context.Context, phone, text string) error
}

// StatusMessage maps a recognized order status to its customer-facing
// text. Unrecognized statuses are stored but notify nobody.
func StatusMessage(status string) (string, bool) {
	switch status {
	case store.StatusPending:
		return "Your order has been received.", true
	case store.StatusInPreparation:
		return "Your order is being prepared.", true
	case store.StatusReady:
		return "Your order is ready for pickup.", true
	case store.StatusDelivered:
		return "Your order has been delivered. Thank you!", true
	}
	return "", false
}

// CancellationMessage is sent before an order is removed.
func CancellationMessage(orderType string) string {
	if orderType == store.TypeReservation {
		return "Your reservation has been cancelled."
	}
	return "Your order has been cancelled."
}
