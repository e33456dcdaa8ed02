package notify

import (
	"context"
	"log/slog"
)

// LogNotifier stands in when Twilio credentials are not configured, e.g.
// local development. It only logs what would have been sent.
type LogNotifier struct{}

var _ Notifier = (*LogNotifier)(nil)

func (LogNotifier) Send(ctx context.Context, phone, text string) error {
	slog.InfoContext(ctx, "notification (dry run)",
		slog.String("phone", phone),
		slog.String("text", text),
	)
	return nil
}
