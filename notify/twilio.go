package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioNotifier sends WhatsApp messages through Twilio's REST API.
type TwilioNotifier struct {
	client *twilio.RestClient
	from   string
}

var _ Notifier = (*TwilioNotifier)(nil)

func NewTwilioNotifier(accountSID, authToken, from string) *TwilioNotifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioNotifier{client: client, from: from}
}

func (t *TwilioNotifier) Send(ctx context.Context, phone, text string) error {
	params := &twilioapi.CreateMessageParams{}
	params.SetFrom("whatsapp:" + t.from)
	params.SetTo("whatsapp:" + phone)
	params.SetBody(text)

	msg, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("send whatsapp message: %w", err)
	}

	sid := ""
	if msg.Sid != nil {
		sid = *msg.Sid
	}
	slog.InfoContext(ctx, "whatsapp message sent", slog.String("sid", sid))
	return nil
}
