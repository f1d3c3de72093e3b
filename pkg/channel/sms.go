package channel

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/bookwell/notify/pkg/notify"
)

// SMSConfig holds the Twilio transport configuration.
type SMSConfig struct {
	AccountSID string `env:"TWILIO_ACCOUNT_SID,required"`
	AuthToken  string `env:"TWILIO_AUTH_TOKEN,required"`
	FromNumber string `env:"TWILIO_PHONE_NUMBER,required"`
}

// SMSAdapter delivers notifications as text messages through Twilio.
type SMSAdapter struct {
	client *twilio.RestClient
	from   string
}

// NewSMSAdapter creates a Twilio-backed SMS adapter.
func NewSMSAdapter(cfg SMSConfig) (*SMSAdapter, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("%w: Twilio credentials are required", ErrInvalidConfig)
	}
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("%w: FromNumber is required", ErrInvalidConfig)
	}
	return &SMSAdapter{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		}),
		from: cfg.FromNumber,
	}, nil
}

func (a *SMSAdapter) Channel() notify.Channel {
	return notify.ChannelSMS
}

func (a *SMSAdapter) Send(ctx context.Context, n notify.Notification, contact notify.Contact) error {
	if contact.Phone == "" {
		return fmt.Errorf("%w: recipient has no phone number on file", notify.ErrContactMissing)
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(contact.Phone)
	params.SetFrom(a.from)
	params.SetBody(smsText(n))

	if _, err := a.client.Api.CreateMessage(params); err != nil {
		return &notify.TransportError{Channel: notify.ChannelSMS, Err: err}
	}
	return nil
}

// smsText flattens the notification into a single message, truncated on
// rune boundaries to fit one concatenated SMS comfortably.
func smsText(n notify.Notification) string {
	const maxLen = 300
	text := n.Title + ": " + n.Message
	if utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	return string([]rune(text)[:maxLen-3]) + "..."
}
