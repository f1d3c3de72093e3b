package channel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/mrz1836/postmark"

	"github.com/bookwell/notify/pkg/notify"
)

// EmailConfig holds the Postmark transport configuration.
type EmailConfig struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN,required"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN,required"`
	SenderEmail          string `env:"NOTIFY_SENDER_EMAIL,required"`
	ReplyToEmail         string `env:"NOTIFY_REPLY_TO_EMAIL"`
}

// emailBody is the default notification email layout. Type-specific
// templates are an upstream templating concern; this adapter only needs a
// presentable fallback rendering of title and message.
var emailBody = template.Must(template.New("notification").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; margin: 0; padding: 24px;">
  <h2 style="margin-top: 0;">{{.Title}}</h2>
  <p>{{.Message}}</p>
  <p style="color: #888; font-size: 12px;">&copy; {{.Year}} Bookwell</p>
</body>
</html>`))

// EmailAdapter delivers notifications through Postmark's transactional API.
type EmailAdapter struct {
	client *postmark.Client
	config EmailConfig
}

// NewEmailAdapter creates a Postmark-backed email adapter. All tokens are
// required so that a misconfigured service fails at construction rather
// than recording transport errors on every dispatch.
func NewEmailAdapter(cfg EmailConfig) (*EmailAdapter, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, fmt.Errorf("%w: PostmarkServerToken is required", ErrInvalidConfig)
	}
	if cfg.PostmarkAccountToken == "" {
		return nil, fmt.Errorf("%w: PostmarkAccountToken is required", ErrInvalidConfig)
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("%w: SenderEmail is required", ErrInvalidConfig)
	}
	return &EmailAdapter{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		config: cfg,
	}, nil
}

func (a *EmailAdapter) Channel() notify.Channel {
	return notify.ChannelEmail
}

func (a *EmailAdapter) Send(ctx context.Context, n notify.Notification, contact notify.Contact) error {
	if contact.Email == "" {
		return fmt.Errorf("%w: recipient has no email address", notify.ErrContactMissing)
	}

	body, err := renderEmailBody(n)
	if err != nil {
		return &notify.TransportError{Channel: notify.ChannelEmail, Err: err}
	}

	resp, err := a.client.SendEmail(ctx, postmark.Email{
		From:     a.config.SenderEmail,
		ReplyTo:  a.config.ReplyToEmail,
		To:       contact.Email,
		Subject:  n.Title,
		Tag:      string(n.Type),
		HTMLBody: body,
	})
	if err != nil {
		return &notify.TransportError{Channel: notify.ChannelEmail, Err: err}
	}
	if resp.ErrorCode > 0 {
		return &notify.TransportError{
			Channel: notify.ChannelEmail,
			Err:     fmt.Errorf("postmark error %d: %s", resp.ErrorCode, resp.Message),
		}
	}
	return nil
}

func renderEmailBody(n notify.Notification) (string, error) {
	var buf bytes.Buffer
	err := emailBody.Execute(&buf, struct {
		Title   string
		Message string
		Year    int
	}{
		Title:   n.Title,
		Message: n.Message,
		Year:    time.Now().Year(),
	})
	if err != nil {
		return "", errors.Join(errors.New("channel: failed to render email body"), err)
	}
	return buf.String(), nil
}
