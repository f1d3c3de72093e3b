package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bookwell/notify/pkg/notify"
)

// PushConfig holds the push provider configuration. The adapter speaks a
// generic FCM-style HTTP API: one JSON POST per device token with a bearer
// key.
type PushConfig struct {
	Endpoint string        `env:"PUSH_PROVIDER_URL,required"`
	APIKey   string        `env:"PUSH_PROVIDER_KEY,required"`
	Timeout  time.Duration `env:"PUSH_PROVIDER_TIMEOUT" envDefault:"10s"`
}

// pushMessage is the provider wire format.
type pushMessage struct {
	To           string         `json:"to"`
	Notification pushPayload    `json:"notification"`
	Data         map[string]any `json:"data,omitempty"`
}

type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// PushAdapter delivers notifications to a recipient's registered devices
// through an HTTP push provider. Every device token is attempted; the
// attempt fails only if the recipient has no tokens or every token fails.
type PushAdapter struct {
	config PushConfig
	client *http.Client
}

// NewPushAdapter creates a push adapter for the configured provider.
func NewPushAdapter(cfg PushConfig) (*PushAdapter, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: Endpoint is required", ErrInvalidConfig)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: APIKey is required", ErrInvalidConfig)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &PushAdapter{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (a *PushAdapter) Channel() notify.Channel {
	return notify.ChannelPush
}

func (a *PushAdapter) Send(ctx context.Context, n notify.Notification, contact notify.Contact) error {
	if len(contact.DeviceTokens) == 0 {
		return fmt.Errorf("%w: recipient has no registered devices", notify.ErrContactMissing)
	}

	var errs []error
	delivered := 0
	for _, token := range contact.DeviceTokens {
		if err := a.sendOne(ctx, n, token); err != nil {
			errs = append(errs, err)
			continue
		}
		delivered++
	}

	// A stale token on one device must not fail the channel as long as at
	// least one device was reached.
	if delivered == 0 {
		return &notify.TransportError{Channel: notify.ChannelPush, Err: errors.Join(errs...)}
	}
	return nil
}

func (a *PushAdapter) sendOne(ctx context.Context, n notify.Notification, token string) error {
	payload, err := json.Marshal(pushMessage{
		To: token,
		Notification: pushPayload{
			Title: n.Title,
			Body:  n.Message,
		},
		Data: n.Data,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+a.config.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push provider returned status %d", resp.StatusCode)
	}
	return nil
}
