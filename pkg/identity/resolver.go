package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/bookwell/notify/pkg/notify"
)

// Config holds the user service client configuration.
type Config struct {
	BaseURL string        `env:"USER_SERVICE_URL,required"`
	Timeout time.Duration `env:"USER_SERVICE_TIMEOUT" envDefault:"5s"`
}

// userEnvelope is the user service response shape.
type userEnvelope struct {
	Data struct {
		User struct {
			Name         string   `json:"name"`
			Email        string   `json:"email"`
			Phone        string   `json:"phone"`
			DeviceTokens []string `json:"deviceTokens"`
		} `json:"user"`
	} `json:"data"`
}

// HTTPResolver resolves recipient contact data from the platform user
// service over its JSON API.
type HTTPResolver struct {
	baseURL string
	client  *http.Client
}

// NewHTTPResolver creates a resolver against the configured user service.
func NewHTTPResolver(cfg Config) (*HTTPResolver, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("identity: BaseURL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &HTTPResolver{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (r *HTTPResolver) Resolve(ctx context.Context, recipientID string) (*notify.Contact, error) {
	endpoint := fmt.Sprintf("%s/api/users/%s", r.baseURL, url.PathEscape(recipientID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity: user service request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", notify.ErrRecipientNotFound, recipientID)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("identity: user service returned status %d", resp.StatusCode)
	}

	var envelope userEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("identity: failed to decode user service response: %w", err)
	}

	u := envelope.Data.User
	return &notify.Contact{
		Name:         u.Name,
		Email:        u.Email,
		Phone:        u.Phone,
		DeviceTokens: u.DeviceTokens,
	}, nil
}
