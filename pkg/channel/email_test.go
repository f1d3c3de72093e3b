package channel

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwell/notify/pkg/notify"
)

func TestNewEmailAdapter_ConfigValidation(t *testing.T) {
	t.Parallel()

	valid := EmailConfig{
		PostmarkServerToken:  "server-token",
		PostmarkAccountToken: "account-token",
		SenderEmail:          "noreply@bookwell.app",
	}

	tests := []struct {
		name    string
		mutate  func(*EmailConfig)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *EmailConfig) {}},
		{name: "missing server token", mutate: func(c *EmailConfig) { c.PostmarkServerToken = "" }, wantErr: true},
		{name: "missing account token", mutate: func(c *EmailConfig) { c.PostmarkAccountToken = "" }, wantErr: true},
		{name: "missing sender", mutate: func(c *EmailConfig) { c.SenderEmail = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid
			tt.mutate(&cfg)
			adapter, err := NewEmailAdapter(cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				require.NoError(t, err)
				assert.Equal(t, notify.ChannelEmail, adapter.Channel())
			}
		})
	}
}

func TestEmailAdapter_Send_MissingAddress(t *testing.T) {
	t.Parallel()

	adapter, err := NewEmailAdapter(EmailConfig{
		PostmarkServerToken:  "server-token",
		PostmarkAccountToken: "account-token",
		SenderEmail:          "noreply@bookwell.app",
	})
	require.NoError(t, err)

	err = adapter.Send(context.Background(), notify.Notification{Title: "t", Message: "m"}, notify.Contact{})
	assert.ErrorIs(t, err, notify.ErrContactMissing)
}

func TestRenderEmailBody(t *testing.T) {
	t.Parallel()

	body, err := renderEmailBody(notify.Notification{
		Title:   "Booking confirmed",
		Message: "See you at 10am.",
	})
	require.NoError(t, err)
	assert.Contains(t, body, "Booking confirmed")
	assert.Contains(t, body, "See you at 10am.")
	assert.True(t, strings.HasPrefix(body, "<!DOCTYPE html>"))
}

func TestRenderEmailBody_EscapesHTML(t *testing.T) {
	t.Parallel()

	body, err := renderEmailBody(notify.Notification{
		Title:   "<script>alert(1)</script>",
		Message: "safe",
	})
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
}
