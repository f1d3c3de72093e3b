package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwell/notify/pkg/notify"
)

type pushCapture struct {
	mu       sync.Mutex
	messages []pushMessage
	authz    []string
	status   map[string]int // token -> forced response status
}

func (c *pushCapture) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var msg pushMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		c.mu.Lock()
		c.messages = append(c.messages, msg)
		c.authz = append(c.authz, r.Header.Get("Authorization"))
		status := c.status[msg.To]
		c.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (c *pushCapture) received() []pushMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]pushMessage(nil), c.messages...)
}

func pushNotification() notify.Notification {
	return notify.Notification{
		ID:          "n1",
		RecipientID: "user-1",
		Type:        notify.TypeBookingReminder,
		Title:       "Upcoming booking",
		Message:     "Your booking starts in one hour.",
		Data:        map[string]any{"booking_id": "b-42"},
	}
}

func TestNewPushAdapter_ConfigValidation(t *testing.T) {
	t.Parallel()

	_, err := NewPushAdapter(PushConfig{APIKey: "key"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewPushAdapter(PushConfig{Endpoint: "https://push.example.com"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	adapter, err := NewPushAdapter(PushConfig{Endpoint: "https://push.example.com", APIKey: "key"})
	require.NoError(t, err)
	assert.Equal(t, notify.ChannelPush, adapter.Channel())
}

func TestPushAdapter_Send(t *testing.T) {
	t.Parallel()

	capture := &pushCapture{}
	srv := httptest.NewServer(capture.handler())
	defer srv.Close()

	adapter, err := NewPushAdapter(PushConfig{Endpoint: srv.URL, APIKey: "secret"})
	require.NoError(t, err)

	contact := notify.Contact{DeviceTokens: []string{"tok-1", "tok-2"}}
	require.NoError(t, adapter.Send(context.Background(), pushNotification(), contact))

	msgs := capture.received()
	require.Len(t, msgs, 2)
	assert.Equal(t, "tok-1", msgs[0].To)
	assert.Equal(t, "tok-2", msgs[1].To)
	assert.Equal(t, "Upcoming booking", msgs[0].Notification.Title)
	assert.Equal(t, "Your booking starts in one hour.", msgs[0].Notification.Body)
	assert.Equal(t, "b-42", msgs[0].Data["booking_id"])
	assert.Equal(t, "key=secret", capture.authz[0])
}

func TestPushAdapter_Send_NoDevices(t *testing.T) {
	t.Parallel()

	adapter, err := NewPushAdapter(PushConfig{Endpoint: "https://push.example.com", APIKey: "key"})
	require.NoError(t, err)

	err = adapter.Send(context.Background(), pushNotification(), notify.Contact{})
	assert.ErrorIs(t, err, notify.ErrContactMissing)
}

func TestPushAdapter_Send_PartialTokenFailure(t *testing.T) {
	t.Parallel()

	capture := &pushCapture{status: map[string]int{"stale": http.StatusNotFound}}
	srv := httptest.NewServer(capture.handler())
	defer srv.Close()

	adapter, err := NewPushAdapter(PushConfig{Endpoint: srv.URL, APIKey: "secret"})
	require.NoError(t, err)

	contact := notify.Contact{DeviceTokens: []string{"stale", "fresh"}}
	err = adapter.Send(context.Background(), pushNotification(), contact)
	assert.NoError(t, err, "one reachable device keeps the channel successful")
}

func TestPushAdapter_Send_AllTokensFail(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	adapter, err := NewPushAdapter(PushConfig{Endpoint: srv.URL, APIKey: "secret"})
	require.NoError(t, err)

	contact := notify.Contact{DeviceTokens: []string{"tok-1", "tok-2"}}
	err = adapter.Send(context.Background(), pushNotification(), contact)
	require.Error(t, err)

	var transportErr *notify.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, notify.ChannelPush, transportErr.Channel)
}
