package channel

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwell/notify/pkg/notify"
)

func TestNewSMSAdapter_ConfigValidation(t *testing.T) {
	t.Parallel()

	_, err := NewSMSAdapter(SMSConfig{AccountSID: "sid", AuthToken: "token"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewSMSAdapter(SMSConfig{FromNumber: "+1555000"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	adapter, err := NewSMSAdapter(SMSConfig{AccountSID: "sid", AuthToken: "token", FromNumber: "+1555000"})
	require.NoError(t, err)
	assert.Equal(t, notify.ChannelSMS, adapter.Channel())
}

func TestSMSAdapter_Send_MissingPhone(t *testing.T) {
	t.Parallel()

	adapter, err := NewSMSAdapter(SMSConfig{AccountSID: "sid", AuthToken: "token", FromNumber: "+1555000"})
	require.NoError(t, err)

	err = adapter.Send(context.Background(), notify.Notification{Title: "t", Message: "m"}, notify.Contact{})
	assert.ErrorIs(t, err, notify.ErrContactMissing)
}

func TestSMSText(t *testing.T) {
	t.Parallel()

	short := smsText(notify.Notification{Title: "Booking confirmed", Message: "See you at 10am."})
	assert.Equal(t, "Booking confirmed: See you at 10am.", short)

	long := smsText(notify.Notification{Title: "Title", Message: strings.Repeat("x", 500)})
	assert.Len(t, long, 300)
	assert.True(t, strings.HasSuffix(long, "..."))
}

func TestSMSText_TruncatesOnRuneBoundaries(t *testing.T) {
	t.Parallel()

	long := smsText(notify.Notification{Title: "Påminnelse", Message: strings.Repeat("ø", 500)})
	assert.True(t, utf8.ValidString(long), "truncation must not split a multi-byte rune")
	assert.Equal(t, 300, utf8.RuneCountInString(long))
	assert.True(t, strings.HasSuffix(long, "..."))

	short := smsText(notify.Notification{Title: "Påminnelse", Message: "møte kl. 10"})
	assert.Equal(t, "Påminnelse: møte kl. 10", short)
}

func TestDevAdapter(t *testing.T) {
	t.Parallel()

	adapter := NewDevAdapter(notify.ChannelEmail, nil)
	assert.Equal(t, notify.ChannelEmail, adapter.Channel())

	err := adapter.Send(context.Background(), notify.Notification{ID: "n1", RecipientID: "user-1", Title: "t"}, notify.Contact{})
	assert.NoError(t, err)
}
