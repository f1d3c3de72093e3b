package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmission_Validate(t *testing.T) {
	t.Parallel()

	valid := Submission{
		RecipientID: "user-1",
		Type:        TypeBookingConfirmed,
		Title:       "Booking confirmed",
		Message:     "Your booking is confirmed.",
		Channels:    ChannelSet{Email: true},
	}

	tests := []struct {
		name    string
		mutate  func(*Submission)
		wantErr bool
	}{
		{
			name:   "valid submission",
			mutate: func(s *Submission) {},
		},
		{
			name:    "missing recipient",
			mutate:  func(s *Submission) { s.RecipientID = "" },
			wantErr: true,
		},
		{
			name:    "unknown type",
			mutate:  func(s *Submission) { s.Type = "carrier_pigeon" },
			wantErr: true,
		},
		{
			name:    "missing title",
			mutate:  func(s *Submission) { s.Title = "" },
			wantErr: true,
		},
		{
			name:    "title too long",
			mutate:  func(s *Submission) { s.Title = strings.Repeat("a", 101) },
			wantErr: true,
		},
		{
			name:   "title at limit",
			mutate: func(s *Submission) { s.Title = strings.Repeat("a", 100) },
		},
		{
			name:    "missing message",
			mutate:  func(s *Submission) { s.Message = "" },
			wantErr: true,
		},
		{
			name:    "message too long",
			mutate:  func(s *Submission) { s.Message = strings.Repeat("a", 1001) },
			wantErr: true,
		},
		{
			name:    "unknown priority",
			mutate:  func(s *Submission) { s.Priority = "critical" },
			wantErr: true,
		},
		{
			name:   "empty priority defaults later",
			mutate: func(s *Submission) { s.Priority = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sub := valid
			tt.mutate(&sub)
			err := sub.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNotification_IsDue(t *testing.T) {
	t.Parallel()

	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, (&Notification{}).IsDue(now), "absent scheduledFor is due")
	assert.True(t, (&Notification{ScheduledFor: &past}).IsDue(now), "past scheduledFor is due")
	assert.False(t, (&Notification{ScheduledFor: &future}).IsDue(now), "future scheduledFor is not due")
	assert.True(t, (&Notification{ScheduledFor: &now}).IsDue(now), "exact scheduledFor is due")
}

func TestChannelSet(t *testing.T) {
	t.Parallel()

	set := ChannelSet{Email: true, Push: true}
	assert.Equal(t, []Channel{ChannelEmail, ChannelPush}, set.Channels())
	assert.True(t, set.Enabled(ChannelEmail))
	assert.False(t, set.Enabled(ChannelSMS))
	assert.Empty(t, ChannelSet{}.Channels())
}

func TestNotification_RequestedChannels(t *testing.T) {
	t.Parallel()

	n := Notification{Channels: map[Channel]ChannelStatus{
		ChannelSMS:   {},
		ChannelEmail: {Sent: true},
	}}
	assert.Equal(t, []Channel{ChannelEmail, ChannelSMS}, n.RequestedChannels())
}

func TestLifecycle(t *testing.T) {
	t.Parallel()

	assert.True(t, CanTransition(StateUnread, StateRead))
	assert.True(t, CanTransition(StateUnread, StateArchived))
	assert.True(t, CanTransition(StateRead, StateArchived))
	assert.False(t, CanTransition(StateArchived, StateRead))
	assert.False(t, CanTransition(StateRead, StateUnread))
	assert.True(t, CanTransition(StateArchived, StateArchived), "self transition keeps archive idempotent")
}

func TestNotification_State(t *testing.T) {
	t.Parallel()

	assert.Equal(t, StateUnread, (&Notification{}).State())
	assert.Equal(t, StateRead, (&Notification{IsRead: true}).State())
	assert.Equal(t, StateArchived, (&Notification{IsRead: true, IsArchived: true}).State())
}
