package notify

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// Type classifies a notification by the marketplace event that produced it.
type Type string

const (
	TypeBookingRequest       Type = "booking_request"
	TypeBookingConfirmed     Type = "booking_confirmed"
	TypeBookingRejected      Type = "booking_rejected"
	TypeBookingCancelled     Type = "booking_cancelled"
	TypeBookingReminder      Type = "booking_reminder"
	TypePaymentReceived      Type = "payment_received"
	TypeReviewReceived       Type = "review_received"
	TypeServiceUpdate        Type = "service_update"
	TypeMessage              Type = "message"
	TypeSystemAnnouncement   Type = "system_announcement"
	TypeVerificationReminder Type = "verification_reminder"
	TypePasswordReset        Type = "password_reset"
)

// Valid reports whether t is one of the known notification types.
func (t Type) Valid() bool {
	switch t {
	case TypeBookingRequest, TypeBookingConfirmed, TypeBookingRejected,
		TypeBookingCancelled, TypeBookingReminder, TypePaymentReceived,
		TypeReviewReceived, TypeServiceUpdate, TypeMessage,
		TypeSystemAnnouncement, TypeVerificationReminder, TypePasswordReset:
		return true
	}
	return false
}

// Priority represents the notification priority level. It is informational
// and does not alter dispatch ordering.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is one of the known priority levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Channel identifies an independent transport delivery mechanism.
// The in-app channel is not a transport channel: it is delivered through the
// real-time bus and tracked by InAppStatus on the record.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// ChannelSet selects which transport channels a notification is dispatched to.
type ChannelSet struct {
	Email bool `json:"email"`
	SMS   bool `json:"sms"`
	Push  bool `json:"push"`
}

// Enabled reports whether ch is requested by the set.
func (s ChannelSet) Enabled(ch Channel) bool {
	switch ch {
	case ChannelEmail:
		return s.Email
	case ChannelSMS:
		return s.SMS
	case ChannelPush:
		return s.Push
	}
	return false
}

// Channels returns the requested channels in a stable order.
func (s ChannelSet) Channels() []Channel {
	var out []Channel
	for _, ch := range []Channel{ChannelEmail, ChannelSMS, ChannelPush} {
		if s.Enabled(ch) {
			out = append(out, ch)
		}
	}
	return out
}

// ChannelStatus is the per-channel delivery outcome. Once Sent is true the
// status is final for that channel; a failed channel keeps Sent=false with
// the last error recorded.
type ChannelStatus struct {
	Sent     bool       `json:"sent" bson:"sent"`
	SentAt   *time.Time `json:"sent_at,omitempty" bson:"sentAt,omitempty"`
	Error    string     `json:"error,omitempty" bson:"error,omitempty"`
	Attempts int        `json:"attempts" bson:"attempts"`
}

// InAppStatus tracks the in-app channel, which has read semantics rather
// than delivery semantics.
type InAppStatus struct {
	Read   bool       `json:"read" bson:"read"`
	ReadAt *time.Time `json:"read_at,omitempty" bson:"readAt,omitempty"`
}

const (
	maxTitleLen   = 100
	maxMessageLen = 1000
)

// Notification is the durable record of one logical notification for one
// recipient, including the independent delivery state of every requested
// transport channel.
type Notification struct {
	ID           string                    `json:"id" bson:"_id"`
	RecipientID  string                    `json:"recipient_id" bson:"recipientId"`
	SenderID     string                    `json:"sender_id,omitempty" bson:"senderId,omitempty"` // empty means system-generated
	Type         Type                      `json:"type" bson:"type"`
	Title        string                    `json:"title" bson:"title"`
	Message      string                    `json:"message" bson:"message"`
	Data         map[string]any            `json:"data,omitempty" bson:"data,omitempty"` // opaque payload for the consuming UI
	Priority     Priority                  `json:"priority" bson:"priority"`
	Channels     map[Channel]ChannelStatus `json:"channels" bson:"channels"`
	InApp        InAppStatus               `json:"in_app" bson:"inApp"`
	IsRead       bool                      `json:"is_read" bson:"isRead"`
	IsArchived   bool                      `json:"is_archived" bson:"isArchived"`
	ScheduledFor *time.Time                `json:"scheduled_for,omitempty" bson:"scheduledFor,omitempty"`
	DispatchedAt *time.Time                `json:"dispatched_at,omitempty" bson:"dispatchedAt,omitempty"`
	ExpiresAt    *time.Time                `json:"expires_at,omitempty" bson:"expiresAt,omitempty"`
	CreatedAt    time.Time                 `json:"created_at" bson:"createdAt"`
}

// Submission is the producer-facing request to create and deliver a
// notification.
type Submission struct {
	RecipientID  string         `json:"recipient_id"`
	SenderID     string         `json:"sender_id,omitempty"`
	Type         Type           `json:"type"`
	Title        string         `json:"title"`
	Message      string         `json:"message"`
	Data         map[string]any `json:"data,omitempty"`
	Channels     ChannelSet     `json:"channels"`
	Priority     Priority       `json:"priority,omitempty"`
	ScheduledFor *time.Time     `json:"scheduled_for,omitempty"`
	ExpiresAt    *time.Time     `json:"expires_at,omitempty"`
}

// Validate checks the submission against the record constraints. All
// violations are reported joined with ErrValidation.
func (s Submission) Validate() error {
	var errs []error
	if s.RecipientID == "" {
		errs = append(errs, errors.New("recipient_id is required"))
	}
	if !s.Type.Valid() {
		errs = append(errs, fmt.Errorf("unknown notification type %q", s.Type))
	}
	if s.Title == "" {
		errs = append(errs, errors.New("title is required"))
	} else if utf8.RuneCountInString(s.Title) > maxTitleLen {
		errs = append(errs, fmt.Errorf("title cannot exceed %d characters", maxTitleLen))
	}
	if s.Message == "" {
		errs = append(errs, errors.New("message is required"))
	} else if utf8.RuneCountInString(s.Message) > maxMessageLen {
		errs = append(errs, fmt.Errorf("message cannot exceed %d characters", maxMessageLen))
	}
	if s.Priority != "" && !s.Priority.Valid() {
		errs = append(errs, fmt.Errorf("unknown priority %q", s.Priority))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrValidation}, errs...)...)
	}
	return nil
}

// IsExpired reports whether the record is past its time-to-live.
func (n *Notification) IsExpired() bool {
	return n.ExpiresAt != nil && time.Now().After(*n.ExpiresAt)
}

// IsDue reports whether the notification is eligible for dispatch at the
// given time. A nil or past ScheduledFor is the only trigger for due
// classification.
func (n *Notification) IsDue(at time.Time) bool {
	return n.ScheduledFor == nil || !n.ScheduledFor.After(at)
}

// RequestedChannels returns the transport channels the notification was
// submitted with, derived from the per-channel status map.
func (n *Notification) RequestedChannels() []Channel {
	var out []Channel
	for _, ch := range []Channel{ChannelEmail, ChannelSMS, ChannelPush} {
		if _, ok := n.Channels[ch]; ok {
			out = append(out, ch)
		}
	}
	return out
}
