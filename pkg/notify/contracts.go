package notify

import (
	"context"
	"time"
)

// Contact is the delivery contact data for one recipient, resolved from the
// platform identity service. Any field may be empty; each channel adapter
// decides whether the data it needs is present.
type Contact struct {
	Name         string   `json:"name,omitempty"`
	Email        string   `json:"email,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	DeviceTokens []string `json:"device_tokens,omitempty"`
}

// Resolver maps a recipient identifier to contact data. Implementations must
// return ErrRecipientNotFound (possibly wrapped) when the id is unknown.
type Resolver interface {
	Resolve(ctx context.Context, recipientID string) (*Contact, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, recipientID string) (*Contact, error)

func (f ResolverFunc) Resolve(ctx context.Context, recipientID string) (*Contact, error) {
	return f(ctx, recipientID)
}

// Adapter performs the transport call for one delivery channel. Adapters are
// capability-tagged via Channel and injected into the Dispatcher, so tests
// can substitute fakes that record calls.
type Adapter interface {
	// Channel identifies the transport channel the adapter serves.
	Channel() Channel

	// Send delivers the notification to the resolved contact. It must return
	// ErrContactMissing (possibly wrapped) when the contact lacks required
	// data, or a TransportError for provider failures.
	Send(ctx context.Context, n Notification, contact Contact) error
}

// Event is the lightweight payload pushed to connected clients through the
// real-time bus. It carries enough to update an unread badge or list without
// shipping the full record.
type Event struct {
	NotificationID string    `json:"notification_id"`
	RecipientID    string    `json:"recipient_id"`
	Type           Type      `json:"type"`
	Priority       Priority  `json:"priority"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"created_at"`
}

// EventOf builds the real-time event for a notification record.
func EventOf(n Notification) Event {
	return Event{
		NotificationID: n.ID,
		RecipientID:    n.RecipientID,
		Type:           n.Type,
		Priority:       n.Priority,
		Title:          n.Title,
		CreatedAt:      n.CreatedAt,
	}
}

// RealtimePublisher pushes events to currently-connected clients. Publishing
// to a recipient with no connected endpoints is not an error; the event is
// silently dropped and the persisted record remains the source of truth.
type RealtimePublisher interface {
	Publish(ctx context.Context, recipientID string, ev Event) error
}

// NoOpPublisher discards all events. Useful when real-time delivery is not
// wired, for example in batch tooling or tests.
type NoOpPublisher struct{}

func (NoOpPublisher) Publish(ctx context.Context, recipientID string, ev Event) error {
	return nil
}
