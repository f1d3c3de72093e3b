package realtime

import (
	"context"

	"github.com/bookwell/notify/pkg/notify"
)

// Endpoint is one live connection subscribed to a recipient's events. The
// Events channel is closed when the endpoint leaves the bus, whether by
// Close, context cancellation, or bus shutdown.
type Endpoint interface {
	// Events returns the channel delivering the recipient's events.
	Events() <-chan notify.Event

	// Close leaves the bus and releases the endpoint. Close is idempotent.
	Close() error
}

// Bus routes notification events to the currently-connected endpoints of a
// recipient. It holds routing state only, never notification content:
// events for recipients with no open endpoints are dropped, and a client
// that reconnects catches up from the persisted records instead.
type Bus interface {
	// Join registers an endpoint for the recipient's events. The endpoint
	// is removed automatically when ctx is cancelled. Authentication of the
	// recipient declaration is the caller's responsibility.
	Join(ctx context.Context, recipientID string) (Endpoint, error)

	// Publish pushes an event to every open endpoint of the recipient.
	// No endpoints is not an error.
	Publish(ctx context.Context, recipientID string, ev notify.Event) error

	// Close shuts the bus down and closes every endpoint.
	Close() error
}
