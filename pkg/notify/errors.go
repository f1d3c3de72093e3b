package notify

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates a malformed submission, rejected before any
	// record is created.
	ErrValidation = errors.New("notify: invalid submission")

	// ErrNotFound is returned when a notification id is unknown.
	ErrNotFound = errors.New("notify: notification not found")

	// ErrAccessDenied is returned when a lifecycle transition is requested
	// by someone other than the notification's recipient.
	ErrAccessDenied = errors.New("notify: access denied")

	// ErrArchived is returned when a read transition is attempted on an
	// archived notification. Archived is a terminal state.
	ErrArchived = errors.New("notify: notification is archived")

	// ErrRecipientNotFound is returned by a Resolver when the recipient id
	// is unknown to the identity service.
	ErrRecipientNotFound = errors.New("notify: recipient not found")

	// ErrContactMissing is returned by a channel adapter when the resolved
	// contact lacks the data the channel needs (no phone on file, no device
	// tokens, and so on).
	ErrContactMissing = errors.New("notify: contact information missing")

	// ErrNoAdapter is recorded as a channel error when dispatch is requested
	// for a channel with no registered adapter.
	ErrNoAdapter = errors.New("notify: no adapter registered for channel")
)

// TransportError wraps a failure reported by a channel adapter's provider.
// It is recorded on the channel status and never surfaced as a failure of
// the dispatch call itself.
type TransportError struct {
	Channel Channel
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("notify: %s transport failed: %v", e.Channel, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
