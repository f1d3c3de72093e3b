package notify

import (
	"context"
	"time"
)

// ChannelResult is the settled outcome of one delivery attempt, applied to a
// single channel's status as a field-scoped merge.
type ChannelResult struct {
	Sent   bool
	SentAt *time.Time
	Error  string
}

// ListOptions provides filtering and pagination for listing notifications.
// Archived notifications are always excluded from listings.
type ListOptions struct {
	Type     Type     // if set, only notifications of this type
	IsRead   *bool    // if set, filter by read state
	Priority Priority // if set, only notifications of this priority
	Limit    int      // maximum items per page (0 = no limit)
	Offset   int      // items to skip for pagination
}

// Page is the result of a listing query, ordered by creation time descending.
type Page struct {
	Items       []Notification `json:"items"`
	Total       int            `json:"total"`
	UnreadCount int            `json:"unread_count"`
	Limit       int            `json:"limit"`
	Offset      int            `json:"offset"`
}

// Storage is the durable record store for notifications. It is the single
// source of truth for idempotent per-channel status updates.
//
// Implementations must apply SetChannelResult as an independent field-scoped
// merge keyed by channel, never as a whole-record replace, so that two
// channels finishing close together cannot lose each other's updates. Once a
// channel is marked sent the status is final for that channel and later
// results for it must be discarded.
type Storage interface {
	// Create stores a new notification record.
	Create(ctx context.Context, n Notification) error

	// Get retrieves a notification by id, returning ErrNotFound when the id
	// is unknown.
	Get(ctx context.Context, id string) (*Notification, error)

	// List returns one recipient's non-archived notifications.
	List(ctx context.Context, recipientID string, opts ListOptions) (*Page, error)

	// SetChannelResult merges one channel's delivery outcome into the record
	// and increments that channel's attempt counter.
	SetChannelResult(ctx context.Context, id string, ch Channel, res ChannelResult) error

	// MarkRead transitions a notification to read on behalf of recipientID.
	// Marking an already-read notification is a no-op; marking an archived
	// one returns ErrArchived; a recipient mismatch returns ErrAccessDenied.
	MarkRead(ctx context.Context, id, recipientID string) (*Notification, error)

	// MarkAllRead transitions every unread, non-archived notification of the
	// recipient to read and returns how many records changed.
	MarkAllRead(ctx context.Context, recipientID string) (int, error)

	// Archive transitions a notification to archived on behalf of
	// recipientID. Archiving an archived notification is a no-op.
	Archive(ctx context.Context, id, recipientID string) (*Notification, error)

	// CountUnread returns the number of unread, non-archived notifications
	// for the recipient.
	CountUnread(ctx context.Context, recipientID string) (int, error)

	// ListDue returns up to limit notifications that are due at the given
	// time and have not yet been claimed for dispatch.
	ListDue(ctx context.Context, now time.Time, limit int) ([]Notification, error)

	// ClaimForDispatch atomically stamps DispatchedAt on an unclaimed record
	// and reports whether this caller won the claim. Exactly one caller wins
	// for any record, which keeps repeated due-checks from double-sending.
	ClaimForDispatch(ctx context.Context, id string, at time.Time) (bool, error)

	// DeleteExpired removes records whose ExpiresAt is in the past and
	// returns how many were deleted. Stores with native TTL support may
	// implement this as a no-op.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
