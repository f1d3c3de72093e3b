package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bookwell/notify/pkg/async"
	"github.com/bookwell/notify/pkg/logger"
)

// Manager orchestrates the notification lifecycle: submission, the scheduler
// gate, fan-out dispatch, real-time publication, and read/archive queries.
type Manager struct {
	storage    Storage
	dispatcher *Dispatcher
	realtime   RealtimePublisher
	logger     *slog.Logger
	now        func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger for the Manager.
func WithManagerLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = log
	}
}

// WithClock overrides the manager's time source. Intended for tests that
// exercise the scheduler gate.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a notification manager. A nil realtime publisher
// disables real-time delivery without affecting durable channels.
func NewManager(storage Storage, dispatcher *Dispatcher, realtime RealtimePublisher, opts ...ManagerOption) *Manager {
	if realtime == nil {
		realtime = NoOpPublisher{}
	}
	m := &Manager{
		storage:    storage,
		dispatcher: dispatcher,
		realtime:   realtime,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Submit validates the submission, creates the durable record, publishes the
// real-time event, and runs the scheduler gate: a due notification is
// dispatched synchronously, a future-scheduled one is left for the sweeper.
//
// Per-channel delivery failures are recorded on the returned record's channel
// statuses and never surfaced as a Submit error.
func (m *Manager) Submit(ctx context.Context, sub Submission) (*Notification, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	now := m.now()
	n := Notification{
		ID:           uuid.New().String(),
		RecipientID:  sub.RecipientID,
		SenderID:     sub.SenderID,
		Type:         sub.Type,
		Title:        sub.Title,
		Message:      sub.Message,
		Data:         sub.Data,
		Priority:     sub.Priority,
		Channels:     make(map[Channel]ChannelStatus),
		ScheduledFor: sub.ScheduledFor,
		ExpiresAt:    sub.ExpiresAt,
		CreatedAt:    now,
	}
	if n.Priority == "" {
		n.Priority = PriorityNormal
	}
	for _, ch := range sub.Channels.Channels() {
		n.Channels[ch] = ChannelStatus{}
	}

	if err := m.storage.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("notify: failed to store notification: %w", err)
	}

	// Real-time publication is fire-and-forget and deliberately not
	// synchronized with channel dispatch. Failures are logged, never
	// surfaced to the producer.
	if err := m.realtime.Publish(ctx, n.RecipientID, EventOf(n)); err != nil {
		m.logger.LogAttrs(ctx, slog.LevelWarn, "real-time publish failed, record is persisted",
			logger.NotificationID(n.ID),
			logger.RecipientID(n.RecipientID),
			logger.Error(err),
		)
	}

	if n.IsDue(now) {
		if err := m.dispatchClaimed(ctx, n); err != nil {
			return nil, err
		}
	}

	return m.storage.Get(ctx, n.ID)
}

// dispatchClaimed claims the record and fans it out. Losing the claim means
// another worker (typically the due sweeper) got there first, which is not
// an error.
func (m *Manager) dispatchClaimed(ctx context.Context, n Notification) error {
	claimed, err := m.storage.ClaimForDispatch(ctx, n.ID, m.now())
	if err != nil {
		return fmt.Errorf("notify: failed to claim notification for dispatch: %w", err)
	}
	if claimed {
		m.dispatcher.Dispatch(ctx, n)
	}
	return nil
}

// Redispatch re-attempts delivery for channels that previously failed.
// Channels already marked sent are skipped. This is the explicit retry
// operation; no automatic background retry is performed.
func (m *Manager) Redispatch(ctx context.Context, id string) (DispatchReport, error) {
	n, err := m.storage.Get(ctx, id)
	if err != nil {
		return DispatchReport{}, err
	}
	return m.dispatcher.Dispatch(ctx, *n), nil
}

// BulkOutcome is the per-recipient result of a bulk send.
type BulkOutcome struct {
	RecipientID    string `json:"recipient_id"`
	NotificationID string `json:"notification_id,omitempty"`
	Err            error  `json:"-"`
}

// BulkSend creates one independent notification per recipient and submits
// them concurrently. A failure for one recipient never aborts the others;
// the result is always a per-recipient outcome list in input order.
func (m *Manager) BulkSend(ctx context.Context, recipientIDs []string, sub Submission) []BulkOutcome {
	futures := make([]*async.Future[BulkOutcome], len(recipientIDs))
	for i, recipientID := range recipientIDs {
		perRecipient := sub
		perRecipient.RecipientID = recipientID
		futures[i] = async.Async(ctx, perRecipient, func(ctx context.Context, s Submission) (BulkOutcome, error) {
			n, err := m.Submit(ctx, s)
			out := BulkOutcome{RecipientID: s.RecipientID, Err: err}
			if n != nil {
				out.NotificationID = n.ID
			}
			return out, nil
		})
	}

	outcomes, _ := async.WaitAll(futures...)
	return outcomes
}

// Get retrieves a single notification.
func (m *Manager) Get(ctx context.Context, id string) (*Notification, error) {
	return m.storage.Get(ctx, id)
}

// List returns one recipient's notifications with pagination and filters.
func (m *Manager) List(ctx context.Context, recipientID string, opts ListOptions) (*Page, error) {
	return m.storage.List(ctx, recipientID, opts)
}

// MarkRead transitions a notification to read on behalf of its recipient.
func (m *Manager) MarkRead(ctx context.Context, id, recipientID string) (*Notification, error) {
	return m.storage.MarkRead(ctx, id, recipientID)
}

// MarkAllRead marks every unread, non-archived notification of the
// recipient as read.
func (m *Manager) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	return m.storage.MarkAllRead(ctx, recipientID)
}

// Archive transitions a notification to archived on behalf of its recipient.
func (m *Manager) Archive(ctx context.Context, id, recipientID string) (*Notification, error) {
	return m.storage.Archive(ctx, id, recipientID)
}

// CountUnread returns the recipient's unread badge count.
func (m *Manager) CountUnread(ctx context.Context, recipientID string) (int, error) {
	return m.storage.CountUnread(ctx, recipientID)
}

// Storage returns the underlying record store.
func (m *Manager) Storage() Storage {
	return m.storage
}
