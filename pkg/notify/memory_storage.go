package notify

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// MemoryStorage is an in-memory implementation of the Storage interface.
// Suitable for development and testing; all methods are safe for concurrent
// use and per-channel updates are merged under the store's lock so that
// concurrent channel outcomes on the same record never overwrite each other.
type MemoryStorage struct {
	records map[string]*Notification // id -> record
	mu      sync.RWMutex
}

// NewMemoryStorage creates an empty in-memory notification store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*Notification),
	}
}

func (s *MemoryStorage) Create(ctx context.Context, n Notification) error {
	if n.ID == "" {
		return errors.New("notify: notification ID is required")
	}
	if n.RecipientID == "" {
		return errors.New("notify: recipient ID is required")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[n.ID] = &n
	return nil
}

func (s *MemoryStorage) Get(ctx context.Context, id string) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneNotification(n)
	return &out, nil
}

func (s *MemoryStorage) List(ctx context.Context, recipientID string, opts ListOptions) (*Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []Notification
	unread := 0
	for _, n := range s.records {
		if n.RecipientID != recipientID || n.IsArchived || n.IsExpired() {
			continue
		}
		if !n.IsRead {
			unread++
		}
		if opts.Type != "" && n.Type != opts.Type {
			continue
		}
		if opts.IsRead != nil && n.IsRead != *opts.IsRead {
			continue
		}
		if opts.Priority != "" && n.Priority != opts.Priority {
			continue
		}
		filtered = append(filtered, cloneNotification(n))
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	total := len(filtered)
	start := opts.Offset
	if start > total {
		start = total
	}
	end := total
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}

	return &Page{
		Items:       filtered[start:end],
		Total:       total,
		UnreadCount: unread,
		Limit:       opts.Limit,
		Offset:      opts.Offset,
	}, nil
}

func (s *MemoryStorage) SetChannelResult(ctx context.Context, id string, ch Channel, res ChannelResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}

	status := n.Channels[ch]
	if status.Sent {
		// Sent is write-once; a settled success is never downgraded.
		return nil
	}
	status.Attempts++
	status.Sent = res.Sent
	status.SentAt = res.SentAt
	status.Error = res.Error
	if n.Channels == nil {
		n.Channels = make(map[Channel]ChannelStatus)
	}
	n.Channels[ch] = status
	return nil
}

func (s *MemoryStorage) MarkRead(ctx context.Context, id, recipientID string) (*Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	if n.RecipientID != recipientID {
		return nil, ErrAccessDenied
	}
	switch n.State() {
	case StateArchived:
		return nil, ErrArchived
	case StateUnread:
		n.markRead(time.Now())
	}
	out := cloneNotification(n)
	return &out, nil
}

func (s *MemoryStorage) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	count := 0
	for _, n := range s.records {
		if n.RecipientID != recipientID || n.State() != StateUnread {
			continue
		}
		n.markRead(now)
		count++
	}
	return count, nil
}

func (s *MemoryStorage) Archive(ctx context.Context, id, recipientID string) (*Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	if n.RecipientID != recipientID {
		return nil, ErrAccessDenied
	}
	if !n.IsArchived {
		n.archive()
	}
	out := cloneNotification(n)
	return &out, nil
}

func (s *MemoryStorage) CountUnread(ctx context.Context, recipientID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.records {
		if n.RecipientID == recipientID && n.State() == StateUnread && !n.IsExpired() {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStorage) ListDue(ctx context.Context, now time.Time, limit int) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []Notification
	for _, n := range s.records {
		if n.DispatchedAt != nil || !n.IsDue(now) || n.IsExpired() {
			continue
		}
		due = append(due, cloneNotification(n))
		if limit > 0 && len(due) >= limit {
			break
		}
	}
	return due, nil
}

func (s *MemoryStorage) ClaimForDispatch(ctx context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.records[id]
	if !ok {
		return false, ErrNotFound
	}
	if n.DispatchedAt != nil {
		return false, nil
	}
	n.DispatchedAt = &at
	return true, nil
}

func (s *MemoryStorage) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, n := range s.records {
		if n.ExpiresAt != nil && n.ExpiresAt.Before(now) {
			delete(s.records, id)
			count++
		}
	}
	return count, nil
}

// cloneNotification returns a deep enough copy to prevent external mutation
// of stored channel and data maps.
func cloneNotification(n *Notification) Notification {
	out := *n
	if n.Channels != nil {
		out.Channels = make(map[Channel]ChannelStatus, len(n.Channels))
		for ch, st := range n.Channels {
			out.Channels[ch] = st
		}
	}
	if n.Data != nil {
		out.Data = make(map[string]any, len(n.Data))
		for k, v := range n.Data {
			out.Data[k] = v
		}
	}
	return out
}
