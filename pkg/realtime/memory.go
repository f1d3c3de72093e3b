package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bookwell/notify/pkg/logger"
	"github.com/bookwell/notify/pkg/notify"
)

// endpoint is the in-memory Endpoint implementation: a buffered channel with
// idempotent close.
type endpoint struct {
	bus         *MemoryBus
	recipientID string
	ch          chan notify.Event
	closed      bool
	mu          sync.RWMutex
}

func newEndpoint(bus *MemoryBus, recipientID string) *endpoint {
	return &endpoint{
		bus:         bus,
		recipientID: recipientID,
		ch:          make(chan notify.Event, bus.bufferSize),
	}
}

func (e *endpoint) Events() <-chan notify.Event {
	return e.ch
}

// Close leaves the bus, so a directly-closed endpoint is removed from the
// routing map the same way a cancelled context removes it.
func (e *endpoint) Close() error {
	e.bus.leave(e)
	return nil
}

// shutdown closes the event channel. Idempotent; called with the bus lock
// held by leave or by the bus's own Close.
func (e *endpoint) shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.closed {
		close(e.ch)
		e.closed = true
	}
}

// send delivers non-blocking; a full buffer drops the event rather than
// stalling the publisher.
func (e *endpoint) send(ev notify.Event) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return false
	}
	select {
	case e.ch <- ev:
		return true
	default:
		return false
	}
}

// MemoryBus is the in-process Bus implementation: a recipient-keyed
// connection registry created at service start and torn down at shutdown.
// It tolerates concurrent join, leave, and publish without corrupting
// routing for unrelated recipients. For multi-instance deployments use
// RedisBus instead.
type MemoryBus struct {
	endpoints  map[string]map[*endpoint]struct{} // recipientID -> open endpoints
	bufferSize int
	closed     bool
	done       chan struct{}
	mu         sync.RWMutex
	cleanupWg  sync.WaitGroup
	logger     *slog.Logger
}

// MemoryBusOption configures a MemoryBus.
type MemoryBusOption func(*MemoryBus)

// WithBusLogger sets the logger for the bus.
func WithBusLogger(log *slog.Logger) MemoryBusOption {
	return func(b *MemoryBus) {
		b.logger = log
	}
}

// WithEndpointBuffer sets the per-endpoint event buffer. When an endpoint's
// buffer is full, events for it are dropped rather than blocking publishers.
// A minimum of 1 is enforced.
func WithEndpointBuffer(size int) MemoryBusOption {
	return func(b *MemoryBus) {
		b.bufferSize = max(size, 1)
	}
}

// NewMemoryBus creates an in-process real-time delivery bus.
func NewMemoryBus(opts ...MemoryBusOption) *MemoryBus {
	b := &MemoryBus{
		endpoints:  make(map[string]map[*endpoint]struct{}),
		bufferSize: 16,
		done:       make(chan struct{}),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *MemoryBus) Join(ctx context.Context, recipientID string) (Endpoint, error) {
	b.mu.Lock()

	if b.closed {
		b.mu.Unlock()
		return nil, ErrBusClosed
	}

	ep := newEndpoint(b, recipientID)
	set, ok := b.endpoints[recipientID]
	if !ok {
		set = make(map[*endpoint]struct{})
		b.endpoints[recipientID] = set
	}
	set[ep] = struct{}{}
	b.mu.Unlock()

	// Auto-leave on context cancellation or bus shutdown.
	if ctx.Done() != nil {
		b.cleanupWg.Add(1)
		go func() {
			defer b.cleanupWg.Done()
			select {
			case <-ctx.Done():
				b.leave(ep)
			case <-b.done:
			}
		}()
	}

	return ep, nil
}

func (b *MemoryBus) Publish(ctx context.Context, recipientID string, ev notify.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}

	for ep := range b.endpoints[recipientID] {
		if !ep.send(ev) {
			// Stale or saturated endpoint: the event is dropped for it and
			// logged, never surfaced to the producer.
			b.logger.LogAttrs(ctx, slog.LevelDebug, "real-time event dropped for endpoint",
				logger.RecipientID(recipientID),
				logger.NotificationID(ev.NotificationID),
			)
		}
	}
	return nil
}

// EndpointCount returns how many endpoints are currently joined for the
// recipient. Used by transports and tests.
func (b *MemoryBus) EndpointCount(recipientID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.endpoints[recipientID])
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()

	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)

	for _, set := range b.endpoints {
		for ep := range set {
			ep.shutdown()
		}
	}
	clear(b.endpoints)
	b.mu.Unlock()

	// Wait for auto-leave goroutines so Close never races leave.
	b.cleanupWg.Wait()
	return nil
}

func (b *MemoryBus) leave(ep *endpoint) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if set, ok := b.endpoints[ep.recipientID]; ok {
		delete(set, ep)
		if len(set) == 0 {
			delete(b.endpoints, ep.recipientID)
		}
	}
	ep.shutdown()
}
