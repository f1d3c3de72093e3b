package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/bookwell/notify/pkg/logger"
	"github.com/bookwell/notify/pkg/notify"
)

// RedisBus routes events through Redis pub/sub so that a recipient's
// endpoints may be connected to any instance of the service. Routing
// semantics match MemoryBus: no buffering for offline recipients, publish
// is fire-and-forget.
type RedisBus struct {
	client     *redis.Client
	prefix     string
	bufferSize int
	endpoints  map[*redisEndpoint]struct{}
	closed     bool
	mu         sync.Mutex
	logger     *slog.Logger
}

// RedisBusOption configures a RedisBus.
type RedisBusOption func(*RedisBus)

// WithChannelPrefix overrides the Redis channel name prefix.
func WithChannelPrefix(prefix string) RedisBusOption {
	return func(b *RedisBus) {
		if prefix != "" {
			b.prefix = prefix
		}
	}
}

// WithRedisBusLogger sets the logger for the bus.
func WithRedisBusLogger(log *slog.Logger) RedisBusOption {
	return func(b *RedisBus) {
		b.logger = log
	}
}

// WithRedisEndpointBuffer sets the per-endpoint event buffer size.
func WithRedisEndpointBuffer(size int) RedisBusOption {
	return func(b *RedisBus) {
		b.bufferSize = max(size, 1)
	}
}

// NewRedisBus creates a Redis-backed real-time delivery bus on an existing
// client connection.
func NewRedisBus(client *redis.Client, opts ...RedisBusOption) *RedisBus {
	b := &RedisBus{
		client:     client,
		prefix:     "notify:rt:",
		bufferSize: 16,
		endpoints:  make(map[*redisEndpoint]struct{}),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *RedisBus) key(recipientID string) string {
	return b.prefix + recipientID
}

func (b *RedisBus) Publish(ctx context.Context, recipientID string, ev notify.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.key(recipientID), payload).Err()
}

func (b *RedisBus) Join(ctx context.Context, recipientID string) (Endpoint, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBusClosed
	}

	ep := &redisEndpoint{
		bus:    b,
		pubsub: b.client.Subscribe(ctx, b.key(recipientID)),
		ch:     make(chan notify.Event, b.bufferSize),
	}
	b.endpoints[ep] = struct{}{}
	b.mu.Unlock()

	go ep.pump(ctx)

	// Auto-leave on context cancellation.
	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			_ = ep.Close()
		}()
	}

	return ep, nil
}

func (b *RedisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	eps := make([]*redisEndpoint, 0, len(b.endpoints))
	for ep := range b.endpoints {
		eps = append(eps, ep)
	}
	clear(b.endpoints)
	b.mu.Unlock()

	for _, ep := range eps {
		_ = ep.Close()
	}
	return nil
}

func (b *RedisBus) forget(ep *redisEndpoint) {
	b.mu.Lock()
	delete(b.endpoints, ep)
	b.mu.Unlock()
}

// redisEndpoint adapts one Redis subscription to the Endpoint interface.
type redisEndpoint struct {
	bus       *RedisBus
	pubsub    *redis.PubSub
	ch        chan notify.Event
	closeOnce sync.Once
}

func (e *redisEndpoint) Events() <-chan notify.Event {
	return e.ch
}

func (e *redisEndpoint) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.bus.forget(e)
		err = e.pubsub.Close()
	})
	return err
}

// pump decodes wire messages into events until the subscription closes.
func (e *redisEndpoint) pump(ctx context.Context) {
	defer close(e.ch)

	for msg := range e.pubsub.Channel() {
		var ev notify.Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			e.bus.logger.LogAttrs(ctx, slog.LevelWarn, "discarding undecodable real-time event",
				logger.Error(err),
			)
			continue
		}
		select {
		case e.ch <- ev:
		default:
			// Saturated endpoint: drop rather than stall the pump.
			e.bus.logger.LogAttrs(ctx, slog.LevelDebug, "real-time event dropped for endpoint",
				logger.RecipientID(ev.RecipientID),
				logger.NotificationID(ev.NotificationID),
			)
		}
	}
}
