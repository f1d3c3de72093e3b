package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/bookwell/notify/pkg/async"
	"github.com/bookwell/notify/pkg/logger"
)

// ChannelOutcome is the settled result of one channel's delivery attempt
// within a single dispatch.
type ChannelOutcome struct {
	Channel Channel
	Skipped bool // channel was already marked sent
	Err     error
}

// DispatchReport summarizes one dispatch call. The dispatch itself never
// fails on channel errors; callers inspect the outcomes (or the record's
// channel statuses) to learn what failed.
type DispatchReport struct {
	NotificationID string
	Outcomes       []ChannelOutcome
}

// Failed returns the outcomes that ended in an error.
func (r DispatchReport) Failed() []ChannelOutcome {
	var out []ChannelOutcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Dispatcher expands one notification into independent per-channel delivery
// attempts. Attempts run concurrently, share no mutable state, and each
// settles by writing a field-scoped status merge back to storage. A failure
// in one channel never blocks or fails another.
type Dispatcher struct {
	storage  Storage
	resolver Resolver
	adapters map[Channel]Adapter
	logger   *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the logger for the Dispatcher.
func WithDispatcherLogger(log *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = log
	}
}

// NewDispatcher creates a dispatcher over the given storage, resolver and
// channel adapters. Adapters are keyed by the channel they declare; passing
// two adapters for the same channel keeps the last one.
func NewDispatcher(storage Storage, resolver Resolver, adapters []Adapter, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		storage:  storage,
		resolver: resolver,
		adapters: make(map[Channel]Adapter, len(adapters)),
		logger:   slog.Default(),
	}
	for _, a := range adapters {
		d.adapters[a.Channel()] = a
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch fans the notification out to every channel in its status map.
// Channels already marked sent are skipped, so re-dispatching after a
// partial failure only re-attempts the failed channels. Dispatch waits for
// all attempts to settle before returning.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) DispatchReport {
	report := DispatchReport{NotificationID: n.ID}

	type attemptResult struct {
		channel Channel
		err     error
	}

	var futures []*async.Future[attemptResult]
	for _, ch := range n.RequestedChannels() {
		if n.Channels[ch].Sent {
			report.Outcomes = append(report.Outcomes, ChannelOutcome{Channel: ch, Skipped: true})
			continue
		}
		futures = append(futures, async.Async(ctx, ch, func(ctx context.Context, ch Channel) (attemptResult, error) {
			return attemptResult{channel: ch, err: d.attempt(ctx, n, ch)}, nil
		}))
	}

	results, _ := async.WaitAll(futures...)
	for _, res := range results {
		report.Outcomes = append(report.Outcomes, ChannelOutcome{Channel: res.channel, Err: res.err})
	}
	return report
}

// attempt performs one channel's delivery: resolve contact, invoke the
// adapter, then record the outcome as a field-scoped merge. The returned
// error is informational; it has already been absorbed into the record.
func (d *Dispatcher) attempt(ctx context.Context, n Notification, ch Channel) error {
	err := d.deliver(ctx, n, ch)

	res := ChannelResult{}
	if err != nil {
		res.Error = err.Error()
		d.logger.LogAttrs(ctx, slog.LevelWarn, "channel delivery failed",
			logger.NotificationID(n.ID),
			logger.RecipientID(n.RecipientID),
			logger.ChannelName(string(ch)),
			logger.Error(err),
		)
	} else {
		now := time.Now()
		res.Sent = true
		res.SentAt = &now
	}

	if storeErr := d.storage.SetChannelResult(ctx, n.ID, ch, res); storeErr != nil {
		d.logger.LogAttrs(ctx, slog.LevelError, "failed to record channel outcome",
			logger.NotificationID(n.ID),
			logger.ChannelName(string(ch)),
			logger.Error(storeErr),
		)
		if err == nil {
			err = storeErr
		}
	}
	return err
}

func (d *Dispatcher) deliver(ctx context.Context, n Notification, ch Channel) error {
	adapter, ok := d.adapters[ch]
	if !ok {
		return ErrNoAdapter
	}
	contact, err := d.resolver.Resolve(ctx, n.RecipientID)
	if err != nil {
		return err
	}
	return adapter.Send(ctx, n, *contact)
}
