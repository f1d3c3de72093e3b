package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/bookwell/notify/pkg/logger"
)

// Sweeper is the time-based trigger for deferred notifications. It
// periodically queries the store for records whose scheduled time has
// passed, claims each one, and dispatches it exactly once. It also drives
// the expiry sweep for stores without native TTL support.
type Sweeper struct {
	storage    Storage
	dispatcher *Dispatcher
	interval   time.Duration
	batchSize  int
	logger     *slog.Logger
	now        func() time.Time
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweepInterval sets how often the due-check runs.
func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSweepBatchSize caps how many due records one sweep claims.
func WithSweepBatchSize(n int) SweeperOption {
	return func(s *Sweeper) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithSweeperLogger sets the logger for the Sweeper.
func WithSweeperLogger(log *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		s.logger = log
	}
}

// NewSweeper creates a due-notification sweeper.
func NewSweeper(storage Storage, dispatcher *Dispatcher, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		storage:    storage,
		dispatcher: dispatcher,
		interval:   30 * time.Second,
		batchSize:  100,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the sweep loop until the context is cancelled. It checks once
// immediately so scheduled notifications that became due while the process
// was down are picked up without waiting a full interval.
func (s *Sweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "notification sweeper shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one due-check pass: every due, unclaimed record is claimed and
// dispatched. The claim guarantees that overlapping sweeps, or a sweep
// racing a synchronous submit, never double-send. Returns how many records
// this pass dispatched.
func (s *Sweeper) Sweep(ctx context.Context) int {
	now := s.now()

	due, err := s.storage.ListDue(ctx, now, s.batchSize)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "failed to list due notifications",
			logger.Error(err),
		)
		return 0
	}

	dispatched := 0
	for _, n := range due {
		claimed, err := s.storage.ClaimForDispatch(ctx, n.ID, now)
		if err != nil {
			s.logger.LogAttrs(ctx, slog.LevelError, "failed to claim due notification",
				logger.NotificationID(n.ID),
				logger.Error(err),
			)
			continue
		}
		if !claimed {
			continue
		}
		s.dispatcher.Dispatch(ctx, n)
		dispatched++
	}

	if expired, err := s.storage.DeleteExpired(ctx, now); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "expiry sweep failed",
			logger.Error(err),
		)
	} else if expired > 0 {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "expired notifications deleted",
			slog.Int("count", expired),
		)
	}

	return dispatched
}
