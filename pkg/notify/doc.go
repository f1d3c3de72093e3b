// Package notify is the core of the marketplace notification subsystem: the
// durable notification record, its per-channel delivery state, the fan-out
// dispatcher, the scheduler gate for deferred delivery, and the read/archive
// lifecycle.
//
// # Architecture
//
// The package is built from small, injectable pieces:
//
//   - Storage: durable record store with field-scoped per-channel updates
//   - Resolver: maps a recipient id to contact data (identity service)
//   - Adapter: one per transport channel (email, SMS, push)
//   - Dispatcher: concurrent fan-out with per-channel failure isolation
//   - RealtimePublisher: pushes events to connected clients (in-app channel)
//   - Manager: submission, scheduler gate, lifecycle queries
//   - Sweeper: periodic due-check for scheduled notifications
//
// # Delivery model
//
// One logical notification is expanded into independent per-channel attempts
// that run concurrently and share no mutable state. Each attempt settles by
// merging its outcome into that channel's status on the record; a failure is
// recorded there and never surfaced as a failure of the dispatch call.
// Callers inspect the channel statuses to learn what failed and may invoke
// Manager.Redispatch to re-attempt failed channels.
//
// # Basic Usage
//
//	storage := notify.NewMemoryStorage()
//	dispatcher := notify.NewDispatcher(storage, resolver, []notify.Adapter{emailAdapter, smsAdapter})
//	manager := notify.NewManager(storage, dispatcher, bus)
//
//	n, err := manager.Submit(ctx, notify.Submission{
//	    RecipientID: "user-123",
//	    Type:        notify.TypeBookingConfirmed,
//	    Title:       "Booking confirmed",
//	    Message:     "Your booking for Friday 10:00 is confirmed.",
//	    Channels:    notify.ChannelSet{Email: true, Push: true},
//	})
//
// Scheduled notifications (Submission.ScheduledFor in the future) are stored
// but not dispatched; run a Sweeper to deliver them once due:
//
//	sweeper := notify.NewSweeper(storage, dispatcher)
//	go sweeper.Start(ctx)
package notify
