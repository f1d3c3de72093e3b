// Package pgstore is the PostgreSQL implementation of the notification
// record store, built on pgx/v5. Per-channel delivery state lives in a
// JSONB column updated with jsonb_set keyed by channel name so concurrent
// channel outcomes merge rather than overwrite. The expiry sweep is driven
// by the notification sweeper through DeleteExpired.
package pgstore
