package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwell/notify/pkg/notify"
)

func TestSweeper_DispatchesDueNotifications(t *testing.T) {
	t.Parallel()

	store := notify.NewMemoryStorage()
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	due := newRecord("due", "user-1", notify.ChannelEmail)
	due.ScheduledFor = &past
	require.NoError(t, store.Create(ctx, due))

	future := time.Now().Add(time.Hour)
	later := newRecord("later", "user-1", notify.ChannelEmail)
	later.ScheduledFor = &future
	require.NoError(t, store.Create(ctx, later))

	email := &fakeAdapter{channel: notify.ChannelEmail}
	d := notify.NewDispatcher(store, staticResolver(notify.Contact{Email: "a@b.c"}), []notify.Adapter{email})
	sweeper := notify.NewSweeper(store, d)

	assert.Equal(t, 1, sweeper.Sweep(ctx))
	assert.Equal(t, []string{"due"}, email.sends())

	got, err := store.Get(ctx, "due")
	require.NoError(t, err)
	assert.NotNil(t, got.DispatchedAt)
	assert.True(t, got.Channels[notify.ChannelEmail].Sent)

	got, err = store.Get(ctx, "later")
	require.NoError(t, err)
	assert.Nil(t, got.DispatchedAt)
}

func TestSweeper_SweepIsIdempotent(t *testing.T) {
	t.Parallel()

	store := notify.NewMemoryStorage()
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	n := newRecord("n1", "user-1", notify.ChannelEmail)
	n.ScheduledFor = &past
	require.NoError(t, store.Create(ctx, n))

	email := &fakeAdapter{channel: notify.ChannelEmail}
	d := notify.NewDispatcher(store, staticResolver(notify.Contact{Email: "a@b.c"}), []notify.Adapter{email})
	sweeper := notify.NewSweeper(store, d)

	assert.Equal(t, 1, sweeper.Sweep(ctx))
	assert.Equal(t, 0, sweeper.Sweep(ctx))
	assert.Equal(t, 0, sweeper.Sweep(ctx))
	assert.Equal(t, []string{"n1"}, email.sends(), "repeated sweeps must not double-send")
}

func TestSweeper_BatchSize(t *testing.T) {
	t.Parallel()

	store := notify.NewMemoryStorage()
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	for _, id := range []string{"n1", "n2", "n3"} {
		n := newRecord(id, "user-1", notify.ChannelEmail)
		n.ScheduledFor = &past
		require.NoError(t, store.Create(ctx, n))
	}

	email := &fakeAdapter{channel: notify.ChannelEmail}
	d := notify.NewDispatcher(store, staticResolver(notify.Contact{Email: "a@b.c"}), []notify.Adapter{email})
	sweeper := notify.NewSweeper(store, d, notify.WithSweepBatchSize(2))

	assert.Equal(t, 2, sweeper.Sweep(ctx))
	assert.Equal(t, 1, sweeper.Sweep(ctx))
	assert.Len(t, email.sends(), 3)
}

func TestSweeper_DeletesExpired(t *testing.T) {
	t.Parallel()

	store := notify.NewMemoryStorage()
	ctx := context.Background()

	past := time.Now().Add(-time.Minute)
	expired := newRecord("expired", "user-1", notify.ChannelEmail)
	expired.ExpiresAt = &past
	expired.DispatchedAt = &past
	require.NoError(t, store.Create(ctx, expired))

	d := notify.NewDispatcher(store, staticResolver(notify.Contact{}), nil)
	sweeper := notify.NewSweeper(store, d)
	sweeper.Sweep(ctx)

	_, err := store.Get(ctx, "expired")
	assert.ErrorIs(t, err, notify.ErrNotFound)
}

func TestSweeper_StartStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	store := notify.NewMemoryStorage()
	d := notify.NewDispatcher(store, staticResolver(notify.Contact{}), nil)
	sweeper := notify.NewSweeper(store, d, notify.WithSweepInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- sweeper.Start(ctx)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}
