package realtime_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwell/notify/pkg/notify"
	"github.com/bookwell/notify/pkg/realtime"
)

func testEvent(id, recipientID string) notify.Event {
	return notify.Event{
		NotificationID: id,
		RecipientID:    recipientID,
		Type:           notify.TypeBookingRequest,
		Priority:       notify.PriorityNormal,
		Title:          "New booking request",
		CreatedAt:      time.Now(),
	}
}

func receiveEvent(t *testing.T, ep realtime.Endpoint) notify.Event {
	t.Helper()
	select {
	case ev, ok := <-ep.Events():
		require.True(t, ok, "endpoint closed unexpectedly")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return notify.Event{}
	}
}

func TestMemoryBus_PublishReachesAllEndpoints(t *testing.T) {
	t.Parallel()

	bus := realtime.NewMemoryBus()
	defer bus.Close()
	ctx := context.Background()

	first, err := bus.Join(ctx, "user-1")
	require.NoError(t, err)
	second, err := bus.Join(ctx, "user-1")
	require.NoError(t, err)

	ev := testEvent("n1", "user-1")
	require.NoError(t, bus.Publish(ctx, "user-1", ev))

	assert.Equal(t, "n1", receiveEvent(t, first).NotificationID)
	assert.Equal(t, "n1", receiveEvent(t, second).NotificationID)
}

func TestMemoryBus_RecipientIsolation(t *testing.T) {
	t.Parallel()

	bus := realtime.NewMemoryBus()
	defer bus.Close()
	ctx := context.Background()

	mine, err := bus.Join(ctx, "user-1")
	require.NoError(t, err)
	other, err := bus.Join(ctx, "user-2")
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, "user-1", testEvent("n1", "user-1")))

	assert.Equal(t, "n1", receiveEvent(t, mine).NotificationID)
	select {
	case ev := <-other.Events():
		t.Fatalf("unrelated recipient received event %s", ev.NotificationID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryBus_PublishWithoutEndpoints(t *testing.T) {
	t.Parallel()

	bus := realtime.NewMemoryBus()
	defer bus.Close()

	err := bus.Publish(context.Background(), "nobody-home", testEvent("n1", "nobody-home"))
	assert.NoError(t, err, "publishing to an empty room is not an error")
}

func TestMemoryBus_FullBufferDropsNotBlocks(t *testing.T) {
	t.Parallel()

	bus := realtime.NewMemoryBus(realtime.WithEndpointBuffer(1))
	defer bus.Close()
	ctx := context.Background()

	ep, err := bus.Join(ctx, "user-1")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			_ = bus.Publish(ctx, "user-1", testEvent(fmt.Sprintf("n%d", i), "user-1"))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a saturated endpoint")
	}

	assert.Equal(t, "n0", receiveEvent(t, ep).NotificationID, "the buffered event survives, the overflow is dropped")
}

func TestMemoryBus_EndpointCloseLeaves(t *testing.T) {
	t.Parallel()

	bus := realtime.NewMemoryBus()
	defer bus.Close()

	ep, err := bus.Join(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, 1, bus.EndpointCount("user-1"))

	require.NoError(t, ep.Close())
	assert.Zero(t, bus.EndpointCount("user-1"), "a closed endpoint must leave the routing map")

	_, ok := <-ep.Events()
	assert.False(t, ok)

	require.NoError(t, ep.Close(), "close is idempotent")

	// Publishing after the endpoint left routes to nobody and stays error-free.
	assert.NoError(t, bus.Publish(context.Background(), "user-1", testEvent("n1", "user-1")))
}

func TestMemoryBus_ContextCancelLeaves(t *testing.T) {
	t.Parallel()

	bus := realtime.NewMemoryBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	_, err := bus.Join(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, 1, bus.EndpointCount("user-1"))

	cancel()
	require.Eventually(t, func() bool {
		return bus.EndpointCount("user-1") == 0
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryBus_Close(t *testing.T) {
	t.Parallel()

	bus := realtime.NewMemoryBus()
	ctx := context.Background()

	ep, err := bus.Join(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, bus.Close())

	_, ok := <-ep.Events()
	assert.False(t, ok, "close drains joined endpoints")
	assert.Zero(t, bus.EndpointCount("user-1"))

	_, err = bus.Join(ctx, "user-1")
	assert.ErrorIs(t, err, realtime.ErrBusClosed)
	err = bus.Publish(ctx, "user-1", testEvent("n1", "user-1"))
	assert.ErrorIs(t, err, realtime.ErrBusClosed)

	assert.NoError(t, bus.Close(), "close is idempotent")
}

func TestMemoryBus_ConcurrentJoinPublishLeave(t *testing.T) {
	t.Parallel()

	bus := realtime.NewMemoryBus()
	defer bus.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			recipient := fmt.Sprintf("user-%d", i%3)
			ep, err := bus.Join(ctx, recipient)
			assert.NoError(t, err)
			_ = bus.Publish(ctx, recipient, testEvent(fmt.Sprintf("n%d", i), recipient))
			_ = ep.Close()
		}(i)
	}
	wg.Wait()
}
