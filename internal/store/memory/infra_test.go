package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newStubClock() *stubClock {
	return &stubClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestLockManagerExclusionAndExpiry(t *testing.T) {
	clock := newStubClock()
	locks := NewLockManager(clock)
	ctx := context.Background()

	unlock, err := locks.Acquire(ctx, "m1", 5*time.Second)
	require.NoError(t, err)

	_, err = locks.Acquire(ctx, "m1", 5*time.Second)
	require.Error(t, err)

	unlock()
	_, err = locks.Acquire(ctx, "m1", 5*time.Second)
	require.NoError(t, err)

	// An expired lock is reacquirable even without an unlock.
	clock.Advance(6 * time.Second)
	_, err = locks.Acquire(ctx, "m1", 5*time.Second)
	require.NoError(t, err)
}

func TestSignalBusPubSub(t *testing.T) {
	bus := NewSignalBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, "events")
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, "events", []byte("one")))
	require.NoError(t, bus.Publish(ctx, "other", []byte("ignored")))

	select {
	case msg := <-ch:
		require.Equal(t, "one", string(msg))
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
}

func TestSignalBusStream(t *testing.T) {
	bus := NewSignalBus()
	ctx := context.Background()

	for _, payload := range []string{"a", "b", "c"} {
		require.NoError(t, bus.StreamAppend(ctx, "s", []byte(payload)))
	}

	msgs, err := bus.StreamRead(ctx, "s", "", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, "1", msgs[0].ID)

	// Resume past the first message.
	msgs, err = bus.StreamRead(ctx, "s", msgs[0].ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "b", string(msgs[0].Payload))

	// Count caps the page.
	msgs, err = bus.StreamRead(ctx, "s", "", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
}

func TestRateLimiterWindow(t *testing.T) {
	clock := newStubClock()
	rl := NewRateLimiter(clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, "ip", 3, time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
	}

	ok, err := rl.Allow(ctx, "ip", 3, time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	// A different key has its own budget.
	ok, err = rl.Allow(ctx, "other", 3, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// The window slides: old hits age out.
	clock.Advance(61 * time.Second)
	ok, err = rl.Allow(ctx, "ip", 3, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}
