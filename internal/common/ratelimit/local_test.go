package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock shared by a test and its limiter.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLocal(t *testing.T, limit int, window time.Duration, clock *fakeClock) *LocalLimiter {
	t.Helper()
	config := DefaultConfig()
	config.Limit = limit
	config.Window = window

	l, err := NewLocalLimiter(config, WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLocalLimiter_Admit(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	l := newTestLocal(t, 3, time.Minute, clock)

	for i := 1; i <= 3; i++ {
		d, err := l.Admit(ctx, "a")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, 3, d.Limit)
		assert.Equal(t, 3-i, d.Remaining)
		assert.Equal(t, clock.Now().Add(time.Minute), d.ResetAt)
		assert.Zero(t, d.RetryAfter)
	}

	clock.Advance(20 * time.Second)
	d, err := l.Admit(ctx, "a")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, 40*time.Second, d.RetryAfter)
}

func TestLocalLimiter_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	l := newTestLocal(t, 2, time.Minute, newFakeClock())

	for i := 0; i < 2; i++ {
		d, _ := l.Admit(ctx, "user1")
		assert.True(t, d.Allowed)
		d, _ = l.Admit(ctx, "user2")
		assert.True(t, d.Allowed)
	}

	d, _ := l.Admit(ctx, "user1")
	assert.False(t, d.Allowed)
	d, _ = l.Admit(ctx, "user3")
	assert.True(t, d.Allowed)
}

func TestLocalLimiter_WindowResets(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	l := newTestLocal(t, 1, time.Minute, clock)

	d, _ := l.Admit(ctx, "a")
	assert.True(t, d.Allowed)
	d, _ = l.Admit(ctx, "a")
	assert.False(t, d.Allowed)

	clock.Advance(time.Minute)
	d, _ = l.Admit(ctx, "a")
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, clock.Now().Add(time.Minute), d.ResetAt)
}

func TestLocalLimiter_DeniedRequestsStillCount(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	l := newTestLocal(t, 1, time.Minute, clock)

	for i := 0; i < 5; i++ {
		l.Admit(ctx, "a")
	}
	clock.Advance(59 * time.Second)
	d, _ := l.Admit(ctx, "a")
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Second, d.RetryAfter)
}

func TestLocalLimiter_Disabled(t *testing.T) {
	config := DefaultConfig()
	config.Enabled = false

	l, err := NewLocalLimiter(config)
	require.NoError(t, err)
	defer l.Close()

	for i := 0; i < 100; i++ {
		d, err := l.Admit(context.Background(), "a")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	assert.Equal(t, 0, l.ActiveKeys())
}

func TestLocalLimiter_Sweep(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	l := newTestLocal(t, 5, time.Minute, clock)

	for i := 0; i < 10; i++ {
		l.Admit(ctx, fmt.Sprintf("old-%d", i))
	}
	clock.Advance(30 * time.Second)
	l.Admit(ctx, "fresh")

	assert.Equal(t, 0, l.Sweep(), "open windows survive")
	assert.Equal(t, 11, l.ActiveKeys())

	clock.Advance(31 * time.Second)
	assert.Equal(t, 10, l.Sweep())
	assert.Equal(t, 1, l.ActiveKeys())

	stats := l.Stats()
	assert.Equal(t, "local", stats["type"])
	assert.Equal(t, 1, stats["active_keys"])
	assert.Equal(t, int64(10), stats["swept_keys"])
}

func TestLocalLimiter_ScheduledSweep(t *testing.T) {
	config := DefaultConfig()
	config.Limit = 5
	config.Window = time.Millisecond
	config.SweepSchedule = "@every 1s"

	l, err := NewLocalLimiter(config)
	require.NoError(t, err)
	defer l.Close()

	l.Admit(context.Background(), "a")
	assert.Eventually(t, func() bool { return l.ActiveKeys() == 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestLocalLimiter_ConcurrentSameKeyNeverOverAdmits(t *testing.T) {
	const limit = 60
	l := newTestLocal(t, limit, time.Minute, newFakeClock())

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 500; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := l.Admit(context.Background(), "shared")
			if err == nil && d.Allowed {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), admitted.Load())
}

func TestLocalLimiter_ConcurrentDistinctKeys(t *testing.T) {
	l := newTestLocal(t, 1, time.Minute, newFakeClock())

	var denied atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, _ := l.Admit(context.Background(), fmt.Sprintf("client-%d", i))
			if !d.Allowed {
				denied.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Zero(t, denied.Load())
	assert.Equal(t, 200, l.ActiveKeys())
}
