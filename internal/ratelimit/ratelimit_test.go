package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock lets tests advance time without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLimiter(maxRequests int, window time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(maxRequests, window)
	l.now = clock.now
	return l, clock
}

func TestAllowAdmitsUpToMax(t *testing.T) {
	l, _ := newTestLimiter(3, 60*time.Second)

	require.True(t, l.Allow())
	require.True(t, l.Allow())
	require.True(t, l.Allow())
	require.False(t, l.Allow(), "4th call within the window must be rejected")
}

func TestRejectionDoesNotConsumeSlot(t *testing.T) {
	l, _ := newTestLimiter(2, 60*time.Second)

	require.True(t, l.Allow())
	require.True(t, l.Allow())
	require.False(t, l.Allow())
	require.Equal(t, 2, l.InFlight(), "rejected call must not be appended")
}

func TestWindowExpiryReadmits(t *testing.T) {
	l, clock := newTestLimiter(3, 60*time.Second)

	for i := 0; i < 3; i++ {
		require.True(t, l.Allow())
	}
	require.False(t, l.Allow())

	clock.advance(61 * time.Second)
	require.True(t, l.Allow(), "call after the window elapses must be admitted")
	require.Equal(t, 1, l.InFlight())
}

func TestPartialExpiry(t *testing.T) {
	l, clock := newTestLimiter(2, 60*time.Second)

	require.True(t, l.Allow())
	clock.advance(40 * time.Second)
	require.True(t, l.Allow())
	require.False(t, l.Allow())

	// First admission falls out of the window, second is still inside.
	clock.advance(30 * time.Second)
	require.True(t, l.Allow())
	require.False(t, l.Allow())
}

func TestConcurrentAllow(t *testing.T) {
	l, _ := newTestLimiter(50, time.Minute)

	var wg sync.WaitGroup
	admitted := make(chan bool, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			admitted <- l.Allow()
		}()
	}
	wg.Wait()
	close(admitted)

	count := 0
	for ok := range admitted {
		if ok {
			count++
		}
	}
	require.Equal(t, 50, count, "exactly maxRequests admissions under contention")
}
