package taskpool

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDependency = errors.New("dependency down")

// fakeClock lets tests move the breaker's notion of time.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
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

func newTestBreaker(threshold int, reset time.Duration) (*CircuitBreaker, *fakeClock) {
	b := NewCircuitBreaker(BreakerConfig{FailureThreshold: threshold, ResetTimeout: reset})
	clock := newFakeClock()
	b.now = clock.Now
	return b, clock
}

func failingCall(b *CircuitBreaker) error {
	_, err := b.Call(func() (any, error) { return nil, errDependency })
	return err
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, 30*time.Second)

	for i := 0; i < 3; i++ {
		require.ErrorIs(t, failingCall(b), errDependency)
	}
	require.Equal(t, BreakerOpen, b.State())

	invoked := false
	_, err := b.Call(func() (any, error) {
		invoked = true
		return nil, nil
	})
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, invoked, "action must not be invoked while open")
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(3, 30*time.Second)

	require.Error(t, failingCall(b))
	require.Error(t, failingCall(b))

	_, err := b.Call(func() (any, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, 0, b.failures)

	// two more failures must not trip it: the run was broken
	require.Error(t, failingCall(b))
	require.Error(t, failingCall(b))
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerHalfOpenProbeSuccess(t *testing.T) {
	b, clock := newTestBreaker(3, 30*time.Second)

	for i := 0; i < 3; i++ {
		require.Error(t, failingCall(b))
	}
	require.Equal(t, BreakerOpen, b.State())

	// before the reset deadline the breaker stays shut
	clock.Advance(29 * time.Second)
	require.ErrorIs(t, failingCall(b), ErrCircuitOpen)

	clock.Advance(2 * time.Second)
	invocations := 0
	v, err := b.Call(func() (any, error) {
		invocations++
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, invocations, "probe must invoke the action exactly once")
	assert.Equal(t, BreakerClosed, b.State())
	assert.Equal(t, 0, b.failures)
}

func TestBreakerHalfOpenProbeFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(2, 10*time.Second)

	require.Error(t, failingCall(b))
	require.Error(t, failingCall(b))
	require.Equal(t, BreakerOpen, b.State())

	clock.Advance(11 * time.Second)
	require.ErrorIs(t, failingCall(b), errDependency)
	require.Equal(t, BreakerOpen, b.State())

	// a fresh reset deadline was armed
	clock.Advance(9 * time.Second)
	require.ErrorIs(t, failingCall(b), ErrCircuitOpen)
	clock.Advance(2 * time.Second)
	_, err := b.Call(func() (any, error) { return nil, nil })
	require.NoError(t, err)
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerSingleProbeGate(t *testing.T) {
	b, clock := newTestBreaker(1, time.Second)

	require.Error(t, failingCall(b))
	require.Equal(t, BreakerOpen, b.State())
	clock.Advance(2 * time.Second)

	probeStarted := make(chan struct{})
	release := make(chan struct{})
	probeDone := make(chan error, 1)
	go func() {
		_, err := b.Call(func() (any, error) {
			close(probeStarted)
			<-release
			return nil, nil
		})
		probeDone <- err
	}()

	<-probeStarted
	require.Equal(t, BreakerHalfOpen, b.State())

	// concurrent callers must fail fast while the probe is in flight
	invoked := false
	_, err := b.Call(func() (any, error) {
		invoked = true
		return nil, nil
	})
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, invoked)

	close(release)
	require.NoError(t, <-probeDone)
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerScenarioThresholdThree(t *testing.T) {
	// threshold=3, reset=30s: three failures trip it, the fourth call
	// fast-fails, and after 30s the probe closes it again.
	b, clock := newTestBreaker(3, 30*time.Second)

	for i := 0; i < 3; i++ {
		require.ErrorIs(t, failingCall(b), errDependency)
	}
	require.ErrorIs(t, failingCall(b), ErrCircuitOpen)

	clock.Advance(30 * time.Second)
	probed := 0
	_, err := b.Call(func() (any, error) {
		probed++
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, probed)
	assert.Equal(t, BreakerClosed, b.State())
	assert.Equal(t, 0, b.failures)
}

func TestBreakerStateStrings(t *testing.T) {
	assert.Equal(t, "closed", BreakerClosed.String())
	assert.Equal(t, "open", BreakerOpen.String())
	assert.Equal(t, "half-open", BreakerHalfOpen.String())
}
