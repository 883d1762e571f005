package taskpool

import (
	"sync"
	"time"
)

// BreakerState is the circuit breaker's current position.
type BreakerState uint8

const (
	// BreakerClosed: calls pass through; consecutive failures are
	// counted.
	BreakerClosed BreakerState = iota

	// BreakerOpen: calls fail immediately with ErrCircuitOpen until
	// the reset timeout elapses.
	BreakerOpen

	// BreakerHalfOpen: exactly one probe call is in flight; everyone
	// else fails fast until it resolves.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

const (
	defaultFailureThreshold = 5
	defaultResetTimeout     = 30 * time.Second
)

// BreakerConfig configures a CircuitBreaker. Both values are fixed at
// construction; zero values are replaced with defaults.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures in the
	// closed state that trips the breaker.
	FailureThreshold int

	// ResetTimeout is how long the breaker stays open before it admits
	// a single probe.
	ResetTimeout time.Duration
}

// CircuitBreaker guards calls to one unreliable dependency. It fails
// fast while the dependency is presumed unhealthy and periodically
// lets a single probe through to test recovery.
//
// One breaker per dependency; share it across workers. All state
// transitions are serialized under a single mutex; the critical
// section is a counter update and an enum compare.
type CircuitBreaker struct {
	mu           sync.Mutex
	state        BreakerState
	failures     int
	threshold    int
	resetTimeout time.Duration
	openUntil    time.Time

	// gen is bumped on every state change so a call that straddled a
	// transition cannot apply its outcome to the wrong state.
	gen uint64

	now func() time.Time
}

// NewCircuitBreaker creates a breaker in the closed state.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaultFailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = defaultResetTimeout
	}
	return &CircuitBreaker{
		threshold:    cfg.FailureThreshold,
		resetTimeout: cfg.ResetTimeout,
		now:          time.Now,
	}
}

// Call invokes action under the breaker's supervision.
//
// While open and before the reset deadline, Call returns ErrCircuitOpen
// without invoking the action. Once the deadline has passed, the first
// caller becomes the half-open probe; concurrent callers keep failing
// fast until the probe resolves. Action errors are returned verbatim so
// callers can tell a fast-fail from a real failure.
func (b *CircuitBreaker) Call(action func() (any, error)) (any, error) {
	gen, err := b.admit()
	if err != nil {
		return nil, err
	}
	v, err := action()
	b.record(gen, err)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// State returns the current state. Safe for concurrent use.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// admit decides whether the caller may invoke the action.
func (b *CircuitBreaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.now().Before(b.openUntil) {
			return 0, ErrCircuitOpen
		}
		// reset deadline passed; this caller is the probe
		b.transition(BreakerHalfOpen)
		return b.gen, nil
	case BreakerHalfOpen:
		// a probe is already in flight
		return 0, ErrCircuitOpen
	default:
		return b.gen, nil
	}
}

// record applies the call outcome. Outcomes from before the last state
// change are discarded.
func (b *CircuitBreaker) record(gen uint64, callErr error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.gen {
		return
	}

	switch b.state {
	case BreakerHalfOpen:
		if callErr != nil {
			b.trip()
			return
		}
		b.transition(BreakerClosed)
		b.failures = 0
	case BreakerClosed:
		if callErr != nil {
			b.failures++
			if b.failures >= b.threshold {
				b.trip()
			}
			return
		}
		b.failures = 0
	}
}

// trip moves to open and arms the reset deadline.
func (b *CircuitBreaker) trip() {
	b.transition(BreakerOpen)
	b.openUntil = b.now().Add(b.resetTimeout)
}

// transition must be called with b.mu held.
func (b *CircuitBreaker) transition(next BreakerState) {
	b.state = next
	b.gen++
}
