package taskpool

import "errors"

var (
	// ErrQueueFull is returned when the pool is at capacity and cannot
	// accept the submission. This is the expected backpressure signal,
	// not a pool failure; callers retry later or drop the task.
	ErrQueueFull = errors.New("taskpool: pool at capacity")

	// ErrPoolClosed is returned when submitting to a pool that is not
	// running.
	ErrPoolClosed = errors.New("taskpool: pool closed")

	// ErrNilFunc is returned when a submitted Task has a nil Fn.
	ErrNilFunc = errors.New("taskpool: task func is nil")

	// ErrCircuitOpen is returned by CircuitBreaker.Call when the
	// breaker refuses to invoke the action. Distinct from action
	// errors so callers can apply a different retry policy to
	// fast-fails.
	ErrCircuitOpen = errors.New("taskpool: circuit open")
)

// reportInternalError reports a non-task failure such as a scaling
// evaluation problem. If no handler is registered, the error is only
// logged by the caller.
func (p *Pool[T]) reportInternalError(e error) {
	if p.OnInternalError != nil {
		p.OnInternalError(e)
	}
}
