package taskpool

import "time"

// Status tags the outcome of a task execution.
type Status uint8

const (
	// StatusSuccess: the action completed and returned no error.
	StatusSuccess Status = iota

	// StatusError: the action returned an error (or panicked) on its
	// final attempt.
	StatusError

	// StatusTimeout: the task deadline elapsed before the action
	// completed. The action itself may still be running; the pool only
	// stops waiting for it.
	StatusTimeout
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Result is the outcome of exactly one accepted task.
//
// Every task accepted by Submit produces one Result on the pool's
// result channel, never zero and never two. Results are immutable once
// published.
type Result struct {
	// TaskID references the originating task.
	TaskID string

	Status Status

	// Value is the action's return value. Set only on success.
	Value any

	// Err holds the action error, the panic error, or the deadline
	// error, depending on Status. Nil on success.
	Err error

	// Elapsed is the time between dequeue and Result creation.
	Elapsed time.Duration
}
