package taskpool

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TaskFunc is the function executed by a worker for a given task payload.
//
// The context carries the task deadline; actions that may outlive it
// should observe ctx and stop early. The returned value is delivered in
// the task's Result on success.
type TaskFunc[T any] func(ctx context.Context, payload T) (any, error)

// Task represents a single unit of work submitted to the pool.
//
// Priority and Timeout are fixed once the task has been accepted;
// the pool never mutates them afterwards.
type Task[T any] struct {
	// ID identifies the task in its Result. Generated if left empty.
	ID string

	// Priority orders dequeuing; higher values run first.
	// Equal priorities are served in arrival order.
	Priority int

	// Timeout bounds the whole execution, retries included.
	// Zero means the pool default.
	Timeout time.Duration

	// Payload is passed to Fn when executed.
	Payload T

	Fn TaskFunc[T]

	// Ctx controls cancellation by the submitter. Optional.
	Ctx context.Context

	// CleanupFunc, if set, runs once the action actually returns,
	// even after a panic. For a timed-out task that is abandoned,
	// this can be after the Result was already delivered.
	CleanupFunc func()

	// Retry overrides the pool's default retry policy.
	// Zero fields fall back to the default per field.
	Retry *RetryPolicy
}

// normalize fills the pieces a submitter may leave empty.
func (p *Pool[T]) normalize(task *Task[T]) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Ctx == nil {
		task.Ctx = context.Background()
	}
	if task.Timeout <= 0 {
		task.Timeout = p.opts.DefaultTimeout
	}
}
