// Package taskpool provides a bounded worker pool with priority
// scheduling, backpressure on submission, and a circuit breaker for
// guarding calls to unreliable dependencies.
//
// Design goals
//
// The package favors correctness and predictable behavior over maximal
// throughput:
//
//   - Bounded admission: a full pool rejects, it never silently buffers
//   - Exactly one Result per accepted task
//   - Short, mutex-guarded critical sections instead of lock-free code
//   - Graceful everything: shutdown drains, scale-down waits
//
// This is a backpressure and resilience tool, not a hot-path data
// plane. At the task volumes a dependency gate sees, a heap pop under a
// mutex is nowhere near the bottleneck.
//
// Architecture overview
//
// The pool is composed of four loosely coupled pieces:
//
//   1. Admission (Submit / SubmitWithTimeout)
//      A weighted semaphore caps accepted-but-unfinished tasks at
//      Capacity. Submit rejects immediately when full;
//      SubmitWithTimeout waits a bounded time for a slot.
//
//   2. Scheduling (PriorityQueue + scheduler goroutine)
//      Accepted tasks flow into a max-heap keyed by priority, FIFO
//      among equals. A dedicated scheduler goroutine owns the heap and
//      hands the most urgent task to the next free worker.
//
//   3. Execution (workers)
//      Each worker runs one task at a time under the task's deadline,
//      racing action completion against a timer. Timeouts are
//      best-effort: the losing action is abandoned, never killed.
//      Panics are recovered into error Results. Failing actions are
//      retried with capped backoff inside the same deadline.
//
//   4. Scaling (monitor goroutine)
//      A coarse ticker samples queue occupancy and moves the worker
//      count by one, up above 80% occupancy, down below 20%, within
//      configured bounds. Workers retire only between tasks.
//
// Results
//
// Every accepted task produces exactly one Result (success, error, or
// timeout) on the channel returned by Results. The channel is closed
// after shutdown completes, so consumers can range over it. The
// consumer must keep draining; a full result buffer blocks workers.
//
// Circuit breaker
//
// CircuitBreaker is independent of the pool: task actions that contact
// an external dependency route the call through Call. After a run of
// consecutive failures the breaker opens and fails fast with
// ErrCircuitOpen; after a reset timeout it admits a single probe to
// test recovery. ErrCircuitOpen is distinct from action errors so
// callers can back off instead of burning retry attempts.
//
// Shutdown
//
// Stop (or Shutdown with a deadline) refuses new submissions, lets
// workers finish every task already accepted, publishes the remaining
// Results, and closes the sink. Nothing accepted is ever dropped.
package taskpool
