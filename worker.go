package taskpool

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	boff "github.com/Andrej220/go-utils/backoff"
	lg "github.com/Andrej220/go-utils/zlog"
)

// worker is one execution unit. It owns at most one task at a time and
// retires only between tasks, never mid-task.
type worker[T any] struct {
	id int

	// retire is closed by the scaling monitor; the worker exits after
	// finishing the task in hand, if any.
	retire chan struct{}

	lastActive atomic.Int64 // unix nanos
	processed  atomic.Uint64
}

// spawnWorker registers and launches one worker.
func (p *Pool[T]) spawnWorker() {
	p.workersMu.Lock()
	w := &worker[T]{id: p.nextWorkerID, retire: make(chan struct{})}
	p.nextWorkerID++
	p.workers = append(p.workers, w)
	p.workersMu.Unlock()

	p.metrics.workers.Add(1)
	p.wg.Add(1)
	go p.runWorker(w)
}

// retireWorker signals the most recently spawned worker to exit once
// it is between tasks. The roster check and the retire signal share
// one lock so the count can never drop below min, even if a previously
// retired worker has not exited yet.
func (p *Pool[T]) retireWorker(min int) bool {
	p.workersMu.Lock()
	defer p.workersMu.Unlock()
	n := len(p.workers)
	if n <= min {
		return false
	}
	w := p.workers[n-1]
	p.workers = p.workers[:n-1]
	close(w.retire)
	return true
}

// liveWorkers is the authoritative worker count for scaling decisions:
// spawned and not yet signaled to retire.
func (p *Pool[T]) liveWorkers() int {
	p.workersMu.Lock()
	defer p.workersMu.Unlock()
	return len(p.workers)
}

func (p *Pool[T]) runWorker(w *worker[T]) {
	defer p.wg.Done()
	defer p.metrics.workers.Add(-1)

	for {
		select {
		case <-w.retire:
			return
		case task, ok := <-p.workCh:
			if !ok {
				return
			}
			w.lastActive.Store(time.Now().UnixNano())
			p.execute(w, task)
			w.processed.Add(1)
		}
	}
}

// execute runs one task under its deadline and publishes exactly one
// Result for it.
//
// The action runs on its own goroutine while the worker waits on
// whichever resolves first: completion or the deadline. The loser is
// abandoned, not terminated: a timed-out action may keep running, the
// worker just stops waiting for it.
func (p *Pool[T]) execute(w *worker[T], task Task[T]) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(task.Ctx, task.Timeout)
	defer cancel()

	done := make(chan Result, 1)
	go func() {
		done <- p.runAttempts(ctx, task)
	}()

	var res Result
	select {
	case res = <-done:
	case <-ctx.Done():
		status := StatusTimeout
		if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			// submitter canceled rather than deadline elapsing
			status = StatusError
		}
		res = Result{TaskID: task.ID, Status: status, Err: ctx.Err()}
	}

	res.Elapsed = time.Since(start)
	if res.Status == StatusTimeout {
		p.metrics.timeouts.Add(1)
	}
	p.metrics.observe(res.Elapsed)
	p.publish(res)
}

// runAttempts drives the retry loop for one task and reduces it to a
// single Result. Panics become error Results so a misbehaving action
// cannot take its worker down.
func (p *Pool[T]) runAttempts(ctx context.Context, task Task[T]) (res Result) {
	logger := lg.FromContext(ctx).With(lg.String("task", task.ID))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("task panicked", lg.Any("panic", r))
			res = Result{
				TaskID: task.ID,
				Status: StatusError,
				Err:    fmt.Errorf("taskpool: task panic: %v", r),
			}
		}
		if task.CleanupFunc != nil {
			task.CleanupFunc()
		}
	}()

	pol := p.opts.Retry.merge(task.Retry)
	bo := boff.New(pol.Initial, pol.Max, time.Now().UnixNano())

	var lastErr error
	for attempt := 1; attempt <= pol.Attempts; attempt++ {
		value, err := task.Fn(ctx, task.Payload)
		if err == nil {
			return Result{TaskID: task.ID, Status: StatusSuccess, Value: value}
		}
		lastErr = err

		if errors.Is(err, ErrCircuitOpen) {
			// the guarded dependency is fast-failing; retrying before
			// its reset timeout would only burn attempts
			logger.Warn("dependency circuit open", lg.Int("attempt", attempt))
			break
		}
		if attempt == pol.Attempts {
			break
		}

		delay := bo.Next()
		logger.Warn("task attempt failed; backing off",
			lg.Int("attempt", attempt),
			lg.String("sleep", delay.String()),
			lg.Any("error", err),
		)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C // drain if timer fired
			}
			status := StatusError
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				status = StatusTimeout
			}
			return Result{TaskID: task.ID, Status: status, Err: ctx.Err()}
		}
	}

	logger.Error("task failed", lg.Any("error", lastErr))
	return Result{TaskID: task.ID, Status: StatusError, Err: lastErr}
}
