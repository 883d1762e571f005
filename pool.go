package taskpool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	lg "github.com/Andrej220/go-utils/zlog"
	"golang.org/x/sync/semaphore"
)

// poolState tracks the pool lifecycle: Created -> Running -> Draining
// -> Stopped. Transitions are one-way.
type poolState int32

const (
	stateCreated poolState = iota
	stateRunning
	stateDraining
	stateStopped
)

// Pool executes submitted tasks on a bounded set of workers, dequeuing
// highest-priority-first and pushing one Result per accepted task onto
// the result channel.
//
// The pool owns the priority queue, the worker set, and the result
// sink. Submissions beyond Capacity are rejected (ErrQueueFull) rather
// than buffered, so a saturated pool pushes back on producers instead
// of stalling them.
type Pool[T any] struct {
	opts  Options
	queue *PriorityQueue[T]

	// sem enforces the admission limit. A permit is held from accept
	// until the task's Result has been published.
	sem *semaphore.Weighted

	submitCh chan Task[T]
	workCh   chan Task[T]
	resultCh chan Result

	stopCh     chan struct{}
	schedDone  chan struct{}
	scalerDone chan struct{}
	done       chan struct{}

	state    atomic.Int32
	stopOnce sync.Once

	// submitMu orders in-flight submissions against the transition to
	// Draining, so a submission that passed the state check always
	// lands in submitCh before the scheduler's final drain.
	submitMu sync.RWMutex

	wg           sync.WaitGroup
	workersMu    sync.Mutex
	workers      []*worker[T]
	nextWorkerID int

	metrics poolMetrics

	// OnInternalError, if set, receives non-task failures such as
	// scaling evaluation errors. Must be safe for concurrent use.
	OnInternalError func(error)
}

// New creates a pool in the Created state. Call Start to launch the
// workers and the scaling monitor.
func New[T any](opts Options) *Pool[T] {
	opts.FillDefaults()
	return &Pool[T]{
		opts:  opts,
		queue: NewPriorityQueue[T](),
		sem:   semaphore.NewWeighted(int64(opts.Capacity)),
		// sized to Capacity so an admitted submission never blocks
		submitCh:   make(chan Task[T], opts.Capacity),
		workCh:     make(chan Task[T]),
		resultCh:   make(chan Result, opts.ResultBuffer),
		stopCh:     make(chan struct{}),
		schedDone:  make(chan struct{}),
		scalerDone: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the configured workers, the scheduler, and the
// scaling monitor. Calling Start on a pool that is not in the Created
// state is a no-op.
func (p *Pool[T]) Start() {
	if !p.state.CompareAndSwap(int32(stateCreated), int32(stateRunning)) {
		return
	}
	for i := 0; i < p.opts.Workers; i++ {
		p.spawnWorker()
	}
	go p.scheduler()
	go p.scaler()
}

// Submit attempts to enqueue a task without blocking.
//
// It returns ErrQueueFull when the pool is at capacity and
// ErrPoolClosed once Stop has been called. A nil return means the task
// was accepted and will produce exactly one Result.
func (p *Pool[T]) Submit(task Task[T]) error {
	if task.Fn == nil {
		return ErrNilFunc
	}
	if !p.running() {
		return ErrPoolClosed
	}
	if !p.sem.TryAcquire(1) {
		p.metrics.dropped.Add(1)
		return ErrQueueFull
	}
	return p.enqueue(task)
}

// SubmitWithTimeout is Submit for callers that prefer bounded waiting
// over immediate rejection: it blocks up to wait for capacity before
// giving up with ErrQueueFull.
func (p *Pool[T]) SubmitWithTimeout(task Task[T], wait time.Duration) error {
	if task.Fn == nil {
		return ErrNilFunc
	}
	if !p.running() {
		return ErrPoolClosed
	}
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	if err := p.sem.Acquire(ctx, 1); err != nil {
		p.metrics.dropped.Add(1)
		return ErrQueueFull
	}
	return p.enqueue(task)
}

// enqueue hands an admitted task to the scheduler. The caller holds a
// capacity permit; on rejection the permit is returned.
func (p *Pool[T]) enqueue(task Task[T]) error {
	p.submitMu.RLock()
	defer p.submitMu.RUnlock()

	if !p.running() {
		p.sem.Release(1)
		return ErrPoolClosed
	}
	p.normalize(&task)
	p.submitCh <- task
	p.metrics.submitted.Add(1)
	lg.FromContext(task.Ctx).Info("task submitted",
		lg.String("task", task.ID),
		lg.Int("priority", task.Priority),
	)
	return nil
}

// Results returns the stream of task outcomes. The channel is closed
// once the pool has fully stopped; until then the consumer must keep
// draining it, or workers will eventually block on publishing.
func (p *Pool[T]) Results() <-chan Result {
	return p.resultCh
}

// Stop shuts the pool down and blocks until every accepted task has
// produced its Result.
func (p *Pool[T]) Stop() { _ = p.Shutdown(context.Background()) }

// Shutdown moves the pool to Draining, refuses new submissions, lets
// workers finish everything already accepted, then closes the result
// channel. It returns early with the context error if ctx expires
// first; draining continues in the background regardless.
func (p *Pool[T]) Shutdown(ctx context.Context) error {
	p.stopOnce.Do(func() {
		// never started: nothing to drain
		if p.state.CompareAndSwap(int32(stateCreated), int32(stateStopped)) {
			close(p.stopCh)
			close(p.resultCh)
			close(p.done)
			return
		}

		p.submitMu.Lock()
		p.state.Store(int32(stateDraining))
		p.submitMu.Unlock()

		close(p.stopCh)
		go p.awaitStopped()
	})

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// awaitStopped waits for the scheduler, workers, and scaler to wind
// down, then closes the result sink.
func (p *Pool[T]) awaitStopped() {
	<-p.schedDone
	p.wg.Wait()
	<-p.scalerDone
	close(p.resultCh)
	p.state.Store(int32(stateStopped))
	close(p.done)
}

func (p *Pool[T]) running() bool {
	return poolState(p.state.Load()) == stateRunning
}

// publish delivers a Result and returns the task's capacity permit.
func (p *Pool[T]) publish(res Result) {
	p.resultCh <- res
	p.sem.Release(1)
}
