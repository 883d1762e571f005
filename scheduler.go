package taskpool

import (
	"context"

	lg "github.com/Andrej220/go-utils/zlog"
)

// scheduler is a dedicated goroutine that:
//   - folds accepted submissions into the priority heap
//   - dispatches the highest-priority task to the next free worker
//   - drains everything already accepted on shutdown
//
// Owning the heap from one goroutine keeps Push/Pop interleavings
// simple; the heap's own mutex exists for external observers (Len,
// MaxAge) and direct PriorityQueue users.
func (p *Pool[T]) scheduler() {
	defer close(p.schedDone)

	for {
		// fold pending submissions in before choosing the next task,
		// so a high-priority arrival is not stuck behind the heap
		p.absorb()

		if task, ok := p.queue.Pop(); ok {
			p.metrics.queued.Store(int64(p.queue.Len()))
			p.dispatch(task)
			continue
		}

		select {
		case <-p.stopCh:
			p.drain()
			close(p.workCh)
			return
		case task := <-p.submitCh:
			p.queue.Push(task)
			p.metrics.queued.Store(int64(p.queue.Len()))
		}
	}
}

// absorb moves everything currently buffered in submitCh into the heap
// without blocking.
func (p *Pool[T]) absorb() {
	for {
		select {
		case task := <-p.submitCh:
			p.queue.Push(task)
		default:
			p.metrics.queued.Store(int64(p.queue.Len()))
			return
		}
	}
}

// drain hands every accepted task to a worker. By the time stopCh is
// closed no submission can still be in flight (enqueue holds submitMu
// against the Draining transition), so one sweep of submitCh is final.
func (p *Pool[T]) drain() {
	p.absorb()
	n := 0
	for {
		task, ok := p.queue.Pop()
		if !ok {
			break
		}
		p.metrics.queued.Store(int64(p.queue.Len()))
		p.dispatch(task)
		n++
	}
	if n > 0 {
		lg.FromContext(context.Background()).Info("drained queued tasks on shutdown", lg.Int("count", n))
	}
}

// dispatch blocks until a worker takes the task.
func (p *Pool[T]) dispatch(task Task[T]) {
	p.workCh <- task
}
