package taskpool

import (
	"container/heap"
	"sync"
	"time"
)

const prioCap = 2048

// PriorityQueue holds pending tasks and always yields the most urgent
// one first. Ordering is (priority descending, arrival ascending), so
// tasks of equal priority leave in FIFO order.
//
// The queue is unbounded; admission control is the pool's job and
// happens before Push is ever called. All operations are guarded by a
// single mutex; the critical sections are just a heap push or pop.
type PriorityQueue[T any] struct {
	mu  sync.Mutex
	h   taskHeap[T]
	seq uint64
}

// NewPriorityQueue creates an empty queue initialized as a max-heap.
func NewPriorityQueue[T any]() *PriorityQueue[T] {
	q := &PriorityQueue[T]{}
	q.h = make(taskHeap[T], 0, prioCap) // preallocate
	heap.Init(&q.h)
	return q
}

// Push inserts a task. O(log n).
func (q *PriorityQueue[T]) Push(task Task[T]) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	heap.Push(&q.h, &item[T]{
		task:       task,
		seq:        q.seq,
		enqueuedAt: time.Now(),
	})
}

// Pop removes and returns the task with the highest priority currently
// present, breaking ties by earliest arrival. Returns false if the
// queue is empty. O(log n).
func (q *PriorityQueue[T]) Pop() (Task[T], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.h.Len() == 0 {
		var zero Task[T]
		return zero, false
	}
	it := heap.Pop(&q.h).(*item[T])
	return it.task, true
}

// Len returns the number of pending tasks. O(1).
func (q *PriorityQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.h.Len()
}

// MaxAge reports the longest wait among pending tasks. O(n); intended
// for cold-path observation only.
func (q *PriorityQueue[T]) MaxAge() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	var maxAge time.Duration
	now := time.Now()
	for i := range q.h {
		if age := now.Sub(q.h[i].enqueuedAt); age > maxAge {
			maxAge = age
		}
	}
	return maxAge
}

// item is a queued task plus the bookkeeping the heap needs.
type item[T any] struct {
	task Task[T]

	// seq is a monotonically increasing arrival counter. It is the
	// tie-break key, so equal priorities dequeue FIFO.
	seq uint64

	// enqueuedAt is used only for MaxAge reporting.
	enqueuedAt time.Time

	// index is maintained by heap.Interface.
	index int
}

// taskHeap is a max-heap by (priority, -seq).
type taskHeap[T any] []*item[T]

func (h taskHeap[T]) Len() int { return len(h) }

func (h taskHeap[T]) Less(i, j int) bool {
	if h[i].task.Priority != h[j].task.Priority {
		return h[i].task.Priority > h[j].task.Priority // max-heap
	}
	return h[i].seq < h[j].seq // FIFO among equals
}

func (h taskHeap[T]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap[T]) Push(x any) {
	it := x.(*item[T])
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *taskHeap[T]) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}
