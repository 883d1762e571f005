package taskpool

import (
	"sync/atomic"
	"time"
)

// poolMetrics is a lock-free counter set backed by atomics.
//
// Writes are optimized for hot paths; reads are intended for cold-path
// observation via Stats and the plain accessors.
type poolMetrics struct {
	// submitted is the total number of accepted tasks.
	submitted atomic.Uint64

	// processed is the total number of tasks that produced a Result.
	processed atomic.Uint64

	// dropped counts rejected submissions.
	dropped atomic.Uint64

	// timeouts counts Results tagged StatusTimeout.
	timeouts atomic.Uint64

	_ [24]byte // padding to avoid false sharing

	// queued is the current priority-queue depth.
	queued atomic.Int64

	// workers is the current live worker count.
	workers atomic.Int32

	// latencyNanos accumulates per-task processing time for the
	// average-latency accessor.
	latencyNanos atomic.Int64
}

func (m *poolMetrics) observe(elapsed time.Duration) {
	m.processed.Add(1)
	m.latencyNanos.Add(int64(elapsed))
}

func (m *poolMetrics) avgLatency() time.Duration {
	n := m.processed.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(uint64(m.latencyNanos.Load()) / n)
}

// PoolStats is a point-in-time snapshot of a pool's observability
// surface. It is plain data; polling it and re-exporting it in some
// metrics format is the job of an external collaborator such as the
// observability/prometheus package.
type PoolStats struct {
	Submitted  uint64
	Processed  uint64
	Dropped    uint64
	Timeouts   uint64
	QueueDepth int
	Capacity   int
	Workers    int
	AvgLatency time.Duration
	Running    bool
}

// Stats returns a consistent-enough snapshot for monitoring. Counters
// are read individually, so a snapshot taken during heavy churn may be
// off by in-flight updates.
func (p *Pool[T]) Stats() PoolStats {
	return PoolStats{
		Submitted:  p.metrics.submitted.Load(),
		Processed:  p.metrics.processed.Load(),
		Dropped:    p.metrics.dropped.Load(),
		Timeouts:   p.metrics.timeouts.Load(),
		QueueDepth: int(p.metrics.queued.Load()),
		Capacity:   p.opts.Capacity,
		Workers:    int(p.metrics.workers.Load()),
		AvgLatency: p.metrics.avgLatency(),
		Running:    p.running(),
	}
}

// Processed returns the total number of tasks that produced a Result.
func (p *Pool[T]) Processed() uint64 { return p.metrics.processed.Load() }

// Dropped returns the number of rejected submissions.
func (p *Pool[T]) Dropped() uint64 { return p.metrics.dropped.Load() }

// QueueDepth returns the current number of queued tasks.
func (p *Pool[T]) QueueDepth() int { return int(p.metrics.queued.Load()) }

// WorkerCount returns the current number of live workers.
func (p *Pool[T]) WorkerCount() int { return int(p.metrics.workers.Load()) }

// AvgLatency returns the mean per-task processing duration so far.
func (p *Pool[T]) AvgLatency() time.Duration { return p.metrics.avgLatency() }
