// Package prometheus re-exports taskpool's plain observability
// accessors as Prometheus collectors. The pool core deliberately
// speaks no metrics format; this package is the external collaborator
// that polls the snapshots and exposes them.
package prometheus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Andrej220/go-utils/taskpool"
	prom "github.com/prometheus/client_golang/prometheus"
)

// PoolSnapshotProvider provides current pool stats snapshots.
type PoolSnapshotProvider interface {
	Stats() taskpool.PoolStats
}

// BreakerStateProvider provides the current breaker state.
type BreakerStateProvider interface {
	State() taskpool.BreakerState
}

// SnapshotPoller periodically exports pool Stats() snapshots and
// breaker states into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	poolsMu sync.RWMutex
	pools   map[string]PoolSnapshotProvider

	breakersMu sync.RWMutex
	breakers   map[string]BreakerStateProvider

	poolSubmitted  *prom.GaugeVec
	poolProcessed  *prom.GaugeVec
	poolDropped    *prom.GaugeVec
	poolTimeouts   *prom.GaugeVec
	poolQueueDepth *prom.GaugeVec
	poolWorkers    *prom.GaugeVec
	poolAvgLatency *prom.GaugeVec
	poolRunning    *prom.GaugeVec

	breakerState *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	poolSubmitted := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskpool",
		Name:      "pool_submitted_total",
		Help:      "Accepted task count snapshot.",
	}, []string{"pool"})
	poolProcessed := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskpool",
		Name:      "pool_processed_total",
		Help:      "Processed task count snapshot.",
	}, []string{"pool"})
	poolDropped := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskpool",
		Name:      "pool_dropped_total",
		Help:      "Rejected submission count snapshot.",
	}, []string{"pool"})
	poolTimeouts := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskpool",
		Name:      "pool_timeouts_total",
		Help:      "Timed-out task count snapshot.",
	}, []string{"pool"})
	poolQueueDepth := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskpool",
		Name:      "pool_queue_depth",
		Help:      "Queued tasks per pool.",
	}, []string{"pool"})
	poolWorkers := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskpool",
		Name:      "pool_workers",
		Help:      "Worker count per pool.",
	}, []string{"pool"})
	poolAvgLatency := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskpool",
		Name:      "pool_avg_task_latency_seconds",
		Help:      "Mean per-task processing duration.",
	}, []string{"pool"})
	poolRunning := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskpool",
		Name:      "pool_running",
		Help:      "Pool running state (1=running, 0=stopped).",
	}, []string{"pool"})
	breakerState := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "taskpool",
		Name:      "breaker_state",
		Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open).",
	}, []string{"breaker"})

	var err error
	if poolSubmitted, err = registerCollector(reg, poolSubmitted); err != nil {
		return nil, err
	}
	if poolProcessed, err = registerCollector(reg, poolProcessed); err != nil {
		return nil, err
	}
	if poolDropped, err = registerCollector(reg, poolDropped); err != nil {
		return nil, err
	}
	if poolTimeouts, err = registerCollector(reg, poolTimeouts); err != nil {
		return nil, err
	}
	if poolQueueDepth, err = registerCollector(reg, poolQueueDepth); err != nil {
		return nil, err
	}
	if poolWorkers, err = registerCollector(reg, poolWorkers); err != nil {
		return nil, err
	}
	if poolAvgLatency, err = registerCollector(reg, poolAvgLatency); err != nil {
		return nil, err
	}
	if poolRunning, err = registerCollector(reg, poolRunning); err != nil {
		return nil, err
	}
	if breakerState, err = registerCollector(reg, breakerState); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:       interval,
		pools:          make(map[string]PoolSnapshotProvider),
		breakers:       make(map[string]BreakerStateProvider),
		poolSubmitted:  poolSubmitted,
		poolProcessed:  poolProcessed,
		poolDropped:    poolDropped,
		poolTimeouts:   poolTimeouts,
		poolQueueDepth: poolQueueDepth,
		poolWorkers:    poolWorkers,
		poolAvgLatency: poolAvgLatency,
		poolRunning:    poolRunning,
		breakerState:   breakerState,
	}, nil
}

// AddPool adds or replaces a pool snapshot provider by name.
func (p *SnapshotPoller) AddPool(name string, provider PoolSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "pool")
	p.poolsMu.Lock()
	p.pools[name] = provider
	p.poolsMu.Unlock()
}

// AddBreaker adds or replaces a breaker state provider by name.
func (p *SnapshotPoller) AddBreaker(name string, provider BreakerStateProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "breaker")
	p.breakersMu.Lock()
	p.breakers[name] = provider
	p.breakersMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.poolsMu.RLock()
	for name, provider := range p.pools {
		stats := provider.Stats()
		p.poolSubmitted.WithLabelValues(name).Set(float64(stats.Submitted))
		p.poolProcessed.WithLabelValues(name).Set(float64(stats.Processed))
		p.poolDropped.WithLabelValues(name).Set(float64(stats.Dropped))
		p.poolTimeouts.WithLabelValues(name).Set(float64(stats.Timeouts))
		p.poolQueueDepth.WithLabelValues(name).Set(float64(stats.QueueDepth))
		p.poolWorkers.WithLabelValues(name).Set(float64(stats.Workers))
		p.poolAvgLatency.WithLabelValues(name).Set(stats.AvgLatency.Seconds())
		if stats.Running {
			p.poolRunning.WithLabelValues(name).Set(1)
		} else {
			p.poolRunning.WithLabelValues(name).Set(0)
		}
	}
	p.poolsMu.RUnlock()

	p.breakersMu.RLock()
	for name, provider := range p.breakers {
		p.breakerState.WithLabelValues(name).Set(float64(provider.State()))
	}
	p.breakersMu.RUnlock()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
