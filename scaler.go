package taskpool

import (
	"context"
	"fmt"
	"time"

	lg "github.com/Andrej220/go-utils/zlog"
)

// scaler is the scaling monitor. On a coarse interval it samples queue
// occupancy and moves the worker count by at most one, within
// [MinWorkers, MaxWorkers]:
//
//   - occupancy above 80% of capacity: add one worker
//   - occupancy below 20% of capacity: retire one worker
//
// Retirement is graceful: the chosen worker finishes the task in hand
// before exiting. Evaluation problems are reported and retried on the
// next tick; they never stop the pool.
func (p *Pool[T]) scaler() {
	defer close(p.scalerDone)

	ticker := time.NewTicker(p.opts.ScaleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.evaluateScale()
		}
	}
}

func (p *Pool[T]) evaluateScale() {
	logger := lg.FromContext(context.Background())

	capacity := p.opts.Capacity
	if capacity <= 0 {
		err := fmt.Errorf("taskpool: invalid capacity %d in scaling evaluation", capacity)
		logger.Error("scaling evaluation failed", lg.Any("error", err))
		p.reportInternalError(err)
		return
	}

	depth := int(p.metrics.queued.Load())
	workers := p.liveWorkers()
	occupancy := float64(depth) / float64(capacity)

	switch {
	case occupancy > scaleUpOccupancy && workers < p.opts.MaxWorkers:
		p.spawnWorker()
		logger.Info("scaled up",
			lg.Int("workers", workers+1),
			lg.Int("queued", depth),
		)
	case occupancy < scaleDownOccupancy && workers > p.opts.MinWorkers:
		if p.retireWorker(p.opts.MinWorkers) {
			logger.Info("scaling down",
				lg.Int("workers", workers-1),
				lg.Int("queued", depth),
			)
		}
	}
}
