package taskpool

import (
	"runtime"
	"time"
)

const (
	// DefaultCapacity bounds accepted-but-unfinished tasks.
	DefaultCapacity = 1024

	defaultTaskTimeout   = 30 * time.Second
	defaultScaleInterval = 10 * time.Second

	// Occupancy thresholds for the scaling monitor. Evaluated on a
	// coarse interval, one worker per tick, to damp oscillation.
	scaleUpOccupancy   = 0.8
	scaleDownOccupancy = 0.2
)

// Options configure a Pool.
//
// All zero values are replaced with sensible defaults in FillDefaults.
type Options struct {
	// Workers is the initial worker count.
	Workers int `mapstructure:"workers"`

	// MinWorkers and MaxWorkers bound what the scaling monitor may do.
	MinWorkers int `mapstructure:"min_workers"`
	MaxWorkers int `mapstructure:"max_workers"`

	// Capacity is the admission-control limit: the maximum number of
	// accepted tasks that have not yet finished. Submissions beyond it
	// are rejected with ErrQueueFull.
	Capacity int `mapstructure:"capacity"`

	// ResultBuffer sizes the result channel. The consumer must drain
	// it; workers block on publishing once it is full.
	ResultBuffer int `mapstructure:"result_buffer"`

	// DefaultTimeout applies to tasks submitted without one.
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`

	// ScaleInterval is how often the scaling monitor samples queue
	// occupancy.
	ScaleInterval time.Duration `mapstructure:"scale_interval"`

	// Retry is the default retry policy; per-task policies override it
	// field by field.
	Retry RetryPolicy `mapstructure:"retry"`
}

func (o *Options) FillDefaults() {
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.MinWorkers <= 0 {
		o.MinWorkers = 1
	}
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = 4 * o.Workers
	}
	if o.MaxWorkers < o.Workers {
		o.MaxWorkers = o.Workers
	}
	if o.MinWorkers > o.Workers {
		o.MinWorkers = o.Workers
	}
	if o.Capacity <= 0 {
		o.Capacity = DefaultCapacity
	}
	if o.ResultBuffer <= 0 {
		o.ResultBuffer = o.Capacity
	}
	if o.DefaultTimeout <= 0 {
		o.DefaultTimeout = defaultTaskTimeout
	}
	if o.ScaleInterval <= 0 {
		o.ScaleInterval = defaultScaleInterval
	}
	o.Retry.fillDefaults()
}
