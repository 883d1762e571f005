package taskpool

import (
	"time"
)

const (
	defaultAttempts     = 3
	defaultInitialRetry = 200 * time.Millisecond
	defaultMaxRetry     = 5 * time.Second
)

// RetryPolicy describes how many times and how often a failing task
// action is retried before the pool gives up and publishes an error
// Result. Retries happen inside the task's deadline; the deadline does
// not restart between attempts.
//
// Zero values are treated as "use pool defaults".
type RetryPolicy struct {
	// Attempts is the maximum number of tries for a task.
	Attempts int `mapstructure:"attempts"`

	// Initial is the first backoff duration.
	Initial time.Duration `mapstructure:"initial"`

	// Max is the cap for backoff duration.
	Max time.Duration `mapstructure:"max"`
}

func (rp *RetryPolicy) fillDefaults() {
	if rp.Attempts <= 0 {
		rp.Attempts = defaultAttempts
	}
	if rp.Initial <= 0 {
		rp.Initial = defaultInitialRetry
	}
	if rp.Max <= 0 {
		rp.Max = defaultMaxRetry
	}
}

// DefaultRetryPolicy returns the policy a pool uses when neither the
// pool options nor the task set one. Useful in tests.
func DefaultRetryPolicy() *RetryPolicy {
	rp := RetryPolicy{}
	rp.fillDefaults()
	return &rp
}

// merge returns the pool policy with non-zero per-task values applied
// on top.
func (rp RetryPolicy) merge(override *RetryPolicy) RetryPolicy {
	if override == nil {
		return rp
	}
	if override.Attempts > 0 {
		rp.Attempts = override.Attempts
	}
	if override.Initial > 0 {
		rp.Initial = override.Initial
	}
	if override.Max > 0 {
		rp.Max = override.Max
	}
	return rp
}
