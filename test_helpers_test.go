package taskpool

import (
	"runtime"
	"testing"
	"time"
)

var fastRetry = RetryPolicy{Attempts: 1, Initial: time.Millisecond, Max: 2 * time.Millisecond}

func newTestOptions() Options {
	return Options{
		Workers:        2,
		MinWorkers:     1,
		MaxWorkers:     4,
		Capacity:       16,
		DefaultTimeout: 2 * time.Second,
		// keep the scaling monitor quiet unless a test wants it
		ScaleInterval: time.Hour,
		Retry:         fastRetry,
	}
}

func newTestPool(t *testing.T, opts Options) *Pool[int] {
	t.Helper()
	p := New[int](opts)
	p.Start()
	t.Cleanup(p.Stop)
	return p
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		runtime.Gosched()
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not satisfied before timeout")
}

// collectResults reads exactly n results or fails the test.
func collectResults(t *testing.T, p *Pool[int], n int, timeout time.Duration) []Result {
	t.Helper()

	out := make([]Result, 0, n)
	deadline := time.After(timeout)
	for len(out) < n {
		select {
		case res, ok := <-p.Results():
			if !ok {
				t.Fatalf("result channel closed after %d of %d results", len(out), n)
			}
			out = append(out, res)
		case <-deadline:
			t.Fatalf("got %d of %d results before timeout", len(out), n)
		}
	}
	return out
}
