package taskpool

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOptionsDefaults(t *testing.T) {
	opts, err := LoadOptions("")
	require.NoError(t, err)

	assert.Equal(t, runtime.GOMAXPROCS(0), opts.Workers)
	assert.Equal(t, 1, opts.MinWorkers)
	assert.Equal(t, DefaultCapacity, opts.Capacity)
	assert.Equal(t, 30*time.Second, opts.DefaultTimeout)
	assert.Equal(t, 10*time.Second, opts.ScaleInterval)
	assert.Equal(t, defaultAttempts, opts.Retry.Attempts)
}

func TestLoadOptionsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskpool.yaml")
	yaml := `
workers: 2
min_workers: 1
max_workers: 6
capacity: 64
default_timeout: 2s
scale_interval: 1s
retry:
  attempts: 5
  initial: 10ms
  max: 250ms
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	opts, err := LoadOptions(path)
	require.NoError(t, err)

	assert.Equal(t, 2, opts.Workers)
	assert.Equal(t, 6, opts.MaxWorkers)
	assert.Equal(t, 64, opts.Capacity)
	assert.Equal(t, 64, opts.ResultBuffer, "result buffer defaults to capacity")
	assert.Equal(t, 2*time.Second, opts.DefaultTimeout)
	assert.Equal(t, time.Second, opts.ScaleInterval)
	assert.Equal(t, 5, opts.Retry.Attempts)
	assert.Equal(t, 10*time.Millisecond, opts.Retry.Initial)
	assert.Equal(t, 250*time.Millisecond, opts.Retry.Max)
}

func TestLoadOptionsEnvOverride(t *testing.T) {
	t.Setenv("TASKPOOL_CAPACITY", "128")
	t.Setenv("TASKPOOL_RETRY_ATTEMPTS", "7")

	opts, err := LoadOptions("")
	require.NoError(t, err)

	assert.Equal(t, 128, opts.Capacity)
	assert.Equal(t, 7, opts.Retry.Attempts)
}

func TestLoadOptionsMissingFile(t *testing.T) {
	_, err := LoadOptions(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
