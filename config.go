package taskpool

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadOptions reads pool options from an optional YAML file with
// environment overrides. Environment variables use the prefix TASKPOOL
// and `.`/`-` are replaced with `_`.
// Example: TASKPOOL_MAX_WORKERS=32, TASKPOOL_RETRY_ATTEMPTS=5.
//
// An empty path yields pure defaults plus environment overrides.
func LoadOptions(path string) (Options, error) {
	var def Options
	def.FillDefaults()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TASKPOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// seed defaults for viper so env-only configs work
	v.SetDefault("workers", def.Workers)
	v.SetDefault("min_workers", def.MinWorkers)
	v.SetDefault("max_workers", def.MaxWorkers)
	v.SetDefault("capacity", def.Capacity)
	v.SetDefault("result_buffer", def.ResultBuffer)
	v.SetDefault("default_timeout", def.DefaultTimeout)
	v.SetDefault("scale_interval", def.ScaleInterval)
	v.SetDefault("retry.attempts", def.Retry.Attempts)
	v.SetDefault("retry.initial", def.Retry.Initial)
	v.SetDefault("retry.max", def.Retry.Max)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Options{}, fmt.Errorf("taskpool: read config %q: %w", path, err)
		}
	}

	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return Options{}, fmt.Errorf("taskpool: parse config: %w", err)
	}
	opts.FillDefaults()
	return opts, nil
}
