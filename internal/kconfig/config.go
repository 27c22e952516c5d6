// Package kconfig loads kernel tunables from YAML: defaults first, then
// an optional file override, then sanity clamps so a malformed or
// partial file can never produce a kernel that can't boot.
package kconfig

import (
	"os"

	yaml "github.com/goccy/go-yaml"
)

// RTPolicyKind selects which real-time scheduling policy is active.
type RTPolicyKind string

const (
	RTPolicyRMA RTPolicyKind = "rma"
	RTPolicyEDF RTPolicyKind = "edf"
)

// Config mirrors config.yml. Field names follow the kernel's
// compile-time tunables (max task count, tick length, reported CPU
// speed, heap size, float-support presence), plus the polling server's
// own period/capacity, since the server is itself just another
// real-time task the kernel spawns at boot.
type Config struct {
	MaxTasks     int          `yaml:"max_tasks"`
	TickMS       int          `yaml:"tick_ms"`       // TIME_SLICE, in milliseconds per tick
	CPUSpeedKHz  int          `yaml:"cpu_speed_khz"` // reported, not enforced
	HeapBytes    int          `yaml:"heap_bytes"`
	FloatSupport bool         `yaml:"float_support"`
	RTPolicy     RTPolicyKind `yaml:"rt_policy"` // "rma" or "edf"

	ServerPeriodTicks   int64 `yaml:"server_period_ticks"`
	ServerCapacityTicks int64 `yaml:"server_capacity_ticks"`

	// SpawnAperiodicGenerator controls whether boot also spawns a
	// periodic task that generates aperiodic jobs for the polling
	// server to drain.
	SpawnAperiodicGenerator bool `yaml:"spawn_aperiodic_generator"`

	// MetricsAddr, if non-empty, is the address cmd/hellfirekerneld
	// serves Prometheus metrics on. Empty disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr"`
}

func defaultConfig() Config {
	return Config{
		MaxTasks:                32,
		TickMS:                  5,
		CPUSpeedKHz:             100000,
		HeapBytes:               1 << 20,
		FloatSupport:            false,
		RTPolicy:                RTPolicyRMA,
		ServerPeriodTicks:       20,
		ServerCapacityTicks:     6,
		SpawnAperiodicGenerator: true,
		MetricsAddr:             "",
	}
}

// Load reads YAML from path and overrides defaults. An empty path, a
// missing file, or a file that fails to parse all fall back silently to
// defaults -- config loading is best-effort, never fatal.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	_ = yaml.Unmarshal(data, &cfg)

	if cfg.MaxTasks <= 0 {
		cfg.MaxTasks = 32
	}
	if cfg.TickMS <= 0 {
		cfg.TickMS = 5
	}
	if cfg.HeapBytes <= 0 {
		cfg.HeapBytes = 1 << 20
	}
	if cfg.RTPolicy != RTPolicyRMA && cfg.RTPolicy != RTPolicyEDF {
		cfg.RTPolicy = RTPolicyRMA
	}
	if cfg.ServerPeriodTicks <= 0 {
		cfg.ServerPeriodTicks = 20
	}
	if cfg.ServerCapacityTicks <= 0 || cfg.ServerCapacityTicks > cfg.ServerPeriodTicks {
		cfg.ServerCapacityTicks = cfg.ServerPeriodTicks / 3
		if cfg.ServerCapacityTicks == 0 {
			cfg.ServerCapacityTicks = 1
		}
	}

	return cfg
}
