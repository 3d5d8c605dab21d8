// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"fetchmill/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test and
// fast simulated-tick tuning so lifecycle tests finish quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Tasks.TickIntervalMS = 5
	cfg.Tasks.SweepIntervalSeconds = 1
	cfg.Tasks.RetentionMinutes = 1

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithBaseSpeed overrides the simulated base speed in bytes per second.
func WithBaseSpeed(bytesPerSecond int64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Tasks.BaseSpeedBytes = bytesPerSecond
	}
}

// WithRetention overrides the terminal-task retention window in minutes.
func WithRetention(minutes int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Tasks.RetentionMinutes = minutes
	}
}
