package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeTasks()
	c.normalizeHistory()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = defaultScratchDir
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.ConverterBinary = strings.TrimSpace(c.Tools.ConverterBinary)
	if c.Tools.ConverterBinary == "" {
		c.Tools.ConverterBinary = defaultConverterBinary
	}
	c.Tools.FFmpegBinary = strings.TrimSpace(c.Tools.FFmpegBinary)
	if c.Tools.FFmpegBinary == "" {
		c.Tools.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Tools.ConvertTimeoutSeconds <= 0 {
		c.Tools.ConvertTimeoutSeconds = defaultConvertTimeoutSec
	}
	if c.Tools.MaxCaptureMB <= 0 {
		c.Tools.MaxCaptureMB = defaultMaxCaptureMB
	}
}

func (c *Config) normalizeTasks() {
	if c.Tasks.TickIntervalMS <= 0 {
		c.Tasks.TickIntervalMS = defaultTickIntervalMS
	}
	if c.Tasks.BaseSpeedBytes <= 0 {
		c.Tasks.BaseSpeedBytes = defaultBaseSpeedBytes
	}
	if c.Tasks.RetentionMinutes <= 0 {
		c.Tasks.RetentionMinutes = defaultRetentionMinutes
	}
	if c.Tasks.SweepIntervalSeconds <= 0 {
		c.Tasks.SweepIntervalSeconds = defaultSweepIntervalSeconds
	}
	if c.Tasks.MinFreeScratchMB < 0 {
		c.Tasks.MinFreeScratchMB = defaultMinFreeScratchMB
	}
}

func (c *Config) normalizeHistory() {
	if c.History.RetentionDays <= 0 {
		c.History.RetentionDays = defaultHistoryRetentionDays
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
