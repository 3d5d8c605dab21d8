package config

const (
	defaultScratchDir           = "~/.local/share/fetchmill/scratch"
	defaultLogDir               = "~/.local/share/fetchmill/logs"
	defaultAPIBind              = "127.0.0.1:7319"
	defaultConverterBinary      = "yt-dlp"
	defaultFFmpegBinary         = "ffmpeg"
	defaultConvertTimeoutSec    = 300
	defaultMaxCaptureMB         = 50
	defaultTickIntervalMS       = 500
	defaultBaseSpeedBytes       = 512 << 10
	defaultRetentionMinutes     = 30
	defaultSweepIntervalSeconds = 60
	defaultMinFreeScratchMB     = 512
	defaultHistoryRetentionDays = 30
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir: defaultScratchDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Tools: Tools{
			ConverterBinary:       defaultConverterBinary,
			FFmpegBinary:          defaultFFmpegBinary,
			ConvertTimeoutSeconds: defaultConvertTimeoutSec,
			MaxCaptureMB:          defaultMaxCaptureMB,
		},
		Tasks: Tasks{
			TickIntervalMS:       defaultTickIntervalMS,
			BaseSpeedBytes:       defaultBaseSpeedBytes,
			RetentionMinutes:     defaultRetentionMinutes,
			SweepIntervalSeconds: defaultSweepIntervalSeconds,
			MinFreeScratchMB:     defaultMinFreeScratchMB,
		},
		History: History{
			Enabled:       true,
			RetentionDays: defaultHistoryRetentionDays,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
