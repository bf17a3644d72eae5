package config

import "time"

// MonitorConfig defines the continuous monitoring loop behavior.
type MonitorConfig struct {
	ScanIntervalSeconds int           `json:"scan_interval_seconds,omitempty" yaml:"scan_interval_seconds,omitempty" validate:"omitempty,min=1"`
	ScanInterval        time.Duration `json:"-" yaml:"-"`
	// MaxCycles limits the number of scan cycles in continuous mode; 0 runs
	// until interrupted. Mostly useful for tests.
	MaxCycles int `json:"max_cycles,omitempty" yaml:"max_cycles,omitempty" validate:"omitempty,min=0"`
	// EnableWatchTrigger watches the monitored roots with fsnotify and
	// requests an early scan cycle when something changes, instead of
	// waiting for the next interval tick.
	EnableWatchTrigger  bool          `json:"enable_watch_trigger" yaml:"enable_watch_trigger"`
	WatchDebounceMillis int           `json:"watch_debounce_millis,omitempty" yaml:"watch_debounce_millis,omitempty" validate:"omitempty,min=100"`
	WatchDebounce       time.Duration `json:"-" yaml:"-"`
}

// NewDefaultMonitorConfig creates default monitor configuration.
func NewDefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		ScanIntervalSeconds: DefaultScanIntervalSeconds,
		ScanInterval:        time.Duration(DefaultScanIntervalSeconds) * time.Second,
		MaxCycles:           DefaultMaxCycles,
		EnableWatchTrigger:  false,
		WatchDebounceMillis: DefaultWatchDebounceMillis,
		WatchDebounce:       time.Duration(DefaultWatchDebounceMillis) * time.Millisecond,
	}
}

// ResolveDurations derives the time.Duration fields from their integer
// counterparts after the config has been parsed.
func (mc *MonitorConfig) ResolveDurations() {
	if mc.ScanIntervalSeconds > 0 {
		mc.ScanInterval = time.Duration(mc.ScanIntervalSeconds) * time.Second
	}
	if mc.WatchDebounceMillis > 0 {
		mc.WatchDebounce = time.Duration(mc.WatchDebounceMillis) * time.Millisecond
	}
}
